/*
Package jobqueue provides a River-based job queue for asynchronous agent
draft generation.

A draft job runs the agent against the current document content, extracts the
structured edit proposal and records a pending operation in the ledger; the
UI later opens a review cycle from that operation. For configuration options
and tuning parameters, see queue_config.go.
*/
package jobqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/rs/zerolog/log"

	"github.com/useXR/quill/internal/agent"
	"github.com/useXR/quill/internal/config"
	"github.com/useXR/quill/internal/retry"
)

// AgentRunner is the slice of agent.Runner the worker needs.
type AgentRunner interface {
	Run(ctx context.Context, prompt string, opts agent.RunOptions) (*agent.RunResult, error)
}

// DraftJobArgs represents the arguments for a draft generation job
type DraftJobArgs struct {
	DocumentID string `json:"document_id"`
	Prompt     string `json:"prompt"`
}

// Kind returns the job kind for River
func (DraftJobArgs) Kind() string {
	return "agent_draft"
}

// DraftWorker handles draft generation jobs
type DraftWorker struct {
	river.WorkerDefaults[DraftJobArgs]
	pool   *pgxpool.Pool
	runner AgentRunner
	cfg    *config.Config
	queue  *QueueConfig
}

// Timeout bounds one job run, agent subprocess included.
func (w *DraftWorker) Timeout(*river.Job[DraftJobArgs]) time.Duration {
	return w.queue.JobTimeout
}

// Work runs the agent for one draft job and records the pending operation.
func (w *DraftWorker) Work(ctx context.Context, job *river.Job[DraftJobArgs]) error {
	args := job.Args

	var content string
	err := w.pool.QueryRow(ctx, `SELECT content FROM documents WHERE id = $1`, args.DocumentID).Scan(&content)
	if err != nil {
		return fmt.Errorf("load document %s: %w", args.DocumentID, err)
	}

	result, err := w.runner.Run(ctx, agent.ProposalPrompt(args.Prompt, content), agent.RunOptions{
		SystemPrompt: w.cfg.Agent.SystemPrompt,
		AllowedTools: w.cfg.Agent.AllowedTools,
		Timeout:      w.cfg.AgentTimeout(),
	})
	if err != nil {
		return fmt.Errorf("agent draft run: %w", err)
	}

	proposal, err := agent.ExtractProposal(result.FullText)
	if err != nil {
		return fmt.Errorf("extract draft proposal: %w", err)
	}

	opID := uuid.NewString()
	insert := func() error {
		_, err := w.pool.Exec(ctx, `
			INSERT INTO ai_operations (id, document_id, input_summary, status, original_content, proposed_content)
			VALUES ($1, $2, $3, 'pending', $4, $5)
		`, opID, args.DocumentID, agent.SummarizeInput(args.Prompt), content, proposal.Content)
		return err
	}
	if err := retry.WithBackoff(ctx, retry.DefaultConfig(), "insert draft operation", insert); err != nil {
		return fmt.Errorf("record draft operation: %w", err)
	}

	log.Info().
		Str("document_id", args.DocumentID).
		Str("operation_id", opID).
		Msg("draft proposal recorded")
	return nil
}

// JobQueue manages the River job queue
type JobQueue struct {
	client *river.Client[pgx.Tx]
	pool   *pgxpool.Pool
	queue  *QueueConfig
}

// NewJobQueue creates a new job queue instance
func NewJobQueue(databaseURL string, cfg *config.Config) (*JobQueue, error) {
	queueCfg := DefaultQueueConfig()

	// Create a pgx connection pool
	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Create River client
	workers := river.NewWorkers()
	river.AddWorker(workers, &DraftWorker{
		pool:   pool,
		runner: agent.NewRunner(cfg.Agent.Binary),
		cfg:    cfg,
		queue:  queueCfg,
	})

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues:  queueCfg.RiverQueueConfig(),
		Workers: workers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	return &JobQueue{
		client: client,
		pool:   pool,
		queue:  queueCfg,
	}, nil
}

// Start starts the job queue workers
func (jq *JobQueue) Start(ctx context.Context) error {
	return jq.client.Start(ctx)
}

// Stop stops the job queue workers and releases the pool.
func (jq *JobQueue) Stop(ctx context.Context) error {
	err := jq.client.Stop(ctx)
	jq.pool.Close()
	return err
}

// EnqueueDraft queues a draft generation job for a document.
func (jq *JobQueue) EnqueueDraft(ctx context.Context, documentID, prompt string) error {
	_, err := jq.client.Insert(ctx, DraftJobArgs{
		DocumentID: documentID,
		Prompt:     prompt,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to queue draft job: %w", err)
	}
	return nil
}
