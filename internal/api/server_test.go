package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/useXR/quill/internal/agent"
	"github.com/useXR/quill/internal/config"
	"github.com/useXR/quill/internal/review"
	"github.com/useXR/quill/internal/undo"
	"github.com/useXR/quill/pkg/models"
)

// memOps is an in-memory OperationStore for handler tests.
type memOps struct {
	mu        sync.Mutex
	ops       map[string]*models.Operation
	seq       int
	fail      error
	lastLimit int
}

func newMemOps() *memOps {
	return &memOps{ops: make(map[string]*models.Operation)}
}

func (m *memOps) Create(_ context.Context, documentID, inputSummary, originalContent string, proposedContent *string) (*models.Operation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	m.seq++
	op := &models.Operation{
		ID:              fmt.Sprintf("op-%d", m.seq),
		DocumentID:      documentID,
		InputSummary:    inputSummary,
		Status:          models.OperationPending,
		OriginalContent: originalContent,
		ProposedContent: proposedContent,
		CreatedAt:       time.Now().Add(time.Duration(m.seq) * time.Millisecond),
		UpdatedAt:       time.Now(),
	}
	m.ops[op.ID] = op
	return op, nil
}

func (m *memOps) RecordOutcome(_ context.Context, operationID, status string, outputContent *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	op, ok := m.ops[operationID]
	if !ok || op.Status != models.OperationPending {
		return fmt.Errorf("operation %s not found or already finalized", operationID)
	}
	op.Status = status
	op.OutputContent = outputContent
	op.UpdatedAt = time.Now()
	return nil
}

func (m *memOps) Get(_ context.Context, operationID string) (*models.Operation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	op, ok := m.ops[operationID]
	if !ok {
		return nil, fmt.Errorf("operation %s not found", operationID)
	}
	cp := *op
	return &cp, nil
}

func (m *memOps) ListRecent(_ context.Context, documentID string, limit int) ([]*models.Operation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit
	var out []*models.Operation
	for _, op := range m.ops {
		if op.DocumentID == documentID {
			cp := *op
			out = append(out, &cp)
		}
	}
	// newest first
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].CreatedAt.After(out[i].CreatedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// memDocs is an in-memory DocumentStore for handler tests.
type memDocs struct {
	mu   sync.Mutex
	docs map[string]*models.Document
}

func newMemDocs(docs ...*models.Document) *memDocs {
	m := &memDocs{docs: make(map[string]*models.Document)}
	for _, d := range docs {
		m.docs[d.ID] = d
	}
	return m
}

func (m *memDocs) Get(_ context.Context, documentID string) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[documentID]
	if !ok {
		return nil, fmt.Errorf("document %s not found", documentID)
	}
	cp := *doc
	return &cp, nil
}

func (m *memDocs) UpdateContent(_ context.Context, documentID, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[documentID]
	if !ok {
		return fmt.Errorf("document %s not found", documentID)
	}
	doc.Content = content
	doc.UpdatedAt = time.Now()
	return nil
}

// scriptedRunner replays callback events and returns a canned result.
type scriptedRunner struct {
	events func(cb agent.Callbacks)
	result *agent.RunResult
	err    error

	gotPrompt string
}

func (r *scriptedRunner) Run(_ context.Context, prompt string, opts agent.RunOptions) (*agent.RunResult, error) {
	r.gotPrompt = prompt
	if r.events != nil {
		r.events(opts.Callbacks)
	}
	if r.err != nil {
		return nil, r.err
	}
	return r.result, nil
}

func newTestServer(ops OperationStore, docs DocumentStore, runner AgentRunner) *Server {
	cfg := &config.Config{}
	cfg.Agent.TimeoutSeconds = 120
	cfg.Stream.RequestsPerMinute = 600
	cfg.Stream.Burst = 100

	s := NewServer(cfg, nil)
	s.ops = ops
	s.docs = docs
	s.runner = runner
	s.sessions = review.NewSessions(ops)
	s.undo = undo.NewController(ops, docs)
	return s
}
