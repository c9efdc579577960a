package jobqueue

import (
	"testing"
	"time"

	"github.com/riverqueue/river"
)

func TestDefaultQueueConfig(t *testing.T) {
	cfg := DefaultQueueConfig()

	if cfg.MaxWorkers != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.MaxWorkers)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("expected 3 retries, got %d", cfg.MaxRetries)
	}
	if cfg.JobTimeout != 5*time.Minute {
		t.Errorf("expected 5m job timeout, got %s", cfg.JobTimeout)
	}
}

func TestRiverQueueConfig(t *testing.T) {
	cfg := &QueueConfig{MaxWorkers: 7}
	rc := cfg.RiverQueueConfig()

	q, ok := rc[river.QueueDefault]
	if !ok {
		t.Fatal("default queue missing")
	}
	if q.MaxWorkers != 7 {
		t.Errorf("expected 7 workers, got %d", q.MaxWorkers)
	}
}

func TestDraftJobArgsKind(t *testing.T) {
	args := DraftJobArgs{DocumentID: "doc-1", Prompt: "p"}
	if args.Kind() != "agent_draft" {
		t.Fatalf("unexpected job kind: %s", args.Kind())
	}
}
