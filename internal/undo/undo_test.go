package undo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/useXR/quill/pkg/models"
)

type fakeSource struct {
	ops []*models.Operation
	err error
}

func (f *fakeSource) ListRecent(_ context.Context, _ string, _ int) ([]*models.Operation, error) {
	return f.ops, f.err
}

type fakeRestorer struct {
	documentID string
	content    string
	calls      int
	err        error
}

func (f *fakeRestorer) UpdateContent(_ context.Context, documentID, content string) error {
	f.calls++
	f.documentID = documentID
	f.content = content
	return f.err
}

func op(id, status, original string, age time.Duration) *models.Operation {
	return &models.Operation{
		ID:              id,
		DocumentID:      "doc-1",
		Status:          status,
		OriginalContent: original,
		CreatedAt:       time.Now().Add(-age),
	}
}

func TestUndoLatestSkipsNonUndoableOperations(t *testing.T) {
	source := &fakeSource{ops: []*models.Operation{
		op("op-3", models.OperationRejected, "v3", time.Minute),
		op("op-2", models.OperationPartial, "v2", 2*time.Minute),
		op("op-1", models.OperationAccepted, "v1", 3*time.Minute),
	}}
	restorer := &fakeRestorer{}
	c := NewController(source, restorer)

	restored, err := c.Undo(context.Background(), "doc-1", "")
	if err != nil {
		t.Fatalf("undo failed: %v", err)
	}
	if restored.OperationID != "op-2" {
		t.Fatalf("expected the most recent undoable operation op-2, got %s", restored.OperationID)
	}
	if restorer.content != "v2" {
		t.Fatalf("expected the pre-edit snapshot v2, got %q", restorer.content)
	}
	if restorer.documentID != "doc-1" {
		t.Fatalf("restored the wrong document: %s", restorer.documentID)
	}
}

func TestUndoExplicitTarget(t *testing.T) {
	source := &fakeSource{ops: []*models.Operation{
		op("op-2", models.OperationAccepted, "v2", time.Minute),
		op("op-1", models.OperationAccepted, "v1", 2*time.Minute),
	}}
	restorer := &fakeRestorer{}
	c := NewController(source, restorer)

	restored, err := c.Undo(context.Background(), "doc-1", "op-1")
	if err != nil {
		t.Fatalf("undo failed: %v", err)
	}
	if restored.OperationID != "op-1" {
		t.Fatalf("expected op-1, got %s", restored.OperationID)
	}
	if restored.Content != "v1" {
		t.Fatalf("unexpected restored content: %q", restored.Content)
	}
}

func TestUndoExplicitTargetMustBeUndoable(t *testing.T) {
	source := &fakeSource{ops: []*models.Operation{
		op("op-1", models.OperationRejected, "v1", time.Minute),
	}}
	restorer := &fakeRestorer{}
	c := NewController(source, restorer)

	_, err := c.Undo(context.Background(), "doc-1", "op-1")
	if !errors.Is(err, ErrNotUndoable) {
		t.Fatalf("expected ErrNotUndoable, got %v", err)
	}
	if restorer.calls != 0 {
		t.Fatal("an ineligible target must not touch the document")
	}
}

func TestUndoNothingEligible(t *testing.T) {
	source := &fakeSource{ops: []*models.Operation{
		op("op-1", models.OperationRejected, "v1", time.Minute),
		op("op-0", models.OperationPending, "v0", 2*time.Minute),
	}}
	c := NewController(source, &fakeRestorer{})

	_, err := c.Undo(context.Background(), "doc-1", "")
	if !errors.Is(err, ErrNothingToUndo) {
		t.Fatalf("expected ErrNothingToUndo, got %v", err)
	}
}

func TestUndoUnknownTarget(t *testing.T) {
	source := &fakeSource{ops: []*models.Operation{
		op("op-1", models.OperationAccepted, "v1", time.Minute),
	}}
	c := NewController(source, &fakeRestorer{})

	if _, err := c.Undo(context.Background(), "doc-1", "op-404"); err == nil {
		t.Fatal("expected an error for an unknown operation id")
	}
}

func TestUndoRestoreFailureSurfaces(t *testing.T) {
	source := &fakeSource{ops: []*models.Operation{
		op("op-1", models.OperationAccepted, "v1", time.Minute),
	}}
	restorer := &fakeRestorer{err: errors.New("db down")}
	c := NewController(source, restorer)

	if _, err := c.Undo(context.Background(), "doc-1", ""); err == nil {
		t.Fatal("expected the restore failure to surface")
	}
}

func TestCanUndo(t *testing.T) {
	source := &fakeSource{ops: []*models.Operation{
		op("op-1", models.OperationRejected, "v1", time.Minute),
	}}
	c := NewController(source, &fakeRestorer{})

	ok, err := c.CanUndo(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("can-undo failed: %v", err)
	}
	if ok {
		t.Fatal("rejected operations are not undoable")
	}

	source.ops = append([]*models.Operation{
		op("op-2", models.OperationAccepted, "v2", time.Second),
	}, source.ops...)
	ok, err = c.CanUndo(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("can-undo failed: %v", err)
	}
	if !ok {
		t.Fatal("expected an undoable operation")
	}
}
