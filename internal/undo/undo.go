// Package undo restores documents to the pre-edit snapshot of a prior agent
// operation, reading the same ledger the review reconciler writes to.
package undo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/useXR/quill/pkg/models"
)

// DefaultHistoryLimit bounds how far back the controller looks for an
// eligible operation.
const DefaultHistoryLimit = 20

var (
	// ErrNothingToUndo is returned when no accepted or partial operation
	// exists in the recent history.
	ErrNothingToUndo = errors.New("no undoable operation")
	// ErrNotUndoable is returned for an explicit target that never changed
	// the document.
	ErrNotUndoable = errors.New("operation is not undoable")
)

// OperationSource lists prior operations, most recent first. The ledger owns
// storage and retrieval.
type OperationSource interface {
	ListRecent(ctx context.Context, documentID string, limit int) ([]*models.Operation, error)
}

// DocumentRestorer writes restored content back to the document store.
type DocumentRestorer interface {
	UpdateContent(ctx context.Context, documentID, content string) error
}

// Restored describes a completed restore, surfaced to the UI so the user can
// confirm which operation was rolled back.
type Restored struct {
	OperationID  string    `json:"operation_id"`
	InputSummary string    `json:"input_summary"`
	CreatedAt    time.Time `json:"created_at"`
	Content      string    `json:"content"`
}

// Controller exposes undo over the operation ledger.
type Controller struct {
	ops   OperationSource
	docs  DocumentRestorer
	limit int
}

// NewController returns a controller reading at most DefaultHistoryLimit
// recent operations per document.
func NewController(ops OperationSource, docs DocumentRestorer) *Controller {
	return &Controller{ops: ops, docs: docs, limit: DefaultHistoryLimit}
}

// CanUndo reports whether the document has an eligible operation to roll
// back to.
func (c *Controller) CanUndo(ctx context.Context, documentID string) (bool, error) {
	op, err := c.latestUndoable(ctx, documentID)
	if err != nil {
		return false, err
	}
	return op != nil, nil
}

// Undo restores the document to the pre-edit snapshot of the target
// operation: the given id, or the most recent eligible operation when the id
// is empty. The restore itself is not recorded as a new operation, so there
// is no undo-of-undo chain.
func (c *Controller) Undo(ctx context.Context, documentID, operationID string) (*Restored, error) {
	var target *models.Operation
	if operationID == "" {
		op, err := c.latestUndoable(ctx, documentID)
		if err != nil {
			return nil, err
		}
		if op == nil {
			return nil, ErrNothingToUndo
		}
		target = op
	} else {
		op, err := c.findRecent(ctx, documentID, operationID)
		if err != nil {
			return nil, err
		}
		if !op.Undoable() {
			return nil, fmt.Errorf("%w: %s is %s", ErrNotUndoable, op.ID, op.Status)
		}
		target = op
	}

	if err := c.docs.UpdateContent(ctx, documentID, target.OriginalContent); err != nil {
		return nil, fmt.Errorf("restore document %s: %w", documentID, err)
	}

	return &Restored{
		OperationID:  target.ID,
		InputSummary: target.InputSummary,
		CreatedAt:    target.CreatedAt,
		Content:      target.OriginalContent,
	}, nil
}

func (c *Controller) latestUndoable(ctx context.Context, documentID string) (*models.Operation, error) {
	ops, err := c.ops.ListRecent(ctx, documentID, c.limit)
	if err != nil {
		return nil, fmt.Errorf("list operations for %s: %w", documentID, err)
	}
	for _, op := range ops {
		if op.Undoable() {
			return op, nil
		}
	}
	return nil, nil
}

func (c *Controller) findRecent(ctx context.Context, documentID, operationID string) (*models.Operation, error) {
	ops, err := c.ops.ListRecent(ctx, documentID, c.limit)
	if err != nil {
		return nil, fmt.Errorf("list operations for %s: %w", documentID, err)
	}
	for _, op := range ops {
		if op.ID == operationID {
			return op, nil
		}
	}
	return nil, fmt.Errorf("operation %s not found in recent history", operationID)
}
