package api

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/useXR/quill/pkg/models"
)

// OperationsRepo handles database operations for the AI operation ledger.
// It is the persistence side of review.OperationRecorder and the history
// source for undo.
type OperationsRepo struct {
	db *sql.DB
}

// NewOperationsRepo creates a new operations repository
func NewOperationsRepo(db *sql.DB) *OperationsRepo {
	return &OperationsRepo{db: db}
}

// Create inserts a pending operation for a freshly generated edit proposal.
// proposedContent is stored for asynchronously drafted proposals so a review
// can be opened from the ledger later; synchronous proposals pass nil.
func (r *OperationsRepo) Create(ctx context.Context, documentID, inputSummary, originalContent string, proposedContent *string) (*models.Operation, error) {
	op := &models.Operation{
		ID:              uuid.NewString(),
		DocumentID:      documentID,
		InputSummary:    inputSummary,
		Status:          models.OperationPending,
		OriginalContent: originalContent,
		ProposedContent: proposedContent,
	}

	query := `
		INSERT INTO ai_operations (id, document_id, input_summary, status, original_content, proposed_content)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		op.ID, op.DocumentID, op.InputSummary, op.Status, op.OriginalContent, op.ProposedContent,
	).Scan(&op.CreatedAt, &op.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert operation: %w", err)
	}
	return op, nil
}

// RecordOutcome sets the terminal status of an operation, with the final
// content when the review produced one. Implements review.OperationRecorder.
func (r *OperationsRepo) RecordOutcome(ctx context.Context, operationID, status string, outputContent *string) error {
	query := `
		UPDATE ai_operations
		SET status = $2, output_content = $3, updated_at = $4
		WHERE id = $1 AND status = 'pending'
	`
	res, err := r.db.ExecContext(ctx, query, operationID, status, outputContent, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update operation %s: %w", operationID, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result for %s: %w", operationID, err)
	}
	if rows == 0 {
		return fmt.Errorf("operation %s not found or already finalized", operationID)
	}
	return nil
}

// Get returns one operation by id.
func (r *OperationsRepo) Get(ctx context.Context, operationID string) (*models.Operation, error) {
	query := `
		SELECT id, document_id, input_summary, status, original_content, proposed_content, output_content, created_at, updated_at
		FROM ai_operations
		WHERE id = $1
	`
	op := &models.Operation{}
	err := r.db.QueryRowContext(ctx, query, operationID).Scan(
		&op.ID, &op.DocumentID, &op.InputSummary, &op.Status,
		&op.OriginalContent, &op.ProposedContent, &op.OutputContent, &op.CreatedAt, &op.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get operation %s: %w", operationID, err)
	}
	return op, nil
}

// ListRecent returns up to limit operations for a document, most recent
// first. Implements undo.OperationSource.
func (r *OperationsRepo) ListRecent(ctx context.Context, documentID string, limit int) ([]*models.Operation, error) {
	if limit <= 0 {
		limit = 20
	} else if limit > 100 {
		limit = 100
	}

	query := `
		SELECT id, document_id, input_summary, status, original_content, proposed_content, output_content, created_at, updated_at
		FROM ai_operations
		WHERE document_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, documentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list operations for %s: %w", documentID, err)
	}
	defer rows.Close()

	var ops []*models.Operation
	for rows.Next() {
		op := &models.Operation{}
		if err := rows.Scan(
			&op.ID, &op.DocumentID, &op.InputSummary, &op.Status,
			&op.OriginalContent, &op.ProposedContent, &op.OutputContent, &op.CreatedAt, &op.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate operations: %w", err)
	}
	return ops, nil
}
