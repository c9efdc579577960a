package api

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/useXR/quill/pkg/models"
)

// DocumentsRepo is the thin content-by-id persistence layer behind apply and
// undo. Full document/project CRUD lives elsewhere.
type DocumentsRepo struct {
	db *sql.DB
}

// NewDocumentsRepo creates a new documents repository
func NewDocumentsRepo(db *sql.DB) *DocumentsRepo {
	return &DocumentsRepo{db: db}
}

// Create inserts a new document.
func (r *DocumentsRepo) Create(ctx context.Context, title, content string) (*models.Document, error) {
	doc := &models.Document{
		ID:      uuid.NewString(),
		Title:   title,
		Content: content,
	}
	query := `
		INSERT INTO documents (id, title, content)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, doc.ID, doc.Title, doc.Content).
		Scan(&doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert document: %w", err)
	}
	return doc, nil
}

// Get returns one document by id.
func (r *DocumentsRepo) Get(ctx context.Context, documentID string) (*models.Document, error) {
	query := `
		SELECT id, title, content, created_at, updated_at
		FROM documents
		WHERE id = $1
	`
	doc := &models.Document{}
	err := r.db.QueryRowContext(ctx, query, documentID).Scan(
		&doc.ID, &doc.Title, &doc.Content, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", documentID, err)
	}
	return doc, nil
}

// UpdateContent replaces the document content. Implements
// undo.DocumentRestorer.
func (r *DocumentsRepo) UpdateContent(ctx context.Context, documentID, content string) error {
	query := `
		UPDATE documents
		SET content = $2, updated_at = $3
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, documentID, content, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update document %s: %w", documentID, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result for %s: %w", documentID, err)
	}
	if rows == 0 {
		return fmt.Errorf("document %s not found", documentID)
	}
	return nil
}
