package models

import (
	"time"
)

// Operation statuses. An operation is created as pending when an agent edit
// proposal is generated and transitions exactly once when the review cycle
// ends; it is immutable afterward.
const (
	OperationPending  = "pending"
	OperationAccepted = "accepted"
	OperationPartial  = "partial"
	OperationRejected = "rejected"
)

// Operation is one ledger record of an agent-proposed edit and its review
// outcome. OriginalContent is the pre-edit document snapshot captured when
// the review opened; undo restores it.
type Operation struct {
	ID              string    `json:"id" db:"id"`
	DocumentID      string    `json:"document_id" db:"document_id"`
	InputSummary    string    `json:"input_summary" db:"input_summary"`
	Status          string    `json:"status" db:"status"`
	OriginalContent string    `json:"original_content,omitempty" db:"original_content"`
	ProposedContent *string   `json:"proposed_content,omitempty" db:"proposed_content"`
	OutputContent   *string   `json:"output_content,omitempty" db:"output_content"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// Undoable reports whether the operation changed the document and can be the
// target of a restore.
func (o *Operation) Undoable() bool {
	return o.Status == OperationAccepted || o.Status == OperationPartial
}

// Document is the editable unit the agent drafts against. Storage is a thin
// external layer; only content persistence matters here.
type Document struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
