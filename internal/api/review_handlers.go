package api

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/useXR/quill/internal/agent"
	"github.com/useXR/quill/internal/review"
	"github.com/useXR/quill/internal/undo"
	"github.com/useXR/quill/pkg/models"
)

// proposeRequest models the incoming POST payload for edit proposals.
type proposeRequest struct {
	Prompt string `json:"prompt"`
}

// proposeResponse carries the opened review cycle back to the UI.
type proposeResponse struct {
	OperationID string          `json:"operation_id"`
	Summary     string          `json:"summary"`
	Changes     []review.Change `json:"changes"`
}

// ProposeEdit runs the agent for a structured edit proposal, records the
// pending operation and opens a review cycle over the resulting changes.
func (s *Server) ProposeEdit(c echo.Context) error {
	documentID := c.Param("id")
	ctx := c.Request().Context()

	var req proposeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "prompt is required"})
	}

	doc, err := s.docs.Get(ctx, documentID)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "document not found"})
	}

	result, err := s.runner.Run(ctx, agent.ProposalPrompt(req.Prompt, doc.Content), agent.RunOptions{
		SystemPrompt: s.cfg.Agent.SystemPrompt,
		AllowedTools: s.cfg.Agent.AllowedTools,
		Timeout:      s.cfg.AgentTimeout(),
	})
	if err != nil {
		log.Warn().Err(err).Str("document_id", documentID).Msg("proposal run failed")
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}

	proposal, err := agent.ExtractProposal(result.FullText)
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	}

	op, err := s.ops.Create(ctx, documentID, agent.SummarizeInput(req.Prompt), doc.Content, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to record operation"})
	}

	changes := review.ComputeChanges(doc.Content, proposal.Content)
	s.sessions.For(documentID).SetChanges(changes, op.ID, doc.Content, proposal.Content)

	return c.JSON(http.StatusOK, proposeResponse{
		OperationID: op.ID,
		Summary:     proposal.Summary,
		Changes:     changes,
	})
}

// openReviewRequest targets a drafted operation whose proposal was produced
// asynchronously by the job queue.
type openReviewRequest struct {
	OperationID string `json:"operation_id"`
}

// OpenReview opens a review cycle from a pending drafted operation.
func (s *Server) OpenReview(c echo.Context) error {
	documentID := c.Param("id")
	ctx := c.Request().Context()

	var req openReviewRequest
	if err := c.Bind(&req); err != nil || req.OperationID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "operation_id is required"})
	}

	op, err := s.ops.Get(ctx, req.OperationID)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "operation not found"})
	}
	if op.DocumentID != documentID {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "operation belongs to another document"})
	}
	if op.Status != models.OperationPending || op.ProposedContent == nil {
		return c.JSON(http.StatusConflict, map[string]string{"error": "operation has no reviewable proposal"})
	}

	changes := review.ComputeChanges(op.OriginalContent, *op.ProposedContent)
	s.sessions.For(documentID).SetChanges(changes, op.ID, op.OriginalContent, *op.ProposedContent)

	return c.JSON(http.StatusOK, proposeResponse{
		OperationID: op.ID,
		Summary:     op.InputSummary,
		Changes:     changes,
	})
}

// reviewStateResponse is the JSON view of the review panel state.
type reviewStateResponse struct {
	IsOpen      bool            `json:"is_open"`
	IsApplying  bool            `json:"is_applying"`
	OperationID string          `json:"operation_id,omitempty"`
	Changes     []review.Change `json:"changes"`
	Accepted    []int           `json:"accepted"`
	Rejected    []int           `json:"rejected"`
	DecidedAll  bool            `json:"decided_all"`
}

// GetReviewState returns the current review panel state for a document.
func (s *Server) GetReviewState(c echo.Context) error {
	state := s.sessions.For(c.Param("id")).State()
	return c.JSON(http.StatusOK, reviewStateResponse{
		IsOpen:      state.IsOpen,
		IsApplying:  state.IsApplying,
		OperationID: state.OperationID,
		Changes:     state.Changes,
		Accepted:    sortedIndexes(state.Accepted),
		Rejected:    sortedIndexes(state.Rejected),
		DecidedAll:  state.DecidedAll(),
	})
}

// decisionRequest targets one change index.
type decisionRequest struct {
	Index int `json:"index"`
}

// AcceptChange marks one change as accepted.
func (s *Server) AcceptChange(c echo.Context) error {
	return s.decide(c, func(r *review.Reconciler, i int) error { return r.Accept(i) })
}

// RejectChange marks one change as rejected.
func (s *Server) RejectChange(c echo.Context) error {
	return s.decide(c, func(r *review.Reconciler, i int) error { return r.Reject(i) })
}

func (s *Server) decide(c echo.Context, apply func(*review.Reconciler, int) error) error {
	var req decisionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := apply(s.sessions.For(c.Param("id")), req.Index); err != nil {
		return reviewError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// AcceptAllChanges accepts every modifiable change.
func (s *Server) AcceptAllChanges(c echo.Context) error {
	if err := s.sessions.For(c.Param("id")).AcceptAll(); err != nil {
		return reviewError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// RejectAllChanges rejects everything, reports the rejected outcome and
// closes the review.
func (s *Server) RejectAllChanges(c echo.Context) error {
	if err := s.sessions.For(c.Param("id")).RejectAll(c.Request().Context()); err != nil {
		return reviewError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "rejected"})
}

// ApplyReview commits the decided review, persists the final content and
// reports the outcome.
func (s *Server) ApplyReview(c echo.Context) error {
	documentID := c.Param("id")
	ctx := c.Request().Context()

	content, status, err := s.sessions.For(documentID).Apply(ctx)
	if err != nil {
		return reviewError(c, err)
	}

	if err := s.docs.UpdateContent(ctx, documentID, content); err != nil {
		log.Error().Err(err).Str("document_id", documentID).Msg("failed to persist applied content")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to persist content"})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status":  status,
		"content": content,
	})
}

// CloseReview abandons the open review with reject-all ledger semantics.
func (s *Server) CloseReview(c echo.Context) error {
	if err := s.sessions.For(c.Param("id")).Close(c.Request().Context()); err != nil {
		return reviewError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "closed"})
}

// updateOperationRequest models the ledger update-by-id payload.
type updateOperationRequest struct {
	Status        string  `json:"status"`
	OutputContent *string `json:"output_content,omitempty"`
}

// UpdateOperation finalizes an operation's status directly, the external
// ledger surface from the review panel's point of view.
func (s *Server) UpdateOperation(c echo.Context) error {
	var req updateOperationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	switch req.Status {
	case models.OperationAccepted, models.OperationPartial, models.OperationRejected:
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid status"})
	}

	if err := s.ops.RecordOutcome(c.Request().Context(), c.Param("id"), req.Status, req.OutputContent); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// ListOperations returns the recent operations of a document, most recent
// first.
func (s *Server) ListOperations(c echo.Context) error {
	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid limit"})
		}
		if parsed > 100 {
			parsed = 100
		}
		limit = parsed
	}

	ops, err := s.ops.ListRecent(c.Request().Context(), c.Param("id"), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list operations"})
	}
	if ops == nil {
		ops = []*models.Operation{}
	}
	return c.JSON(http.StatusOK, ops)
}

// undoRequest optionally targets a specific operation.
type undoRequest struct {
	OperationID string `json:"operation_id,omitempty"`
}

// UndoOperation restores a document to the pre-edit snapshot of a prior
// operation.
func (s *Server) UndoOperation(c echo.Context) error {
	var req undoRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	restored, err := s.undo.Undo(c.Request().Context(), c.Param("id"), req.OperationID)
	switch {
	case errors.Is(err, undo.ErrNothingToUndo), errors.Is(err, undo.ErrNotUndoable):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, restored)
}

// reviewError maps review state-machine errors onto HTTP statuses.
func reviewError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, review.ErrNotReviewing):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, review.ErrUndecidedChanges), errors.Is(err, review.ErrApplyInProgress):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, review.ErrNotModifiable):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func sortedIndexes(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for i := range set {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}
