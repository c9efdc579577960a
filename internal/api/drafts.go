package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// draftRequest models the incoming POST payload for async drafts.
type draftRequest struct {
	Prompt string `json:"prompt"`
}

// EnqueueDraft queues an asynchronous draft job for a document. The worker
// records a pending operation whose proposal is reviewed later via
// /review/open.
func (s *Server) EnqueueDraft(c echo.Context) error {
	documentID := c.Param("id")
	ctx := c.Request().Context()

	if s.queue == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "draft queue not available"})
	}

	var req draftRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "prompt is required"})
	}

	if _, err := s.docs.Get(ctx, documentID); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "document not found"})
	}

	if err := s.queue.EnqueueDraft(ctx, documentID, req.Prompt); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to queue draft"})
	}
	return c.JSON(http.StatusAccepted, map[string]string{"status": "queued"})
}
