package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/useXR/quill/internal/agent"
)

// streamRequest models the incoming POST payload for agent streaming.
type streamRequest struct {
	Prompt string `json:"prompt"`
}

// streamEvent is one SSE frame payload sent to the UI.
type streamEvent struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	Thinking string          `json:"thinking,omitempty"`
	ID       string          `json:"id,omitempty"`
	Name     string          `json:"name,omitempty"`
	Input    json.RawMessage `json:"input,omitempty"`
	OK       *bool           `json:"ok,omitempty"`
	Content  string          `json:"content,omitempty"`
	Stats    *agent.Stats    `json:"stats,omitempty"`
}

// StreamAgent runs the agent against a document and relays decoded events to
// the client as Server-Sent Events. The stream ends with a [DONE] frame on
// success or an error frame on failure; client disconnect stops emission and
// kills the subprocess.
func (s *Server) StreamAgent(c echo.Context) error {
	documentID := c.Param("id")

	if !s.streamLimiter(c.RealIP()).Allow() {
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
	}

	var req streamRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "prompt is required"})
	}

	doc, err := s.docs.Get(c.Request().Context(), documentID)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "document not found"})
	}

	resp := c.Response()
	h := resp.Header()
	h.Set(echo.HeaderContentType, "text/event-stream")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)

	ctx := c.Request().Context()
	emit := func(v any) {
		if ctx.Err() != nil {
			return
		}
		payload, err := json.Marshal(v)
		if err != nil {
			log.Error().Err(err).Msg("failed to marshal stream event")
			return
		}
		fmt.Fprintf(resp, "data: %s\n\n", payload)
		resp.Flush()
	}

	callbacks := agent.Callbacks{
		OnText: func(delta string) {
			emit(streamEvent{Type: "text", Text: delta})
		},
		OnThinking: func(text string) {
			emit(streamEvent{Type: "thinking", Thinking: text})
		},
		OnToolCall: func(call agent.PendingToolCall) {
			emit(streamEvent{Type: "tool_call", ID: call.ID, Name: call.Name, Input: call.Input})
		},
		OnToolResult: func(outcome agent.ToolOutcome) {
			ok := outcome.OK
			ev := streamEvent{Type: "tool_result", ID: outcome.ToolUseID, OK: &ok, Content: outcome.Content}
			if outcome.Call != nil {
				ev.Name = outcome.Call.Name
			}
			emit(ev)
		},
		OnStats: func(stats agent.Stats) {
			st := stats
			emit(streamEvent{Type: "stats", Stats: &st})
		},
	}

	_, err = s.runner.Run(ctx, agent.EditingPrompt(req.Prompt, doc.Content), agent.RunOptions{
		SystemPrompt: s.cfg.Agent.SystemPrompt,
		AllowedTools: s.cfg.Agent.AllowedTools,
		Timeout:      s.cfg.AgentTimeout(),
		Callbacks:    callbacks,
	})
	if err != nil {
		log.Warn().Err(err).Str("document_id", documentID).Msg("agent stream failed")
		emit(map[string]string{"error": err.Error()})
		return nil
	}

	if ctx.Err() == nil {
		fmt.Fprint(resp, "data: [DONE]\n\n")
		resp.Flush()
	}
	return nil
}
