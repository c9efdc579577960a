package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/useXR/quill/internal/agent"
	"github.com/useXR/quill/pkg/models"
)

func postJSON(s *Server, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestStreamAgentEmitsEventsAndDone(t *testing.T) {
	runner := &scriptedRunner{
		events: func(cb agent.Callbacks) {
			cb.OnText("Hello")
			cb.OnText(", world")
			cb.OnToolCall(agent.PendingToolCall{ID: "tu_1", Name: "Read"})
			cb.OnToolResult(agent.ToolOutcome{ToolUseID: "tu_1", OK: true, Content: "file body"})
			cb.OnStats(agent.Stats{DurationMs: 900})
		},
		result: &agent.RunResult{FullText: "Hello, world"},
	}
	docs := newMemDocs(&models.Document{ID: "doc-1", Content: "draft"})
	s := newTestServer(newMemOps(), docs, runner)

	rec := postJSON(s, "/api/v1/documents/doc-1/agent/stream", `{"prompt":"improve this"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type: %s", ct)
	}
	if cc := rec.Header().Get("Cache-Control"); !strings.Contains(cc, "no-cache") {
		t.Fatalf("unexpected cache control: %s", cc)
	}

	body := rec.Body.String()
	for _, frame := range []string{
		`data: {"type":"text","text":"Hello"}`,
		`data: {"type":"text","text":", world"}`,
		`"type":"tool_call"`,
		`"type":"tool_result"`,
		`"ok":true`,
		`"type":"stats"`,
		"data: [DONE]\n\n",
	} {
		if !strings.Contains(body, frame) {
			t.Fatalf("stream missing %q:\n%s", frame, body)
		}
	}
	if !strings.Contains(runner.gotPrompt, "improve this") {
		t.Fatalf("prompt not forwarded to the agent: %q", runner.gotPrompt)
	}
	if !strings.Contains(runner.gotPrompt, "draft") {
		t.Fatalf("document content not framed into the prompt: %q", runner.gotPrompt)
	}
}

func TestStreamAgentRunFailureEmitsErrorFrame(t *testing.T) {
	runner := &scriptedRunner{err: errors.New("agent run timed out after 2m0s")}
	docs := newMemDocs(&models.Document{ID: "doc-1", Content: "draft"})
	s := newTestServer(newMemOps(), docs, runner)

	rec := postJSON(s, "/api/v1/documents/doc-1/agent/stream", `{"prompt":"p"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("SSE failures surface in-stream, expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"error"`) || !strings.Contains(body, "timed out") {
		t.Fatalf("expected an error frame, got:\n%s", body)
	}
	if strings.Contains(body, "[DONE]") {
		t.Fatalf("a failed stream must not end with [DONE]:\n%s", body)
	}
}

func TestStreamAgentValidation(t *testing.T) {
	docs := newMemDocs(&models.Document{ID: "doc-1", Content: "draft"})
	s := newTestServer(newMemOps(), docs, &scriptedRunner{result: &agent.RunResult{}})

	if rec := postJSON(s, "/api/v1/documents/doc-1/agent/stream", `{"prompt":"  "}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("blank prompt: expected 400, got %d", rec.Code)
	}
	if rec := postJSON(s, "/api/v1/documents/missing/agent/stream", `{"prompt":"p"}`); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown document: expected 404, got %d", rec.Code)
	}
}

func TestStreamAgentRateLimit(t *testing.T) {
	docs := newMemDocs(&models.Document{ID: "doc-1", Content: "draft"})
	s := newTestServer(newMemOps(), docs, &scriptedRunner{result: &agent.RunResult{}})
	s.cfg.Stream.RequestsPerMinute = 1
	s.cfg.Stream.Burst = 1

	if rec := postJSON(s, "/api/v1/documents/doc-1/agent/stream", `{"prompt":"p"}`); rec.Code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", rec.Code)
	}
	if rec := postJSON(s, "/api/v1/documents/doc-1/agent/stream", `{"prompt":"p"}`); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request should be limited, got %d", rec.Code)
	}
}
