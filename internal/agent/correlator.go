package agent

import (
	"encoding/json"
	"strings"
)

// PendingToolCall is a tool invocation awaiting its result.
type PendingToolCall struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// ToolOutcome is a correlated (or orphaned) tool result.
type ToolOutcome struct {
	ToolUseID string
	// Call is the matching pending invocation, nil when the result arrived
	// without one. Correlation is advisory; orphaned results are still
	// delivered.
	Call    *PendingToolCall
	OK      bool
	Content string
}

// Correlator pairs tool_use blocks with their eventual tool_result by id.
// State is scoped to a single invocation and owned by the goroutine driving
// the stream; it is not safe for concurrent use.
type Correlator struct {
	pending map[string]PendingToolCall
}

// NewCorrelator returns an empty correlator.
func NewCorrelator() *Correlator {
	return &Correlator{pending: make(map[string]PendingToolCall)}
}

// Call registers a pending invocation. A second call with the same id
// replaces the first; at most one entry per id exists.
func (c *Correlator) Call(id, name string, input json.RawMessage) PendingToolCall {
	call := PendingToolCall{ID: id, Name: name, Input: input}
	c.pending[id] = call
	return call
}

// Result resolves a tool result against the pending map, removing the entry
// when present.
func (c *Correlator) Result(toolUseID string, content json.RawMessage, isError bool) ToolOutcome {
	out := ToolOutcome{
		ToolUseID: toolUseID,
		OK:        !isError,
		Content:   normalizeToolContent(content),
	}
	if call, found := c.pending[toolUseID]; found {
		delete(c.pending, toolUseID)
		out.Call = &call
	}
	return out
}

// Pending reports whether id still awaits a result.
func (c *Correlator) Pending(id string) bool {
	_, found := c.pending[id]
	return found
}

// normalizeToolContent flattens the wire shapes of tool_result content into
// one string: plain strings pass through, segment arrays are joined with
// newlines, anything else is rendered as its JSON text.
func normalizeToolContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var segments []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &segments); err == nil {
		parts := make([]string, 0, len(segments))
		for _, seg := range segments {
			parts = append(parts, seg.Text)
		}
		return strings.Join(parts, "\n")
	}

	return string(raw)
}
