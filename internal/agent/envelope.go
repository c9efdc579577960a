package agent

import "encoding/json"

// Envelope types emitted by the agent CLI in stream-json mode. Each stdout
// line is exactly one envelope.
const (
	EnvelopeInit      = "init"
	EnvelopeAssistant = "assistant"
	EnvelopeResult    = "result"
)

// Content block discriminators inside an assistant message.
const (
	BlockText       = "text"
	BlockThinking   = "thinking"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"
)

// Envelope is one parsed line of agent output.
type Envelope struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	Message   *MessageBody    `json:"message,omitempty"`
	DurationMs int64          `json:"duration_ms,omitempty"`
	Usage     *TokenUsage     `json:"usage,omitempty"`
	Raw       json.RawMessage `json:"-"`
}

// MessageBody carries the content blocks of an assistant envelope.
type MessageBody struct {
	Content []ContentBlock `json:"content"`
}

// ContentBlock is one entry of an assistant message. The Type field selects
// which of the remaining fields are meaningful.
type ContentBlock struct {
	Type string `json:"type"`

	// BlockText
	Text string `json:"text,omitempty"`

	// BlockThinking
	Thinking string `json:"thinking,omitempty"`

	// BlockToolUse
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// BlockToolResult
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

// TokenUsage reports token consumption from a result envelope.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Stats is the terminal summary of one agent run, surfaced through
// Callbacks.OnStats when a result envelope arrives.
type Stats struct {
	DurationMs   int64 `json:"duration_ms"`
	InputTokens  int   `json:"input_tokens"`
	OutputTokens int   `json:"output_tokens"`
}

// recognized reports whether the envelope matches a shape this package
// understands. Unrecognized envelopes are dropped by the parser.
func (e *Envelope) recognized() bool {
	switch e.Type {
	case EnvelopeInit, EnvelopeResult:
		return true
	case EnvelopeAssistant:
		return e.Message != nil
	default:
		return false
	}
}
