package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// Proposal is a structured edit suggestion extracted from an agent run. The
// drafting prompt asks the agent to answer with a JSON object holding the
// full revised document and a one-line summary.
type Proposal struct {
	Content string `json:"content"`
	Summary string `json:"summary"`
}

// ErrNoProposal is returned when the agent output contains no usable JSON
// object.
var ErrNoProposal = errors.New("agent output contains no proposal object")

// ExtractProposal parses the agent's final text into a Proposal. Model output
// is frequently sloppy JSON (markdown fences, trailing commas, commentary
// around the object), so parsing falls back to jsonrepair before giving up.
func ExtractProposal(fullText string) (*Proposal, error) {
	raw := extractJSONObject(fullText)
	if raw == "" {
		return nil, ErrNoProposal
	}

	var p Proposal
	if err := json.Unmarshal([]byte(raw), &p); err == nil && p.Content != "" {
		return &p, nil
	}

	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return nil, fmt.Errorf("repair proposal JSON: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), &p); err != nil {
		return nil, fmt.Errorf("parse repaired proposal JSON: %w", err)
	}
	if p.Content == "" {
		return nil, ErrNoProposal
	}
	return &p, nil
}

// extractJSONObject strips markdown fences and surrounding prose, returning
// the outermost {...} span of the text.
func extractJSONObject(text string) string {
	text = strings.TrimSpace(text)
	if fenced := strings.Index(text, "```"); fenced >= 0 {
		rest := text[fenced+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end >= 0 {
			text = rest[:end]
		} else {
			text = rest
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}
