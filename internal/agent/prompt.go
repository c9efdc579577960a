package agent

import (
	"strings"
	"unicode/utf8"
)

// EditingPrompt frames the user's request around the current document text.
func EditingPrompt(prompt, content string) string {
	var b strings.Builder
	b.WriteString("You are assisting with a document in an editor.\n\n")
	b.WriteString("Current document:\n<document>\n")
	b.WriteString(content)
	b.WriteString("\n</document>\n\nRequest: ")
	b.WriteString(prompt)
	return b.String()
}

// ProposalPrompt additionally instructs the agent to answer with a JSON
// object carrying the full revised document, the shape ExtractProposal
// parses.
func ProposalPrompt(prompt, content string) string {
	var b strings.Builder
	b.WriteString(EditingPrompt(prompt, content))
	b.WriteString("\n\nRespond with exactly one JSON object of the form ")
	b.WriteString(`{"content": "<the full revised document>", "summary": "<one-line summary of the edit>"}`)
	b.WriteString(" and nothing else.")
	return b.String()
}

// SummarizeInput trims a user prompt to a ledger-friendly one-liner.
func SummarizeInput(prompt string) string {
	prompt = strings.Join(strings.Fields(prompt), " ")
	const max = 200
	if utf8.RuneCountInString(prompt) <= max {
		return prompt
	}
	runes := []rune(prompt)
	return string(runes[:max-1]) + "…"
}
