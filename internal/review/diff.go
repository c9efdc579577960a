package review

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// ChangeKind classifies one line of a proposed edit.
type ChangeKind string

const (
	ChangeAdd       ChangeKind = "add"
	ChangeRemove    ChangeKind = "remove"
	ChangeUnchanged ChangeKind = "unchanged"
)

// Change is one line-level entry of a proposed edit. The slice produced for
// a review cycle is ordered and never mutated afterward.
type Change struct {
	Kind       ChangeKind `json:"kind"`
	Value      string     `json:"value"`
	LineNumber int        `json:"lineNumber"`
}

// Modifiable reports whether the change needs an explicit accept/reject
// decision before apply.
func (c Change) Modifiable() bool {
	return c.Kind != ChangeUnchanged
}

// ComputeChanges diffs the original document against the agent's proposed
// revision, producing the ordered change list a review cycle operates on.
// Line numbers are 1-based: original-side numbers for removed and unchanged
// lines, revision-side numbers for added lines.
func ComputeChanges(original, modified string) []Change {
	a := splitLines(original)
	b := splitLines(modified)

	var changes []Change
	matcher := difflib.NewMatcher(a, b)
	for _, op := range matcher.GetOpCodes() {
		switch op.Tag {
		case 'e':
			for i := op.I1; i < op.I2; i++ {
				changes = append(changes, Change{Kind: ChangeUnchanged, Value: a[i], LineNumber: i + 1})
			}
		case 'd':
			for i := op.I1; i < op.I2; i++ {
				changes = append(changes, Change{Kind: ChangeRemove, Value: a[i], LineNumber: i + 1})
			}
		case 'i':
			for j := op.J1; j < op.J2; j++ {
				changes = append(changes, Change{Kind: ChangeAdd, Value: b[j], LineNumber: j + 1})
			}
		case 'r':
			for i := op.I1; i < op.I2; i++ {
				changes = append(changes, Change{Kind: ChangeRemove, Value: a[i], LineNumber: i + 1})
			}
			for j := op.J1; j < op.J2; j++ {
				changes = append(changes, Change{Kind: ChangeAdd, Value: b[j], LineNumber: j + 1})
			}
		}
	}
	return changes
}

func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	return strings.Split(content, "\n")
}
