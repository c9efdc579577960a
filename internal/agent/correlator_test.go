package agent

import (
	"encoding/json"
	"testing"
)

func TestCorrelatorPairsResultWithCall(t *testing.T) {
	c := NewCorrelator()

	c.Call("tu_1", "Read", json.RawMessage(`{"path":"doc.md"}`))
	if !c.Pending("tu_1") {
		t.Fatal("call must be pending until its result arrives")
	}

	out := c.Result("tu_1", json.RawMessage(`"file contents"`), false)
	if out.Call == nil {
		t.Fatal("expected the outcome to carry the matching call")
	}
	if out.Call.Name != "Read" {
		t.Fatalf("expected tool name Read, got %s", out.Call.Name)
	}
	if !out.OK {
		t.Fatal("expected OK for a non-error result")
	}
	if out.Content != "file contents" {
		t.Fatalf("unexpected content: %q", out.Content)
	}
	if c.Pending("tu_1") {
		t.Fatal("resolved call must be removed from the pending set")
	}
}

func TestCorrelatorDeliversOrphanedResult(t *testing.T) {
	c := NewCorrelator()

	out := c.Result("tu_unknown", json.RawMessage(`"data"`), false)
	if out.Call != nil {
		t.Fatal("expected nil call for an unmatched result")
	}
	if out.ToolUseID != "tu_unknown" {
		t.Fatalf("unexpected tool use id: %s", out.ToolUseID)
	}
}

func TestCorrelatorErrorResultClearsOK(t *testing.T) {
	c := NewCorrelator()

	c.Call("tu_2", "Bash", nil)
	out := c.Result("tu_2", json.RawMessage(`"command failed"`), true)
	if out.OK {
		t.Fatal("expected OK=false when is_error is set")
	}
}

func TestCorrelatorDuplicateCallReplacesPrevious(t *testing.T) {
	c := NewCorrelator()

	c.Call("tu_3", "Read", nil)
	c.Call("tu_3", "Grep", nil)
	out := c.Result("tu_3", nil, false)
	if out.Call == nil || out.Call.Name != "Grep" {
		t.Fatalf("expected the later call to win, got %+v", out.Call)
	}
}

func TestNormalizeToolContentShapes(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"plain string", `"hello"`, "hello"},
		{"segment array", `[{"type":"text","text":"one"},{"type":"text","text":"two"}]`, "one\ntwo"},
		{"object fallback", `{"exit_code":0}`, `{"exit_code":0}`},
		{"empty", ``, ""},
	}
	for _, tc := range cases {
		got := normalizeToolContent(json.RawMessage(tc.raw))
		if got != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}
