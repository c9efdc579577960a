package agent

import "strings"

// DeltaTracker converts the agent's cumulative text snapshots into
// incremental deltas. The CLI repeats the full assistant text in every
// successive text block; the tracker remembers the last snapshot and emits
// only what is new.
//
// One tracker belongs to exactly one invocation; never share across runs.
type DeltaTracker struct {
	lastSeen string
}

// Next reports the delta for snapshot v. ok is false when v matches the
// previous snapshot and nothing should be emitted.
//
// A snapshot that is not a prefix-extension of the previous one (the stream
// reset or rewrote itself) re-emits the whole value rather than dropping
// text; downstream consumers may see duplicated content in that case, which
// beats losing it.
func (t *DeltaTracker) Next(v string) (delta string, ok bool) {
	defer func() { t.lastSeen = v }()

	switch {
	case len(v) > len(t.lastSeen) && strings.HasPrefix(v, t.lastSeen):
		return v[len(t.lastSeen):], true
	case v != t.lastSeen:
		return v, true
	default:
		return "", false
	}
}

// Current returns the last snapshot seen, which for a well-behaved stream is
// the full accumulated assistant text.
func (t *DeltaTracker) Current() string {
	return t.lastSeen
}
