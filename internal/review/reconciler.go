// Package review holds the accept/reject state machine for agent-proposed
// document edits. All mutation goes through reducer-style transitions so an
// action is never observed half-applied.
package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Operation statuses reported to the ledger when a review cycle ends.
const (
	StatusAccepted = "accepted"
	StatusPartial  = "partial"
	StatusRejected = "rejected"
)

var (
	// ErrNotReviewing is returned by decision actions when no review is open.
	ErrNotReviewing = errors.New("no review in progress")
	// ErrApplyInProgress is returned when a transition races an ongoing apply.
	ErrApplyInProgress = errors.New("apply already in progress")
	// ErrUndecidedChanges refuses APPLY while any modifiable change lacks a
	// decision. Partial applies are never performed.
	ErrUndecidedChanges = errors.New("every change must be accepted or rejected before apply")
	// ErrNotModifiable refuses decisions on unchanged or out-of-range indexes.
	ErrNotModifiable = errors.New("change index is not modifiable")
)

// OperationRecorder is the external ledger consumed by the reconciler. The
// outcome of a review cycle is reported exactly once per operation.
type OperationRecorder interface {
	RecordOutcome(ctx context.Context, operationID, status string, outputContent *string) error
}

// State is the full review-panel state. Zero value is the closed state.
type State struct {
	Changes         []Change
	Accepted        map[int]struct{}
	Rejected        map[int]struct{}
	OperationID     string
	OriginalContent string
	ModifiedContent string
	IsOpen          bool
	IsApplying      bool
}

// DecidedAll reports whether every modifiable change carries a decision.
func (s State) DecidedAll() bool {
	for i, c := range s.Changes {
		if !c.Modifiable() {
			continue
		}
		if _, ok := s.Accepted[i]; ok {
			continue
		}
		if _, ok := s.Rejected[i]; ok {
			continue
		}
		return false
	}
	return true
}

type actionKind int

const (
	actionSetChanges actionKind = iota
	actionAccept
	actionReject
	actionAcceptAll
	actionRejectAll
	actionBeginApply
	actionAbortApply
	actionReset
)

type action struct {
	kind        actionKind
	index       int
	changes     []Change
	operationID string
	original    string
	modified    string
}

// transition is the pure reducer: it never mutates the input state and
// returns either the successor state or an error leaving the state unchanged.
func transition(s State, a action) (State, error) {
	switch a.kind {
	case actionSetChanges:
		return State{
			Changes:         a.changes,
			Accepted:        map[int]struct{}{},
			Rejected:        map[int]struct{}{},
			OperationID:     a.operationID,
			OriginalContent: a.original,
			ModifiedContent: a.modified,
			IsOpen:          true,
		}, nil

	case actionAccept, actionReject:
		if !s.IsOpen {
			return s, ErrNotReviewing
		}
		if s.IsApplying {
			return s, ErrApplyInProgress
		}
		if a.index < 0 || a.index >= len(s.Changes) || !s.Changes[a.index].Modifiable() {
			return s, fmt.Errorf("%w: index %d", ErrNotModifiable, a.index)
		}
		next := s.cloneSets()
		if a.kind == actionAccept {
			next.Accepted[a.index] = struct{}{}
			delete(next.Rejected, a.index)
		} else {
			next.Rejected[a.index] = struct{}{}
			delete(next.Accepted, a.index)
		}
		return next, nil

	case actionAcceptAll, actionRejectAll:
		if !s.IsOpen {
			return s, ErrNotReviewing
		}
		if s.IsApplying {
			return s, ErrApplyInProgress
		}
		next := s.cloneSets()
		next.Accepted = map[int]struct{}{}
		next.Rejected = map[int]struct{}{}
		for i, c := range s.Changes {
			if !c.Modifiable() {
				continue
			}
			if a.kind == actionAcceptAll {
				next.Accepted[i] = struct{}{}
			} else {
				next.Rejected[i] = struct{}{}
			}
		}
		return next, nil

	case actionBeginApply:
		if !s.IsOpen {
			return s, ErrNotReviewing
		}
		if s.IsApplying {
			return s, ErrApplyInProgress
		}
		if !s.DecidedAll() {
			return s, ErrUndecidedChanges
		}
		next := s.cloneSets()
		next.IsApplying = true
		return next, nil

	case actionAbortApply:
		next := s.cloneSets()
		next.IsApplying = false
		return next, nil

	case actionReset:
		return State{}, nil

	default:
		return s, fmt.Errorf("unknown review action %d", a.kind)
	}
}

func (s State) cloneSets() State {
	next := s
	next.Accepted = make(map[int]struct{}, len(s.Accepted))
	for i := range s.Accepted {
		next.Accepted[i] = struct{}{}
	}
	next.Rejected = make(map[int]struct{}, len(s.Rejected))
	for i := range s.Rejected {
		next.Rejected[i] = struct{}{}
	}
	return next
}

// finalContent walks the changes in order: unchanged lines are always kept,
// added lines are kept when accepted, removed lines are kept unless their
// removal was accepted.
func finalContent(s State) string {
	if len(s.Changes) == 0 {
		return s.OriginalContent
	}
	var lines []string
	for i, c := range s.Changes {
		_, accepted := s.Accepted[i]
		switch c.Kind {
		case ChangeUnchanged:
			lines = append(lines, c.Value)
		case ChangeAdd:
			if accepted {
				lines = append(lines, c.Value)
			}
		case ChangeRemove:
			if !accepted {
				lines = append(lines, c.Value)
			}
		}
	}
	return strings.Join(lines, "\n")
}

func finalStatus(s State) string {
	for i, c := range s.Changes {
		if !c.Modifiable() {
			continue
		}
		if _, ok := s.Accepted[i]; !ok {
			return StatusPartial
		}
	}
	return StatusAccepted
}

// Reconciler owns the review state for one document in one UI session and
// serializes all transitions.
type Reconciler struct {
	mu       sync.Mutex
	state    State
	recorder OperationRecorder
}

// NewReconciler returns a closed reconciler reporting outcomes to recorder.
func NewReconciler(recorder OperationRecorder) *Reconciler {
	return &Reconciler{recorder: recorder}
}

// State returns a snapshot safe for the caller to read.
func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.cloneSets()
}

// SetChanges opens a new review cycle, replacing all previous state.
func (r *Reconciler) SetChanges(changes []Change, operationID, original, modified string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state, _ = transition(r.state, action{
		kind:        actionSetChanges,
		changes:     changes,
		operationID: operationID,
		original:    original,
		modified:    modified,
	})
}

// Accept marks change i accepted, clearing any previous rejection.
func (r *Reconciler) Accept(i int) error {
	return r.step(action{kind: actionAccept, index: i})
}

// Reject marks change i rejected, clearing any previous acceptance.
func (r *Reconciler) Reject(i int) error {
	return r.step(action{kind: actionReject, index: i})
}

// AcceptAll accepts every modifiable change.
func (r *Reconciler) AcceptAll() error {
	return r.step(action{kind: actionAcceptAll})
}

func (r *Reconciler) step(a action) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	next, err := transition(r.state, a)
	if err != nil {
		return err
	}
	r.state = next
	return nil
}

// RejectAll rejects every modifiable change, reports the operation as
// rejected to the ledger, and closes the review.
func (r *Reconciler) RejectAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	next, err := transition(r.state, action{kind: actionRejectAll})
	if err != nil {
		return err
	}
	r.state = next
	return r.closeRejected(ctx)
}

// Close abandons an open review with reject-all semantics for the ledger,
// then fully resets. Closing an already-closed reconciler is a no-op.
func (r *Reconciler) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.state.IsOpen {
		return nil
	}
	return r.closeRejected(ctx)
}

// closeRejected reports the rejected outcome, then resets. A failed ledger
// write leaves the review open so the caller can retry. Caller holds mu.
func (r *Reconciler) closeRejected(ctx context.Context) error {
	opID := r.state.OperationID
	if opID != "" && r.recorder != nil {
		if err := r.recorder.RecordOutcome(ctx, opID, StatusRejected, nil); err != nil {
			return fmt.Errorf("record rejected outcome: %w", err)
		}
	}
	r.state, _ = transition(r.state, action{kind: actionReset})
	return nil
}

// Apply commits the decided review: computes the final content, reports the
// accepted or partial outcome with the content to the ledger, and resets to
// closed. It is refused while any modifiable change is undecided.
func (r *Reconciler) Apply(ctx context.Context) (content string, status string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, err := transition(r.state, action{kind: actionBeginApply})
	if err != nil {
		return "", "", err
	}
	r.state = next

	content = finalContent(r.state)
	status = finalStatus(r.state)
	opID := r.state.OperationID

	if r.recorder != nil && opID != "" {
		if err := r.recorder.RecordOutcome(ctx, opID, status, &content); err != nil {
			// Leave the review open so the user can retry.
			r.state, _ = transition(r.state, action{kind: actionAbortApply})
			return "", "", fmt.Errorf("record apply outcome: %w", err)
		}
	}

	r.state, _ = transition(r.state, action{kind: actionReset})
	return content, status, nil
}
