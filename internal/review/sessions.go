package review

import "sync"

// Sessions hands out one reconciler per document. Review state is owned by a
// single UI session; nothing is shared between documents.
type Sessions struct {
	mu       sync.Mutex
	byDoc    map[string]*Reconciler
	recorder OperationRecorder
}

// NewSessions returns an empty registry whose reconcilers report to recorder.
func NewSessions(recorder OperationRecorder) *Sessions {
	return &Sessions{byDoc: make(map[string]*Reconciler), recorder: recorder}
}

// For returns the reconciler for a document, creating it on first use.
func (s *Sessions) For(documentID string) *Reconciler {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byDoc[documentID]
	if !ok {
		r = NewReconciler(s.recorder)
		s.byDoc[documentID] = r
	}
	return r
}

// Drop forgets a document's reconciler. Callers close the review first.
func (s *Sessions) Drop(documentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byDoc, documentID)
}
