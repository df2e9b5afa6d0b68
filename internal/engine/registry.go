package engine

import (
	"fmt"
	"sync"

	"github.com/hireloop/hireloop/internal/models"
)

// PendingEvaluation is the frozen input of an oracle call that has not
// produced a persisted result yet. It survives a failed evaluation so the
// candidate can retry completion without redoing the stage.
type PendingEvaluation struct {
	SessionID       string
	StageOrder      int
	Questions       []models.Question
	Answers         []models.Answer
	RecordingRef    *string
	DurationSeconds int
}

// Registry holds the in-memory attempt state machines, keyed by session
// and stage. Attempts never outlive the process; a restart simply means
// the candidate re-enters the stage.
type Registry struct {
	mu      sync.Mutex
	timed   map[string]*TimedAttempt
	demos   map[string]*DemoAttempt
	pending map[string]*PendingEvaluation
}

func NewRegistry() *Registry {
	return &Registry{
		timed:   make(map[string]*TimedAttempt),
		demos:   make(map[string]*DemoAttempt),
		pending: make(map[string]*PendingEvaluation),
	}
}

func attemptKey(sessionID string, stageOrder int) string {
	return fmt.Sprintf("%s:%d", sessionID, stageOrder)
}

// Timed returns the timed attempt for the stage, creating it with mk on
// first access.
func (r *Registry) Timed(sessionID string, stageOrder int, mk func() *TimedAttempt) *TimedAttempt {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := attemptKey(sessionID, stageOrder)
	if a, ok := r.timed[key]; ok {
		return a
	}
	a := mk()
	r.timed[key] = a
	return a
}

// LookupTimed returns an existing timed attempt without creating one.
func (r *Registry) LookupTimed(sessionID string, stageOrder int) (*TimedAttempt, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.timed[attemptKey(sessionID, stageOrder)]
	return a, ok
}

// Demo returns the live-demo attempt for the stage, creating it with mk on
// first access.
func (r *Registry) Demo(sessionID string, stageOrder int, mk func() *DemoAttempt) *DemoAttempt {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := attemptKey(sessionID, stageOrder)
	if a, ok := r.demos[key]; ok {
		return a
	}
	a := mk()
	r.demos[key] = a
	return a
}

// SetPending stores the oracle input for a retryable evaluation.
func (r *Registry) SetPending(p *PendingEvaluation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[attemptKey(p.SessionID, p.StageOrder)] = p
}

// Pending returns the stored oracle input, if any.
func (r *Registry) Pending(sessionID string, stageOrder int) (*PendingEvaluation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pending[attemptKey(sessionID, stageOrder)]
	return p, ok
}

// Drop clears all attempt state for one stage, called once its result is
// persisted.
func (r *Registry) Drop(sessionID string, stageOrder int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := attemptKey(sessionID, stageOrder)
	delete(r.timed, key)
	delete(r.demos, key)
	delete(r.pending, key)
}
