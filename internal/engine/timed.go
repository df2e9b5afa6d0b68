package engine

import (
	"strings"
	"sync"

	"github.com/hireloop/hireloop/internal/models"
	"github.com/hireloop/hireloop/internal/stage"
	"github.com/hireloop/hireloop/internal/utils"
)

// Phase of one timed Q&A attempt.
type Phase int

const (
	PhaseNotStarted Phase = iota
	PhaseGenerating
	PhaseActive
	PhaseEvaluating
	PhaseCompleted
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not_started"
	case PhaseGenerating:
		return "generating"
	case PhaseActive:
		return "active"
	case PhaseEvaluating:
		return "evaluating"
	case PhaseCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// TimedAttempt is the per-attempt state machine of a timed-assessment
// stage: NotStarted -> Generating -> Active(question, remaining) ->
// Evaluating -> Completed. Question transitions happen either by manual
// advance with a non-empty answer or by the countdown reaching zero, in
// which case the current draft (possibly empty) is captured as the
// answer; a timeout is a valid, scored submission, not an error.
type TimedAttempt struct {
	mu sync.Mutex

	def       stage.Definition
	phase     Phase
	questions []models.Question
	answers   []models.Answer
	idx       int
	remaining int
	draft     string
}

func NewTimedAttempt(def stage.Definition) *TimedAttempt {
	return &TimedAttempt{def: def, phase: PhaseNotStarted}
}

// TimedSnapshot is the render state of an attempt.
type TimedSnapshot struct {
	Phase            Phase            `json:"-"`
	PhaseLabel       string           `json:"phase"`
	QuestionIndex    int              `json:"question_index"`
	QuestionCount    int              `json:"question_count"`
	RemainingSeconds int              `json:"remaining_seconds"`
	Question         *models.Question `json:"question,omitempty"`
}

func (a *TimedAttempt) Phase() Phase {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.phase
}

// BeginGenerating marks the attempt as waiting on the question oracle.
func (a *TimedAttempt) BeginGenerating() error {
	const op = "TimedAttempt.BeginGenerating"

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.phase != PhaseNotStarted {
		return utils.E(utils.CodeFailedPrecondition, op, "attempt already "+a.phase.String(), nil)
	}
	a.phase = PhaseGenerating
	return nil
}

// FailGeneration returns a generating attempt to NotStarted so the next
// stage entry retries the question oracle from scratch.
func (a *TimedAttempt) FailGeneration() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase == PhaseGenerating {
		a.phase = PhaseNotStarted
	}
}

// Begin arms the first question's countdown with the generated questions.
func (a *TimedAttempt) Begin(questions []models.Question) error {
	const op = "TimedAttempt.Begin"

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.phase != PhaseGenerating {
		return utils.E(utils.CodeFailedPrecondition, op, "attempt is "+a.phase.String(), nil)
	}
	if len(questions) == 0 {
		return utils.E(utils.CodeInvalidArgument, op, "no questions", nil)
	}

	a.questions = questions
	a.answers = a.answers[:0]
	a.idx = 0
	a.remaining = a.def.TimeLimitSeconds
	a.draft = ""
	a.phase = PhaseActive
	return nil
}

// SetDraft stores the candidate's in-progress answer text; it is what gets
// captured when the countdown hits zero.
func (a *TimedAttempt) SetDraft(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase == PhaseActive {
		a.draft = text
	}
}

// Advance is the manual question transition; it requires a non-empty
// answer. Returns done=true once the last question has been answered.
func (a *TimedAttempt) Advance(answer string) (done bool, err error) {
	const op = "TimedAttempt.Advance"

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.phase != PhaseActive {
		return false, utils.E(utils.CodeFailedPrecondition, op, "attempt is "+a.phase.String(), nil)
	}
	if strings.TrimSpace(answer) == "" {
		return false, utils.E(utils.CodeInvalidArgument, op, "answer must not be empty; wait for the timer to advance instead", nil)
	}

	return a.recordAndAdvance(answer), nil
}

// Tick drives the countdown one second. At zero the current draft is
// captured (empty included) and the question force-advances. Ticks after
// the attempt left Active are no-ops, so a replayed tick is harmless.
func (a *TimedAttempt) Tick() (forced bool, done bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.phase != PhaseActive {
		return false, a.phase == PhaseEvaluating || a.phase == PhaseCompleted
	}

	a.remaining--
	if a.remaining > 0 {
		return false, false
	}
	return true, a.recordAndAdvance(a.draft)
}

// recordAndAdvance appends the answer for the current question and moves
// on. Caller holds the lock.
func (a *TimedAttempt) recordAndAdvance(answer string) (done bool) {
	a.answers = append(a.answers, models.Answer{
		QuestionID: a.questions[a.idx].ID,
		Text:       answer,
	})
	a.draft = ""
	a.idx++

	if a.idx >= len(a.questions) {
		a.phase = PhaseEvaluating
		return true
	}
	a.remaining = a.def.TimeLimitSeconds
	return false
}

// Answers returns the submitted answer list; valid once the attempt
// reached Evaluating.
func (a *TimedAttempt) Answers() []models.Answer {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.Answer, len(a.answers))
	copy(out, a.answers)
	return out
}

// Questions returns the generated question list for this attempt.
func (a *TimedAttempt) Questions() []models.Question {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.Question, len(a.questions))
	copy(out, a.questions)
	return out
}

// MarkCompleted finalizes the attempt after the result was persisted. A
// failed oracle call leaves the attempt in Evaluating for retry.
func (a *TimedAttempt) MarkCompleted() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase == PhaseEvaluating {
		a.phase = PhaseCompleted
	}
}

func (a *TimedAttempt) Snapshot() TimedSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := TimedSnapshot{
		Phase:            a.phase,
		PhaseLabel:       a.phase.String(),
		QuestionIndex:    a.idx,
		QuestionCount:    len(a.questions),
		RemainingSeconds: a.remaining,
	}
	if a.phase == PhaseActive && a.idx < len(a.questions) {
		q := a.questions[a.idx]
		snap.Question = &q
	}
	return snap
}
