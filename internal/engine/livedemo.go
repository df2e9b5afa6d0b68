package engine

import (
	"fmt"
	"sync"

	"github.com/hireloop/hireloop/internal/stage"
	"github.com/hireloop/hireloop/internal/utils"
)

// DemoAttempt tracks one live teaching demo: elapsed time, the coaching
// schedule, and the minimum-duration gate. Media, broadcast and the voice
// channel are wired by the capture handler; this type only owns timing.
type DemoAttempt struct {
	mu sync.Mutex

	def      stage.Definition
	schedule *CoachingSchedule
	elapsed  int
	phase    Phase
}

func NewDemoAttempt(def stage.Definition, cues []Cue) *DemoAttempt {
	return &DemoAttempt{
		def:      def,
		schedule: NewCoachingSchedule(cues),
		phase:    PhaseNotStarted,
	}
}

// Begin starts the elapsed counter.
func (a *DemoAttempt) Begin() error {
	const op = "DemoAttempt.Begin"

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.phase != PhaseNotStarted {
		return utils.E(utils.CodeFailedPrecondition, op, "demo already "+a.phase.String(), nil)
	}
	a.phase = PhaseActive
	return nil
}

// Tick advances elapsed time by one second and returns the coaching cues
// whose thresholds were reached. Ticks outside the active phase are no-ops.
func (a *DemoAttempt) Tick() []Cue {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.phase != PhaseActive {
		return nil
	}
	a.elapsed++
	return a.schedule.Due(a.elapsed)
}

// Elapsed reports active seconds so far.
func (a *DemoAttempt) Elapsed() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.elapsed
}

// CanStop reports whether the demo has run long enough to be submitted.
// Once true it stays true.
func (a *DemoAttempt) CanStop() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.elapsed >= a.def.MinDurationSeconds
}

// Stop closes the demo for evaluation. A stop before the minimum duration
// is rejected and the attempt stays active.
func (a *DemoAttempt) Stop() error {
	const op = "DemoAttempt.Stop"

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.phase != PhaseActive {
		return utils.E(utils.CodeFailedPrecondition, op, "demo is "+a.phase.String(), nil)
	}
	if a.elapsed < a.def.MinDurationSeconds {
		msg := fmt.Sprintf("demo ran %ds, minimum is %ds", a.elapsed, a.def.MinDurationSeconds)
		return utils.E(utils.CodeFailedPrecondition, op, msg, nil)
	}
	a.phase = PhaseEvaluating
	return nil
}

// Abandon drops an active demo without evaluation, e.g. when the capture
// socket dies. Nothing was submitted, so the stage stays re-enterable.
func (a *DemoAttempt) Abandon() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase == PhaseActive {
		a.phase = PhaseNotStarted
		a.elapsed = 0
		a.schedule = NewCoachingSchedule(DefaultCoachingSchedule())
	}
}

func (a *DemoAttempt) Phase() Phase {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.phase
}

// MarkCompleted finalizes after the result was persisted; see
// TimedAttempt.MarkCompleted.
func (a *DemoAttempt) MarkCompleted() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase == PhaseEvaluating {
		a.phase = PhaseCompleted
	}
}

// PendingCues reports how many coaching cues have not fired yet.
func (a *DemoAttempt) PendingCues() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.schedule.Remaining()
}
