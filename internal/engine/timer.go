package engine

import "time"

// Clock abstracts wall time so stage logic is testable with a frozen clock.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// SystemClock is the production clock.
func SystemClock() Clock { return realClock{} }

// Ticker is the one source of scheduled ticks in the pipeline. Every tick
// may drive both the question countdown and the coaching-cue dispatch;
// the two are computed from the same elapsed value and never interfere.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Scheduler hands out tickers. Handlers use the real one; tests drive the
// attempt state machines directly with synthetic tick sequences.
type Scheduler interface {
	Clock
	Tick(d time.Duration) Ticker
}

type realScheduler struct{ realClock }

type realTicker struct{ t *time.Ticker }

func (t realTicker) C() <-chan time.Time { return t.t.C }
func (t realTicker) Stop()               { t.t.Stop() }

func (realScheduler) Tick(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// SystemScheduler is the production scheduler.
func SystemScheduler() Scheduler { return realScheduler{} }
