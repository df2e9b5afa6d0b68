package media

import (
	"bytes"
	"context"
	"sync"
	"time"

	mongorepo "github.com/hireloop/hireloop/internal/repositories/mongo"

	"github.com/hireloop/hireloop/internal/models"
	"github.com/hireloop/hireloop/internal/utils"
)

// State of one recording attempt.
type State int

const (
	StateIdle State = iota
	StateRecording
	StatePaused
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Blob is the sealed recording produced by Stop.
type Blob struct {
	Data      []byte
	SizeBytes int
	Duration  time.Duration
}

// Recorder accumulates uploaded media chunks for one stage attempt and
// seals them into a single blob on stop. Chunk writes land in the Mongo
// buffer so an interrupted attempt leaves nothing to clean up by hand
// (the TTL index reaps orphans).
type Recorder struct {
	chunks     mongorepo.ChunkRepository
	sessionID  string
	stageOrder int
	ttl        time.Duration

	mu          sync.Mutex
	state       State
	lastIndex   int64
	totalBytes  int64
	resumedAt   time.Time
	accumulated time.Duration

	now func() time.Time
}

func NewRecorder(chunks mongorepo.ChunkRepository, sessionID string, stageOrder int, ttl time.Duration) *Recorder {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &Recorder{
		chunks:     chunks,
		sessionID:  sessionID,
		stageOrder: stageOrder,
		ttl:        ttl,
		state:      StateIdle,
		now:        time.Now,
	}
}

// SetClock injects a clock for tests.
func (r *Recorder) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Recorder) Start() error {
	const op = "Recorder.Start"

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateIdle {
		return utils.E(utils.CodeFailedPrecondition, op, "recording already started", nil)
	}
	r.state = StateRecording
	r.resumedAt = r.now()
	return nil
}

// AppendChunk stores one media chunk. A chunk index at or below the last
// accepted index is a duplicate delivery and is ignored, so retried
// websocket frames stay idempotent.
func (r *Recorder) AppendChunk(ctx context.Context, index int64, data []byte) error {
	const op = "Recorder.AppendChunk"

	r.mu.Lock()
	if r.state != StateRecording {
		state := r.state
		r.mu.Unlock()
		return utils.E(utils.CodeFailedPrecondition, op, "recorder is "+state.String(), nil)
	}
	if index <= r.lastIndex {
		r.mu.Unlock()
		return nil
	}
	if len(data) == 0 {
		r.mu.Unlock()
		return utils.E(utils.CodeInvalidArgument, op, "empty chunk", nil)
	}
	r.lastIndex = index
	r.totalBytes += int64(len(data))
	ttl := r.ttl
	now := r.now()
	r.mu.Unlock()

	err := r.chunks.InsertChunk(ctx, &models.RecordingChunk{
		SessionID:  r.sessionID,
		StageOrder: r.stageOrder,
		ChunkIndex: index,
		Data:       data,
		Timestamp:  now,
		ExpiresAt:  now.Add(ttl),
	})
	if err != nil {
		// A lost chunk corrupts the sealed blob; the attempt must restart.
		r.mu.Lock()
		r.state = StateFailed
		r.mu.Unlock()
		return utils.E(utils.CodeInternal, op, "failed to store chunk", err)
	}
	return nil
}

func (r *Recorder) Pause() error {
	const op = "Recorder.Pause"

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateRecording {
		return utils.E(utils.CodeFailedPrecondition, op, "recorder is "+r.state.String(), nil)
	}
	r.accumulated += r.now().Sub(r.resumedAt)
	r.state = StatePaused
	return nil
}

func (r *Recorder) Resume() error {
	const op = "Recorder.Resume"

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StatePaused {
		return utils.E(utils.CodeFailedPrecondition, op, "recorder is "+r.state.String(), nil)
	}
	r.resumedAt = r.now()
	r.state = StateRecording
	return nil
}

// Elapsed is the recorded duration, excluding paused time.
func (r *Recorder) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case StateRecording:
		return r.accumulated + r.now().Sub(r.resumedAt)
	default:
		return r.accumulated
	}
}

// Stop seals the recording: reads back all chunks in order and concatenates
// them into one blob. A recording with no chunks is a failed attempt.
func (r *Recorder) Stop(ctx context.Context) (*Blob, error) {
	const op = "Recorder.Stop"

	r.mu.Lock()
	switch r.state {
	case StateRecording:
		r.accumulated += r.now().Sub(r.resumedAt)
	case StatePaused:
	default:
		state := r.state
		r.mu.Unlock()
		return nil, utils.E(utils.CodeFailedPrecondition, op, "recorder is "+state.String(), nil)
	}
	r.state = StateStopped
	duration := r.accumulated
	r.mu.Unlock()

	rows, err := r.chunks.ListByAttempt(ctx, r.sessionID, r.stageOrder)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to read back chunks", err)
	}
	if len(rows) == 0 {
		return nil, utils.E(utils.CodeFailedPrecondition, op, "no media was captured", nil)
	}

	var buf bytes.Buffer
	for _, c := range rows {
		buf.Write(c.Data)
	}

	return &Blob{
		Data:      buf.Bytes(),
		SizeBytes: buf.Len(),
		Duration:  duration,
	}, nil
}

// Abort discards the attempt's buffered chunks (exit/navigation away). The
// TTL index would reap them anyway; this just frees them early.
func (r *Recorder) Abort(ctx context.Context) error {
	r.mu.Lock()
	r.state = StateStopped
	r.mu.Unlock()
	return r.chunks.DeleteByAttempt(ctx, r.sessionID, r.stageOrder)
}
