package media

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hireloop/hireloop/internal/models"
	"github.com/hireloop/hireloop/internal/utils"
)

type fakeChunkStore struct {
	rows    []models.RecordingChunk
	failOn  int64
	deleted bool
}

func (f *fakeChunkStore) InsertChunk(ctx context.Context, c *models.RecordingChunk) error {
	if f.failOn != 0 && c.ChunkIndex == f.failOn {
		return errors.New("mongo down")
	}
	f.rows = append(f.rows, *c)
	return nil
}

func (f *fakeChunkStore) ListByAttempt(ctx context.Context, sessionID string, stageOrder int) ([]models.RecordingChunk, error) {
	return f.rows, nil
}

func (f *fakeChunkStore) DeleteByAttempt(ctx context.Context, sessionID string, stageOrder int) error {
	f.deleted = true
	f.rows = nil
	return nil
}

func newTestRecorder(store *fakeChunkStore) (*Recorder, *time.Time) {
	r := NewRecorder(store, "s1", 2, time.Hour)
	now := time.Unix(1000, 0)
	r.SetClock(func() time.Time { return now })
	return r, &now
}

func TestRecorderSealsChunksInOrder(t *testing.T) {
	store := &fakeChunkStore{}
	r, now := newTestRecorder(store)
	ctx := context.Background()

	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.AppendChunk(ctx, 1, []byte("aa")); err != nil {
		t.Fatalf("AppendChunk 1: %v", err)
	}
	if err := r.AppendChunk(ctx, 2, []byte("bb")); err != nil {
		t.Fatalf("AppendChunk 2: %v", err)
	}

	*now = now.Add(45 * time.Second)

	blob, err := r.Stop(ctx)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if string(blob.Data) != "aabb" {
		t.Errorf("sealed blob = %q, want %q", blob.Data, "aabb")
	}
	if blob.SizeBytes != 4 {
		t.Errorf("SizeBytes = %d, want 4", blob.SizeBytes)
	}
	if blob.Duration != 45*time.Second {
		t.Errorf("Duration = %v, want 45s", blob.Duration)
	}
}

func TestRecorderDuplicateChunkIgnored(t *testing.T) {
	store := &fakeChunkStore{}
	r, _ := newTestRecorder(store)
	ctx := context.Background()

	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	_ = r.AppendChunk(ctx, 1, []byte("aa"))
	// duplicate delivery of chunk 1
	if err := r.AppendChunk(ctx, 1, []byte("aa")); err != nil {
		t.Fatalf("duplicate chunk must be ignored, got %v", err)
	}
	if len(store.rows) != 1 {
		t.Errorf("stored %d chunks, want 1", len(store.rows))
	}
}

func TestRecorderAppendBeforeStart(t *testing.T) {
	r, _ := newTestRecorder(&fakeChunkStore{})
	err := r.AppendChunk(context.Background(), 1, []byte("aa"))
	if !utils.IsCode(err, utils.CodeFailedPrecondition) {
		t.Errorf("expected FAILED_PRECONDITION, got %v", err)
	}
}

func TestRecorderStoreFailureIsFatal(t *testing.T) {
	store := &fakeChunkStore{failOn: 2}
	r, _ := newTestRecorder(store)
	ctx := context.Background()

	_ = r.Start()
	_ = r.AppendChunk(ctx, 1, []byte("aa"))
	if err := r.AppendChunk(ctx, 2, []byte("bb")); err == nil {
		t.Fatal("expected error on store failure")
	}
	if r.State() != StateFailed {
		t.Errorf("state = %v, want failed", r.State())
	}
	if _, err := r.Stop(ctx); err == nil {
		t.Error("Stop after failure must error; attempt must restart")
	}
}

func TestRecorderPauseExcludedFromElapsed(t *testing.T) {
	store := &fakeChunkStore{}
	r, now := newTestRecorder(store)
	ctx := context.Background()

	_ = r.Start()
	_ = r.AppendChunk(ctx, 1, []byte("aa"))

	*now = now.Add(10 * time.Second)
	if err := r.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}

	*now = now.Add(30 * time.Second) // paused time, not recorded
	if err := r.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}

	*now = now.Add(5 * time.Second)
	if got := r.Elapsed(); got != 15*time.Second {
		t.Errorf("Elapsed = %v, want 15s", got)
	}
}

func TestRecorderStopWithoutChunks(t *testing.T) {
	r, _ := newTestRecorder(&fakeChunkStore{})
	_ = r.Start()
	if _, err := r.Stop(context.Background()); !utils.IsCode(err, utils.CodeFailedPrecondition) {
		t.Errorf("expected FAILED_PRECONDITION for empty recording, got %v", err)
	}
}

func TestRecorderAbortDiscardsChunks(t *testing.T) {
	store := &fakeChunkStore{}
	r, _ := newTestRecorder(store)
	ctx := context.Background()

	_ = r.Start()
	_ = r.AppendChunk(ctx, 1, []byte("aa"))
	if err := r.Abort(ctx); err != nil {
		t.Fatalf("Abort: %v", err)
	}
	if !store.deleted {
		t.Error("expected buffered chunks to be deleted")
	}
}
