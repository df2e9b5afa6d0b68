package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/hireloop/hireloop/internal/broadcast"
	"github.com/hireloop/hireloop/internal/engine"
	"github.com/hireloop/hireloop/internal/models"
	"github.com/hireloop/hireloop/internal/providers/notify"
	"github.com/hireloop/hireloop/internal/providers/oracle"
	"github.com/hireloop/hireloop/internal/stage"
	"github.com/hireloop/hireloop/internal/utils"
)

type wsSessions struct {
	mu   sync.Mutex
	rows map[string]*models.InterviewSession
}

func (f *wsSessions) Create(ctx context.Context, s *models.InterviewSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[s.ID] = s
	return nil
}

func (f *wsSessions) GetByID(ctx context.Context, id string) (*models.InterviewSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *wsSessions) ListByCandidate(ctx context.Context, candidateID string, limit int) ([]models.InterviewSession, error) {
	return nil, nil
}

func (f *wsSessions) AdvanceStage(ctx context.Context, id string, to int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.rows[id]; ok && s.CurrentStageOrder < to {
		s.CurrentStageOrder = to
	}
	return nil
}

func (f *wsSessions) MarkComplete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.rows[id]; ok {
		s.Completed = true
	}
	return nil
}

func (f *wsSessions) SetLiveView(ctx context.Context, id, tokenHash string, active bool, startedAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.rows[id]; ok {
		s.LiveViewTokenHash = tokenHash
		s.LiveViewActive = active
		s.StreamStartedAt = startedAt
	}
	return nil
}

type wsResults struct {
	mu   sync.Mutex
	rows map[string]*models.StageResult
}

func wsKey(sessionID string, order int) string { return fmt.Sprintf("%s:%d", sessionID, order) }

func (f *wsResults) Get(ctx context.Context, sessionID string, stageOrder int) (*models.StageResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[wsKey(sessionID, stageOrder)]
	if !ok {
		return nil, utils.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *wsResults) Upsert(ctx context.Context, r *models.StageResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *r
	f.rows[wsKey(r.SessionID, r.StageOrder)] = &cp
	return nil
}

func (f *wsResults) ListBySession(ctx context.Context, sessionID string) ([]models.StageResult, error) {
	return nil, nil
}

type wsBookings struct{}

func (wsBookings) Upsert(ctx context.Context, b *models.SlotBooking) error { return nil }
func (wsBookings) Get(ctx context.Context, sessionID string, stageOrder int) (*models.SlotBooking, error) {
	return nil, utils.ErrNotFound
}
func (wsBookings) Confirm(ctx context.Context, sessionID string, stageOrder int) error { return nil }

type wsProfiles struct{}

func (wsProfiles) GetByUserID(ctx context.Context, userID string) (*models.CandidateProfile, error) {
	return nil, utils.ErrNotFound
}
func (wsProfiles) Upsert(ctx context.Context, p *models.CandidateProfile) error { return nil }

type wsTranscripts struct{}

func (wsTranscripts) Append(ctx context.Context, m *models.TranscriptMessage) error { return nil }
func (wsTranscripts) ListByAttempt(ctx context.Context, sessionID string, stageOrder int) ([]models.TranscriptMessage, error) {
	return nil, nil
}
func (wsTranscripts) DeleteByAttempt(ctx context.Context, sessionID string, stageOrder int) error {
	return nil
}

type wsChunks struct {
	mu   sync.Mutex
	rows []models.RecordingChunk
}

func (f *wsChunks) InsertChunk(ctx context.Context, c *models.RecordingChunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, *c)
	return nil
}

func (f *wsChunks) ListByAttempt(ctx context.Context, sessionID string, stageOrder int) ([]models.RecordingChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.RecordingChunk
	for _, c := range f.rows {
		if c.SessionID == sessionID && c.StageOrder == stageOrder {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *wsChunks) DeleteByAttempt(ctx context.Context, sessionID string, stageOrder int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.rows[:0]
	for _, c := range f.rows {
		if c.SessionID != sessionID || c.StageOrder != stageOrder {
			kept = append(kept, c)
		}
	}
	f.rows = kept
	return nil
}

type wsArtifacts struct {
	mu      sync.Mutex
	uploads int
	lastRef string
}

func (f *wsArtifacts) Upload(ctx context.Context, sessionID string, stageOrder int, contentType string, r io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	f.lastRef = fmt.Sprintf("recordings/%s/%d.webm", sessionID, stageOrder)
	return f.lastRef, nil
}

func (f *wsArtifacts) PlaybackURL(ctx context.Context, ref string, ttl time.Duration) (string, error) {
	return "https://signed.example/" + ref, nil
}

func (f *wsArtifacts) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploads
}

type wsOracle struct {
	mu        sync.Mutex
	evalCalls int
	evalErr   error
	lastEval  oracle.EvalRequest
}

func (f *wsOracle) Evaluate(ctx context.Context, req oracle.EvalRequest) (*oracle.EvalResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evalCalls++
	f.lastEval = req
	if f.evalErr != nil {
		return nil, f.evalErr
	}
	return &oracle.EvalResult{Score: 80, Passed: true, Feedback: "well paced"}, nil
}

func (f *wsOracle) GenerateQuestions(ctx context.Context, req oracle.GenerateRequest) ([]models.Question, error) {
	qs := make([]models.Question, req.Count)
	for i := range qs {
		qs[i] = models.Question{
			ID:     fmt.Sprintf("q%d", i+1),
			Prompt: fmt.Sprintf("question %d", i+1),
			Type:   models.QuestionFreeText,
		}
	}
	return qs, nil
}

func (f *wsOracle) Close() error { return nil }

func (f *wsOracle) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evalErr = err
}

func (f *wsOracle) last() (int, oracle.EvalRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.evalCalls, f.lastEval
}

type wsNotifier struct{}

func (wsNotifier) Notify(ctx context.Context, n notify.Notification) error { return nil }

type wsPublisher struct{}

func (wsPublisher) Publish(ctx context.Context, channel string, payload []byte) error { return nil }

type wsAgent struct{}

func (wsAgent) Start(ctx context.Context) error { return nil }
func (wsAgent) Close() error { return nil }
func (wsAgent) StreamReply(ctx context.Context, systemPrompt string, history []models.TranscriptMessage, input string) (<-chan string, <-chan error) {
	out := make(chan string, 1)
	errs := make(chan error, 1)
	out <- "Sounds good."
	close(out)
	close(errs)
	return out, errs
}

type wsSpeech struct{}

func (wsSpeech) Transcribe(ctx context.Context, audio []byte, language string) (string, float64, error) {
	return "hello", 0.9, nil
}
func (wsSpeech) Close() error { return nil }

type wsTicker struct{ c chan time.Time }

func (t wsTicker) C() <-chan time.Time { return t.c }
func (t wsTicker) Stop()               {}

type wsScheduler struct{ ticks chan time.Time }

func (s *wsScheduler) Now() time.Time { return time.Now() }

func (s *wsScheduler) Tick(d time.Duration) engine.Ticker { return wsTicker{c: s.ticks} }

type wsInterviews struct{ sessions *wsSessions }

func (f *wsInterviews) Start(ctx context.Context, candidateID, jobID, email string) (*models.InterviewSession, error) {
	return nil, nil
}
func (f *wsInterviews) Get(ctx context.Context, sessionID string) (*models.InterviewSession, error) {
	return f.sessions.GetByID(ctx, sessionID)
}
func (f *wsInterviews) ListForCandidate(ctx context.Context, candidateID string, limit int) ([]models.InterviewSession, error) {
	return nil, nil
}

type wsHarness struct {
	eng       *engine.Engine
	sessions  *wsSessions
	results   *wsResults
	oracle    *wsOracle
	artifacts *wsArtifacts
	ticks     chan time.Time
	srv       *httptest.Server
	sessionID string
}

func newWSHarness(t *testing.T, defs []stage.Definition) *wsHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	l := logrus.New()
	l.SetOutput(io.Discard)
	entry := logrus.NewEntry(l)

	h := &wsHarness{
		sessions:  &wsSessions{rows: map[string]*models.InterviewSession{}},
		results:   &wsResults{rows: map[string]*models.StageResult{}},
		oracle:    &wsOracle{},
		artifacts: &wsArtifacts{},
		ticks:     make(chan time.Time, 16),
		sessionID: "sess-ws",
	}
	h.sessions.rows[h.sessionID] = &models.InterviewSession{
		ID:                h.sessionID,
		CandidateID:       "cand-1",
		CandidateEmail:    "cand@example.com",
		CurrentStageOrder: 1,
	}

	h.eng = engine.New(engine.Deps{
		Catalog:     stage.NewCatalog(defs),
		Sessions:    h.sessions,
		Results:     h.results,
		Bookings:    wsBookings{},
		Profiles:    wsProfiles{},
		Transcripts: wsTranscripts{},
		Oracle:      h.oracle,
		Notifier:    wsNotifier{},
		Artifacts:   h.artifacts,
		Log:         entry,
	})

	handler := NewCaptureWSHandler(
		&wsInterviews{sessions: h.sessions},
		h.eng,
		&wsChunks{},
		h.artifacts,
		wsPublisher{},
		broadcast.NewHubRegistry(),
		wsAgent{},
		wsSpeech{},
		&wsScheduler{ticks: h.ticks},
		entry,
	)

	r := gin.New()
	r.GET("/ws/interview/:session_id/stage/:order/capture",
		func(c *gin.Context) { c.Set("user_id", "cand-1") },
		handler.StageCapture,
	)
	h.srv = httptest.NewServer(r)
	t.Cleanup(h.srv.Close)
	return h
}

func (h *wsHarness) dial(t *testing.T, order int) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.srv.URL, "http") +
		fmt.Sprintf("/ws/interview/%s/stage/%d/capture", h.sessionID, order)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func wsSend(t *testing.T, conn *websocket.Conn, msg map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("send %v: %v", msg["type"], err)
	}
}

// wsReadUntil skips unrelated events (timers, status callbacks) until one
// of the wanted type arrives.
func wsReadUntil(t *testing.T, conn *websocket.Conn, typ string) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %q: %v", typ, err)
		}
		if msg["type"] == typ {
			return msg
		}
	}
}

func wsChunkMsg(index int, data string) map[string]any {
	return map[string]any{
		"type":        "media_chunk",
		"chunk_index": index,
		"data_base64": base64.StdEncoding.EncodeToString([]byte(data)),
	}
}

func demoDefs() []stage.Definition {
	return []stage.Definition{
		{Order: 1, Name: "Live Teaching Demo", Kind: stage.KindLiveDemo, PassingScore: 60, MinDurationSeconds: 2},
		{Order: 2, Name: "Final Summary", Kind: stage.KindSummary},
	}
}

func timedDefs() []stage.Definition {
	return []stage.Definition{
		{Order: 1, Name: "Subject Knowledge Assessment", Kind: stage.KindTimedAssessment, QuestionCount: 2, TimeLimitSeconds: 30, PassingScore: 60},
		{Order: 2, Name: "Final Summary", Kind: stage.KindSummary},
	}
}

// A demo whose evaluation fails must stay resubmittable: reconnecting and
// stopping again feeds the stored recording back to the oracle without
// reopening devices or re-uploading.
func TestDemoStopResubmitsAfterFailedEvaluation(t *testing.T) {
	h := newWSHarness(t, demoDefs())
	h.oracle.setErr(errors.New("model overloaded"))

	conn := h.dial(t, 1)
	wsSend(t, conn, map[string]any{"type": "start"})
	wsReadUntil(t, conn, "recorder")
	wsSend(t, conn, wsChunkMsg(1, "frame-1"))

	for i := 0; i < 3; i++ {
		h.ticks <- time.Now()
	}
	for {
		ev := wsReadUntil(t, conn, "demo_timer")
		if ev["can_stop"] == true {
			break
		}
	}

	wsSend(t, conn, map[string]any{"type": "stop"})
	ev := wsReadUntil(t, conn, "evaluation_retryable")
	ref, _ := ev["recording_ref"].(string)
	if ref == "" {
		t.Fatal("retryable event carries no recording ref")
	}
	conn.Close()

	if got := h.artifacts.uploadCount(); got != 1 {
		t.Fatalf("uploads = %d, want 1", got)
	}
	if _, err := h.results.Get(context.Background(), h.sessionID, 1); err != utils.ErrNotFound {
		t.Fatal("failed evaluation persisted a result")
	}
	calls, first := h.oracle.last()
	if calls != 1 {
		t.Fatalf("oracle called %d times, want 1", calls)
	}
	if first.DurationSeconds < 2 {
		t.Fatalf("first submission duration = %d, want at least the minimum", first.DurationSeconds)
	}

	// reconnect: start reports the pending evaluation, stop resubmits it
	h.oracle.setErr(nil)
	conn2 := h.dial(t, 1)
	defer conn2.Close()
	wsSend(t, conn2, map[string]any{"type": "start"})
	wsReadUntil(t, conn2, "evaluation_pending")
	wsSend(t, conn2, map[string]any{"type": "stop"})
	wsReadUntil(t, conn2, "stage_result")

	if got := h.artifacts.uploadCount(); got != 1 {
		t.Errorf("retry re-uploaded the recording: uploads = %d", got)
	}
	calls, retry := h.oracle.last()
	if calls != 2 {
		t.Errorf("oracle called %d times across failure+retry, want 2", calls)
	}
	if retry.RecordingRef != ref {
		t.Errorf("retry submitted ref %q, want %q", retry.RecordingRef, ref)
	}
	if retry.DurationSeconds != first.DurationSeconds {
		t.Errorf("retry recomputed the duration: %d -> %d", first.DurationSeconds, retry.DurationSeconds)
	}
	res, err := h.results.Get(context.Background(), h.sessionID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.RecordingRef == nil || *res.RecordingRef != ref {
		t.Errorf("persisted recording ref = %v, want %q", res.RecordingRef, ref)
	}
}

// A timed assessment retried after a failed evaluation resubmits the
// already-sealed recording: same ref, same duration, no second upload.
func TestTimedStopRetryKeepsSealedRecording(t *testing.T) {
	h := newWSHarness(t, timedDefs())
	ctx := context.Background()

	conn := h.dial(t, 1)
	wsSend(t, conn, map[string]any{"type": "start"})
	wsReadUntil(t, conn, "questions")
	wsSend(t, conn, wsChunkMsg(1, "frame-1"))

	// stopping mid-questions reports the attempt's actual phase
	wsSend(t, conn, map[string]any{"type": "stop"})
	ev := wsReadUntil(t, conn, "error")
	if msg, _ := ev["message"].(string); !strings.Contains(msg, "active") {
		t.Errorf("premature stop error = %q, want it to name the active phase", msg)
	}

	for i := 0; i < 2; i++ {
		if _, err := h.eng.SubmitAnswer(ctx, h.sessionID, 1, fmt.Sprintf("answer %d", i+1)); err != nil {
			t.Fatalf("submit %d: %v", i+1, err)
		}
	}

	h.oracle.setErr(errors.New("model overloaded"))
	wsSend(t, conn, map[string]any{"type": "stop"})
	ev = wsReadUntil(t, conn, "evaluation_retryable")
	ref, _ := ev["recording_ref"].(string)
	if ref == "" {
		t.Fatal("retryable event carries no recording ref")
	}
	conn.Close()
	_, first := h.oracle.last()

	h.oracle.setErr(nil)
	conn2 := h.dial(t, 1)
	defer conn2.Close()
	wsSend(t, conn2, map[string]any{"type": "start"})
	wsReadUntil(t, conn2, "questions")
	wsSend(t, conn2, map[string]any{"type": "stop"})
	wsReadUntil(t, conn2, "stage_result")

	if got := h.artifacts.uploadCount(); got != 1 {
		t.Errorf("retry re-sealed and re-uploaded the recording: uploads = %d", got)
	}
	calls, retry := h.oracle.last()
	if calls != 2 {
		t.Errorf("oracle called %d times across failure+retry, want 2", calls)
	}
	if retry.RecordingRef != ref {
		t.Errorf("retry submitted ref %q, want %q", retry.RecordingRef, ref)
	}
	if retry.DurationSeconds != first.DurationSeconds {
		t.Errorf("retry recomputed the duration: %d -> %d", first.DurationSeconds, retry.DurationSeconds)
	}
	if len(retry.Answers) != 2 {
		t.Errorf("retry lost the stored answers: %v", retry.Answers)
	}
	res, err := h.results.Get(ctx, h.sessionID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.RecordingRef == nil || *res.RecordingRef != ref {
		t.Errorf("persisted recording ref = %v, want %q", res.RecordingRef, ref)
	}
}
