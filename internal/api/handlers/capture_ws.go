package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/hireloop/hireloop/internal/broadcast"
	"github.com/hireloop/hireloop/internal/engine"
	"github.com/hireloop/hireloop/internal/media"
	"github.com/hireloop/hireloop/internal/models"
	"github.com/hireloop/hireloop/internal/providers/stt"
	mongorepo "github.com/hireloop/hireloop/internal/repositories/mongo"
	"github.com/hireloop/hireloop/internal/services"
	"github.com/hireloop/hireloop/internal/stage"
	"github.com/hireloop/hireloop/internal/storage"
	"github.com/hireloop/hireloop/internal/utils"
	"github.com/hireloop/hireloop/internal/voice"
)

const (
	chunkTTL      = 6 * time.Hour
	uploadRetries = 3
	closingDrain  = 2 * time.Second

	closingMessage = "Time is up. Thank the candidate for their demo and wrap up in one sentence."
)

// CaptureWSHandler drives the interactive capture socket for timed
// assessments and live demos: media chunks in, recorder + broadcast +
// voice agent + stage timers behind it.
type CaptureWSHandler struct {
	svc       services.InterviewService
	eng       *engine.Engine
	chunks    mongorepo.ChunkRepository
	artifacts storage.ArtifactStore
	publisher broadcast.Publisher
	hubs      *broadcast.HubRegistry
	agent     voice.AgentBackend
	speech    stt.Provider
	scheduler engine.Scheduler
	log       *logrus.Entry
	upgrader  websocket.Upgrader
}

func NewCaptureWSHandler(
	svc services.InterviewService,
	eng *engine.Engine,
	chunks mongorepo.ChunkRepository,
	artifacts storage.ArtifactStore,
	publisher broadcast.Publisher,
	hubs *broadcast.HubRegistry,
	agent voice.AgentBackend,
	speech stt.Provider,
	scheduler engine.Scheduler,
	log *logrus.Entry,
) *CaptureWSHandler {
	return &CaptureWSHandler{
		svc:       svc,
		eng:       eng,
		chunks:    chunks,
		artifacts: artifacts,
		publisher: publisher,
		hubs:      hubs,
		agent:     agent,
		speech:    speech,
		scheduler: scheduler,
		log:       log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

type captureClientMsg struct {
	Type string `json:"type"`

	// media_chunk
	ChunkIndex int64  `json:"chunk_index"`
	DataBase64 string `json:"data_base64"`
	Relay      bool   `json:"relay"`

	// utterance / audio_utterance
	Text        string `json:"text"`
	AudioBase64 string `json:"audio_base64"`
	Language    string `json:"language"`
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (w *wsConn) writeEvent(typ string, fields map[string]any) {
	msg := map[string]any{"type": typ}
	for k, v := range fields {
		msg[k] = v
	}
	_ = w.writeJSON(msg)
}

func (w *wsConn) writeErrorEvent(err error) {
	var code utils.Code = utils.CodeInternal
	msg := "internal error"
	if ae, ok := err.(*utils.AppError); ok {
		code = ae.Code
		msg = ae.Message
	}
	w.writeEvent("error", map[string]any{"code": code, "message": msg})
}

// captureState is everything one socket owns for the attempt.
type captureState struct {
	def      stage.Definition
	recorder *media.Recorder
	hub      *broadcast.Hub
	channel  *voice.Channel
	demo     *engine.DemoAttempt
	timed    *engine.TimedAttempt
	ticker   engine.Ticker
	started  bool
	finished bool
}

func (h *CaptureWSHandler) StageCapture(c *gin.Context) {
	const op = "CaptureWSHandler.StageCapture"

	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	order, ok := stageOrderParam(c, op)
	if !ok {
		return
	}

	sess, err := h.svc.Get(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if sess.CandidateID != userID {
		writeError(c, utils.E(utils.CodeForbidden, op, "forbidden", nil))
		return
	}

	view, err := h.eng.LoadStage(c.Request.Context(), sess.ID, order)
	if err != nil {
		writeError(c, err)
		return
	}
	if !view.Stage.Kind.Interactive() {
		writeError(c, utils.E(utils.CodeFailedPrecondition, op, "stage opens no media devices", nil))
		return
	}
	if view.Completed {
		writeError(c, utils.E(utils.CodeFailedPrecondition, op, "stage already completed", nil))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	st := &captureState{
		def:      view.Stage,
		recorder: media.NewRecorder(h.chunks, sess.ID, order, chunkTTL),
	}
	defer h.teardown(st)

	log := h.log.WithFields(logrus.Fields{
		"session_id":  sess.ID,
		"stage_order": order,
	})

	conn.SetReadLimit(8 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		return nil
	})

	for {
		_, data, rerr := conn.ReadMessage()
		if rerr != nil {
			if st.started && !st.finished {
				h.abandon(ctx, wc, sess.ID, order, st)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))

		var msg captureClientMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			wc.writeErrorEvent(utils.E(utils.CodeInvalidArgument, op, "invalid json", err))
			continue
		}

		switch msg.Type {
		case "start":
			h.handleStart(ctx, wc, sess.ID, order, st, log)

		case "media_chunk":
			h.handleChunk(ctx, wc, st, msg)

		case "utterance":
			h.handleUtterance(ctx, wc, sess.ID, order, st, msg.Text)

		case "audio_utterance":
			h.handleAudioUtterance(ctx, wc, sess.ID, order, st, msg)

		case "pause":
			if err := st.recorder.Pause(); err != nil {
				wc.writeErrorEvent(err)
				continue
			}
			wc.writeEvent("recorder", map[string]any{"state": st.recorder.State().String()})

		case "resume":
			if err := st.recorder.Resume(); err != nil {
				wc.writeErrorEvent(err)
				continue
			}
			wc.writeEvent("recorder", map[string]any{"state": st.recorder.State().String()})

		case "stop":
			if h.handleStop(ctx, wc, sess.ID, order, st, log) {
				return
			}

		case "permission_denied":
			// client could not open camera/microphone; the stage cannot start
			wc.writeErrorEvent(utils.E(utils.CodePermissionDenied, op, "camera/microphone access is required for this stage", nil))
			if st.started {
				h.abandon(ctx, wc, sess.ID, order, st)
			}
			return

		case "abort":
			h.abandon(ctx, wc, sess.ID, order, st)
			return

		default:
			wc.writeErrorEvent(utils.E(utils.CodeInvalidArgument, op, "unknown message type", nil))
		}
	}
}

func (h *CaptureWSHandler) handleStart(ctx context.Context, wc *wsConn, sessionID string, order int, st *captureState, log *logrus.Entry) {
	if st.started {
		wc.writeErrorEvent(utils.E(utils.CodeFailedPrecondition, "CaptureWSHandler.start", "capture already started", nil))
		return
	}

	if err := st.recorder.Start(); err != nil {
		wc.writeErrorEvent(err)
		return
	}
	st.started = true
	wc.writeEvent("recorder", map[string]any{"state": st.recorder.State().String()})

	switch st.def.Kind {
	case stage.KindLiveDemo:
		h.startDemo(ctx, wc, sessionID, order, st, log)
	case stage.KindTimedAssessment:
		h.startTimed(ctx, wc, sessionID, order, st)
	}
}

// startDemo wires broadcast, voice and the coaching timer. Broadcast and
// voice failures degrade the experience; only the recorder is load-bearing.
func (h *CaptureWSHandler) startDemo(ctx context.Context, wc *wsConn, sessionID string, order int, st *captureState, log *logrus.Entry) {
	st.demo = h.eng.Registry().Demo(sessionID, order, func() *engine.DemoAttempt {
		return engine.NewDemoAttempt(st.def, engine.DefaultCoachingSchedule())
	})
	if err := st.demo.Begin(); err != nil {
		if st.demo.Phase() == engine.PhaseEvaluating {
			// a failed evaluation is waiting for resubmission; no devices
			// reopen, stop resubmits the uploaded recording
			wc.writeEvent("evaluation_pending", nil)
			return
		}
		wc.writeErrorEvent(err)
		return
	}

	viewerToken, err := h.eng.StartLiveView(ctx, sessionID)
	if err != nil {
		log.WithError(err).Warn("live view token rotation failed")
	} else {
		wc.writeEvent("live_view", map[string]any{"viewer_token": viewerToken})
	}

	st.hub = broadcast.NewHub(h.publisher, sessionID)
	st.hub.SetCallbacks(
		func(s broadcast.Status) {
			wc.writeEvent("broadcast_status", map[string]any{"status": s.String()})
		},
		func(current, peak int) {
			wc.writeEvent("viewer_count", map[string]any{"viewers": current, "peak_viewers": peak})
		},
	)
	st.hub.Start(ctx)
	h.hubs.Put(sessionID, st.hub)

	st.channel = voice.NewChannel(h.agent, demoSystemPrompt(st.def))
	st.channel.SetCallbacks(
		func(role, text string) {
			wc.writeEvent("transcript", map[string]any{"role": role, "text": text})
			if err := h.eng.RecordUtterance(ctx, sessionID, order, role, text); err != nil {
				log.WithError(err).Warn("transcript append failed")
			}
		},
		func(s voice.ConnState) {
			wc.writeEvent("voice_status", map[string]any{"state": s.String()})
		},
		func(speaking bool) {
			wc.writeEvent("agent_speaking", map[string]any{"speaking": speaking})
		},
	)
	if err := st.channel.Connect(ctx); err != nil {
		// coaching degrades to on-screen text only
		log.WithError(err).Warn("voice channel unavailable")
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		if tok, err := voice.MintSessionToken(secret, sessionID, demoSystemPrompt(st.def), time.Hour); err == nil {
			wc.writeEvent("voice_token", map[string]any{"token": tok})
		}
	}

	st.ticker = h.scheduler.Tick(time.Second)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-st.ticker.C():
				cues := st.demo.Tick()
				wc.writeEvent("demo_timer", map[string]any{
					"elapsed_seconds": st.demo.Elapsed(),
					"can_stop":        st.demo.CanStop(),
				})
				for _, cue := range cues {
					// on-screen always; spoken only while the agent is up
					wc.writeEvent("coaching_cue", map[string]any{"text": cue.Text})
					if err := st.channel.SendContextualUpdate(ctx, cue.Text); err != nil {
						log.WithField("cue", cue.Text).Debug("coaching cue not spoken")
					}
				}
			}
		}
	}()
}

// startTimed generates the question set and arms the countdown loop.
func (h *CaptureWSHandler) startTimed(ctx context.Context, wc *wsConn, sessionID string, order int, st *captureState) {
	snap, err := h.eng.GenerateQuestions(ctx, sessionID, order)
	if err != nil {
		wc.writeErrorEvent(err)
		return
	}
	st.timed, _ = h.eng.Registry().LookupTimed(sessionID, order)
	wc.writeEvent("questions", map[string]any{"snapshot": snap})

	st.ticker = h.scheduler.Tick(time.Second)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-st.ticker.C():
				forced, done := st.timed.Tick()
				snap := st.timed.Snapshot()
				wc.writeEvent("question_timer", map[string]any{"snapshot": snap})
				if forced {
					wc.writeEvent("question_forced", map[string]any{"snapshot": snap})
				}
				if done {
					wc.writeEvent("assessment_done", nil)
					return
				}
			}
		}
	}()
}

func (h *CaptureWSHandler) handleChunk(ctx context.Context, wc *wsConn, st *captureState, msg captureClientMsg) {
	raw, err := base64.StdEncoding.DecodeString(msg.DataBase64)
	if err != nil {
		wc.writeErrorEvent(utils.E(utils.CodeInvalidArgument, "CaptureWSHandler.media_chunk", "invalid base64 payload", err))
		return
	}

	if err := st.recorder.AppendChunk(ctx, msg.ChunkIndex, raw); err != nil {
		// chunk storage failure is fatal to the attempt
		wc.writeErrorEvent(err)
		wc.writeEvent("recorder", map[string]any{"state": st.recorder.State().String()})
		return
	}

	if msg.Relay && st.hub != nil {
		st.hub.PublishFrame(ctx, raw)
	}
}

func (h *CaptureWSHandler) handleUtterance(ctx context.Context, wc *wsConn, sessionID string, order int, st *captureState, text string) {
	if st.channel == nil {
		wc.writeErrorEvent(utils.E(utils.CodeFailedPrecondition, "CaptureWSHandler.utterance", "no voice channel for this stage", nil))
		return
	}
	if err := st.channel.HandleCandidateUtterance(ctx, text); err != nil {
		wc.writeErrorEvent(err)
	}
}

// handleAudioUtterance transcribes candidate speech first, then feeds the
// text through the same path as a typed utterance.
func (h *CaptureWSHandler) handleAudioUtterance(ctx context.Context, wc *wsConn, sessionID string, order int, st *captureState, msg captureClientMsg) {
	const op = "CaptureWSHandler.audio_utterance"

	if st.channel == nil {
		wc.writeErrorEvent(utils.E(utils.CodeFailedPrecondition, op, "no voice channel for this stage", nil))
		return
	}
	raw, err := base64.StdEncoding.DecodeString(msg.AudioBase64)
	if err != nil {
		wc.writeErrorEvent(utils.E(utils.CodeInvalidArgument, op, "invalid base64 payload", err))
		return
	}

	text, confidence, err := h.speech.Transcribe(ctx, raw, msg.Language)
	if err != nil {
		wc.writeErrorEvent(utils.E(utils.CodeUnavailable, op, "transcription failed", err))
		return
	}
	wc.writeEvent("stt", map[string]any{"text": text, "confidence": confidence})

	if err := st.channel.HandleCandidateUtterance(ctx, text); err != nil {
		wc.writeErrorEvent(err)
	}
}

// handleStop seals the attempt: recording upload is a blocking
// prerequisite of evaluation, then the stage completes and the socket
// closes. Returns true when the socket should shut down.
func (h *CaptureWSHandler) handleStop(ctx context.Context, wc *wsConn, sessionID string, order int, st *captureState, log *logrus.Entry) bool {
	const op = "CaptureWSHandler.stop"

	if !st.started {
		wc.writeErrorEvent(utils.E(utils.CodeFailedPrecondition, op, "capture not started", nil))
		return false
	}

	switch st.def.Kind {
	case stage.KindLiveDemo:
		if st.demo == nil {
			wc.writeErrorEvent(utils.E(utils.CodeFailedPrecondition, op, "demo never started", nil))
			return false
		}
		switch err := st.demo.Stop(); {
		case err == nil:
			// first stop winds down the live surfaces
			if st.channel != nil {
				st.channel.Close(ctx, closingMessage, closingDrain)
			}
			h.eng.StopLiveView(ctx, sessionID)
			if st.hub != nil {
				st.hub.Stop(ctx)
				h.hubs.Remove(sessionID)
			}
		case st.demo.Phase() == engine.PhaseEvaluating:
			// already stopped by a failed evaluation; resubmit below
		default:
			// the gate rejects early stops; the attempt stays live
			wc.writeErrorEvent(err)
			return false
		}

	case stage.KindTimedAssessment:
		if st.timed == nil {
			wc.writeErrorEvent(utils.E(utils.CodeFailedPrecondition, op, "questions were never generated", nil))
			return false
		}
		if ph := st.timed.Phase(); ph != engine.PhaseEvaluating {
			wc.writeErrorEvent(utils.E(utils.CodeFailedPrecondition, op, "attempt is "+ph.String()+", not ready to stop", nil))
			return false
		}
	}

	// a pending evaluation kept from a failed oracle call already holds
	// the uploaded recording; resubmit it instead of sealing a new blob
	if p, ok := h.eng.Registry().Pending(sessionID, order); ok && p.RecordingRef != nil {
		return h.finishEvaluation(ctx, wc, sessionID, order, st, log, *p.RecordingRef, p.DurationSeconds)
	}

	blob, err := st.recorder.Stop(ctx)
	if err != nil {
		wc.writeErrorEvent(err)
		wc.writeEvent("capture_failed", map[string]any{"reason": "recording could not be sealed"})
		h.eng.Registry().Drop(sessionID, order)
		st.finished = true
		return true
	}

	wc.writeEvent("uploading", map[string]any{"size_bytes": blob.SizeBytes})
	ref, err := media.UploadBlob(ctx, h.artifacts, sessionID, order, blob, uploadRetries)
	if err != nil {
		// evaluation cannot run without the artifact; the attempt must restart
		wc.writeErrorEvent(err)
		wc.writeEvent("capture_failed", map[string]any{"reason": "recording upload failed"})
		h.eng.Registry().Drop(sessionID, order)
		st.finished = true
		return true
	}

	if st.def.Kind == stage.KindTimedAssessment {
		h.eng.Registry().SetPending(&engine.PendingEvaluation{
			SessionID:       sessionID,
			StageOrder:      order,
			Questions:       st.timed.Questions(),
			Answers:         st.timed.Answers(),
			RecordingRef:    &ref,
			DurationSeconds: int(blob.Duration.Seconds()),
		})
	}
	duration := int(blob.Duration.Seconds())
	if st.def.Kind == stage.KindLiveDemo {
		duration = st.demo.Elapsed()
	}
	return h.finishEvaluation(ctx, wc, sessionID, order, st, log, ref, duration)
}

// finishEvaluation runs the oracle completion and reports the outcome. A
// failure keeps the pending evaluation so another stop resubmits the same
// recording.
func (h *CaptureWSHandler) finishEvaluation(ctx context.Context, wc *wsConn, sessionID string, order int, st *captureState, log *logrus.Entry, ref string, durationSeconds int) bool {
	var result *models.StageResult
	var err error
	switch st.def.Kind {
	case stage.KindLiveDemo:
		result, err = h.eng.CompleteDemoStage(ctx, sessionID, order, ref, durationSeconds)
	case stage.KindTimedAssessment:
		result, err = h.eng.CompleteTimedStage(ctx, sessionID, order)
	}
	if err != nil {
		log.WithError(err).Warn("stage evaluation failed")
		wc.writeErrorEvent(err)
		wc.writeEvent("evaluation_retryable", map[string]any{"recording_ref": ref})
		st.finished = true
		return true
	}

	wc.writeEvent("stage_result", map[string]any{"result": result})
	st.finished = true
	return true
}

// abandon cleans up a dead or cancelled attempt. Work not yet frozen for
// evaluation is discarded and the stage stays re-enterable.
func (h *CaptureWSHandler) abandon(ctx context.Context, wc *wsConn, sessionID string, order int, st *captureState) {
	if st.demo != nil {
		st.demo.Abandon()
		h.eng.StopLiveView(ctx, sessionID)
	}
	if st.timed != nil && st.timed.Phase() != engine.PhaseEvaluating {
		// answers frozen for evaluation survive a dropped socket; anything
		// earlier restarts fresh
		h.eng.Registry().Drop(sessionID, order)
	}
	if st.channel != nil {
		st.channel.Close(ctx, "", 0)
	}
	if st.hub != nil {
		st.hub.Stop(ctx)
		h.hubs.Remove(sessionID)
	}
	if err := st.recorder.Abort(ctx); err != nil {
		h.log.WithError(err).Debug("chunk cleanup failed, ttl will reap")
	}
	st.finished = true
	wc.writeEvent("aborted", nil)
}

func (h *CaptureWSHandler) teardown(st *captureState) {
	if st.ticker != nil {
		st.ticker.Stop()
	}
}

func demoSystemPrompt(def stage.Definition) string {
	return "You are a warm, encouraging teaching-demo coach observing a live lesson for the \"" +
		def.Name + "\" stage. Keep replies to one or two short spoken sentences."
}
