package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hireloop/hireloop/internal/cache"
	"github.com/hireloop/hireloop/internal/models"
	"github.com/hireloop/hireloop/internal/providers/notify"
	"github.com/hireloop/hireloop/internal/providers/oracle"
	mongorepo "github.com/hireloop/hireloop/internal/repositories/mongo"
	"github.com/hireloop/hireloop/internal/repositories/postgres"
	"github.com/hireloop/hireloop/internal/stage"
	"github.com/hireloop/hireloop/internal/storage"
	"github.com/hireloop/hireloop/internal/utils"
)

const resultCacheTTL = 6 * time.Hour

// Engine drives a session through the stage catalog. It owns stage
// loading, question generation, evaluation, slot booking and progression;
// media, broadcast and voice plumbing live with the capture handler and
// only report back through completion calls.
type Engine struct {
	catalog     *stage.Catalog
	sessions    postgres.SessionRepository
	results     postgres.ResultRepository
	bookings    postgres.BookingRepository
	profiles    postgres.ProfileRepository
	transcripts mongorepo.TranscriptRepository

	oracle    oracle.Provider
	notifier  notify.Dispatcher
	artifacts storage.ArtifactStore
	cache     cache.Cache

	registry *Registry
	clock    Clock
	log      *logrus.Entry
}

type Deps struct {
	Catalog     *stage.Catalog
	Sessions    postgres.SessionRepository
	Results     postgres.ResultRepository
	Bookings    postgres.BookingRepository
	Profiles    postgres.ProfileRepository
	Transcripts mongorepo.TranscriptRepository
	Oracle      oracle.Provider
	Notifier    notify.Dispatcher
	Artifacts   storage.ArtifactStore
	Cache       cache.Cache
	Clock       Clock
	Log         *logrus.Entry
}

func New(d Deps) *Engine {
	if d.Clock == nil {
		d.Clock = SystemClock()
	}
	if d.Log == nil {
		d.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Engine{
		catalog:     d.Catalog,
		sessions:    d.Sessions,
		results:     d.Results,
		bookings:    d.Bookings,
		profiles:    d.Profiles,
		transcripts: d.Transcripts,
		oracle:      d.Oracle,
		notifier:    d.Notifier,
		artifacts:   d.Artifacts,
		cache:       d.Cache,
		registry:    NewRegistry(),
		clock:       d.Clock,
		log:         d.Log,
	}
}

// Registry exposes the in-memory attempt state for the capture handler.
func (e *Engine) Registry() *Registry { return e.registry }

// Catalog exposes the stage sequence for rendering.
func (e *Engine) Catalog() *stage.Catalog { return e.catalog }

// StageView is everything a client needs to render one stage.
type StageView struct {
	SessionID  string           `json:"session_id"`
	Stage      stage.Definition `json:"stage"`
	View       stage.View       `json:"view"`
	Current    bool             `json:"current"`
	Completed  bool             `json:"completed"`
	TotalCount int              `json:"total_count"`

	Result       *models.StageResult `json:"result,omitempty"`
	ReviewResult *models.StageResult `json:"review_result,omitempty"`
	Booking      *models.SlotBooking `json:"booking,omitempty"`
	Timed        *TimedSnapshot      `json:"timed,omitempty"`
	Results      []models.StageResult `json:"results,omitempty"` // summary view only
}

// loadStageContext resolves session + definition and enforces the forward
// gate: a stage beyond current_stage_order is unreachable.
func (e *Engine) loadStageContext(ctx context.Context, op, sessionID string, order int) (*models.InterviewSession, stage.Definition, error) {
	s, err := e.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if err == utils.ErrNotFound {
			return nil, stage.Definition{}, utils.E(utils.CodeNotFound, op, "session not found", err)
		}
		return nil, stage.Definition{}, utils.E(utils.CodeInternal, op, "load session", err)
	}

	def, ok := e.catalog.Get(order)
	if !ok {
		return nil, stage.Definition{}, utils.E(utils.CodeNotFound, op, fmt.Sprintf("no stage with order %d", order), nil)
	}
	if order > s.CurrentStageOrder {
		msg := fmt.Sprintf("stage %d not reached yet, current is %d", order, s.CurrentStageOrder)
		return nil, stage.Definition{}, utils.E(utils.CodeFailedPrecondition, op, msg, nil)
	}
	return s, def, nil
}

// LoadStage renders the view for one stage. A stage with a stamped result
// short-circuits to its completed view: no questions are generated, no
// devices open, no timers run.
func (e *Engine) LoadStage(ctx context.Context, sessionID string, order int) (*StageView, error) {
	const op = "Engine.LoadStage"

	s, def, err := e.loadStageContext(ctx, op, sessionID, order)
	if err != nil {
		return nil, err
	}

	view := &StageView{
		SessionID:  s.ID,
		Stage:      def,
		View:       stage.ViewFor(def.Kind),
		Current:    order == s.CurrentStageOrder && !s.Completed,
		TotalCount: e.catalog.Len(),
	}

	res, err := e.cachedResult(ctx, sessionID, order)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "load stage result", err)
	}
	if res.IsCompleted() {
		view.Completed = true
		view.Result = res
		view.Current = false
	}

	switch def.Kind {
	case stage.KindFeedbackReview, stage.KindDocumentReview:
		if def.ReviewStageOrder > 0 {
			rr, err := e.cachedResult(ctx, sessionID, def.ReviewStageOrder)
			if err != nil {
				return nil, utils.E(utils.CodeInternal, op, "load reviewed result", err)
			}
			if rr.IsCompleted() {
				view.ReviewResult = rr
			}
		}
	case stage.KindSlotBooking:
		b, err := e.bookings.Get(ctx, sessionID, order)
		if err != nil && err != utils.ErrNotFound {
			return nil, utils.E(utils.CodeInternal, op, "load booking", err)
		}
		view.Booking = b
	case stage.KindSummary:
		all, err := e.results.ListBySession(ctx, sessionID)
		if err != nil {
			return nil, utils.E(utils.CodeInternal, op, "load results", err)
		}
		view.Results = all
	case stage.KindTimedAssessment:
		if !view.Completed {
			if a, ok := e.registry.LookupTimed(sessionID, order); ok {
				snap := a.Snapshot()
				view.Timed = &snap
			}
		}
	}

	return view, nil
}

// Acknowledge completes a non-evaluated stage (guidance and review views)
// and advances the session. Acknowledging an already-completed stage is a
// no-op success.
func (e *Engine) Acknowledge(ctx context.Context, sessionID string, order int) (*models.StageResult, error) {
	const op = "Engine.Acknowledge"

	s, def, err := e.loadStageContext(ctx, op, sessionID, order)
	if err != nil {
		return nil, err
	}

	switch def.Kind {
	case stage.KindInformational, stage.KindFeedbackReview, stage.KindDocumentReview, stage.KindSummary:
	default:
		return nil, utils.E(utils.CodeFailedPrecondition, op, def.Kind.String()+" stage cannot be acknowledged", nil)
	}

	res, err := e.results.Get(ctx, sessionID, order)
	if err != nil && err != utils.ErrNotFound {
		return nil, utils.E(utils.CodeInternal, op, "load stage result", err)
	}
	if res.IsCompleted() {
		return res, nil
	}
	if order != s.CurrentStageOrder {
		return nil, utils.E(utils.CodeFailedPrecondition, op, "only the current stage can be acknowledged", nil)
	}

	now := e.clock.Now().UTC()
	row := &models.StageResult{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		StageOrder:  order,
		Passed:      true,
		CompletedAt: &now,
		CreatedAt:   now,
	}
	if err := e.results.Upsert(ctx, row); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "persist stage result", err)
	}
	e.cacheResult(ctx, row)
	e.advance(ctx, s, def)
	return row, nil
}

// GenerateQuestions enters a timed-assessment stage: it asks the oracle
// for a fresh question set and arms the first countdown. Re-entering an
// attempt that is already active returns the live questions unchanged.
func (e *Engine) GenerateQuestions(ctx context.Context, sessionID string, order int) (*TimedSnapshot, error) {
	const op = "Engine.GenerateQuestions"

	s, def, err := e.loadStageContext(ctx, op, sessionID, order)
	if err != nil {
		return nil, err
	}
	if def.Kind != stage.KindTimedAssessment {
		return nil, utils.E(utils.CodeFailedPrecondition, op, "stage has no question flow", nil)
	}
	if order != s.CurrentStageOrder {
		return nil, utils.E(utils.CodeFailedPrecondition, op, "stage is not current", nil)
	}

	res, err := e.results.Get(ctx, sessionID, order)
	if err != nil && err != utils.ErrNotFound {
		return nil, utils.E(utils.CodeInternal, op, "load stage result", err)
	}
	if res.IsCompleted() {
		return nil, utils.E(utils.CodeFailedPrecondition, op, "stage already completed", nil)
	}

	a := e.registry.Timed(sessionID, order, func() *TimedAttempt { return NewTimedAttempt(def) })
	if err := a.BeginGenerating(); err != nil {
		if a.Phase() == PhaseActive || a.Phase() == PhaseEvaluating {
			snap := a.Snapshot()
			return &snap, nil
		}
		return nil, err
	}

	qs, err := e.oracle.GenerateQuestions(ctx, oracle.GenerateRequest{
		SessionID:  sessionID,
		StageOrder: order,
		Profile:    e.profileFor(ctx, s.CandidateID),
		Count:      def.QuestionCount,
	})
	if err != nil {
		a.FailGeneration()
		return nil, utils.E(utils.CodeUnavailable, op, "question generation failed", err)
	}
	if err := a.Begin(qs); err != nil {
		return nil, err
	}

	snap := a.Snapshot()
	return &snap, nil
}

// SubmitAnswer advances the timed attempt manually. Answering the last
// question moves the attempt to Evaluating, where it waits for the capture
// socket to seal and upload the recording; evaluation never runs without
// the artifact.
func (e *Engine) SubmitAnswer(ctx context.Context, sessionID string, order int, answer string) (*StageView, error) {
	const op = "Engine.SubmitAnswer"

	a, ok := e.registry.LookupTimed(sessionID, order)
	if !ok {
		return nil, utils.E(utils.CodeFailedPrecondition, op, "no active attempt", nil)
	}
	if _, err := a.Advance(answer); err != nil {
		return nil, err
	}
	return e.LoadStage(ctx, sessionID, order)
}

// CompleteTimedStage evaluates a finished timed attempt and persists the
// result. The pending evaluation must carry the uploaded recording ref;
// answers alone are never submitted to the oracle without the artifact.
// Safe to call again after an oracle failure; the stored submission is
// reused and the oracle runs at most once per successful completion.
func (e *Engine) CompleteTimedStage(ctx context.Context, sessionID string, order int) (*models.StageResult, error) {
	const op = "Engine.CompleteTimedStage"

	s, def, err := e.loadStageContext(ctx, op, sessionID, order)
	if err != nil {
		return nil, err
	}

	existing, err := e.results.Get(ctx, sessionID, order)
	if err != nil && err != utils.ErrNotFound {
		return nil, utils.E(utils.CodeInternal, op, "load stage result", err)
	}
	if existing.IsCompleted() {
		return existing, nil
	}

	pending, ok := e.registry.Pending(sessionID, order)
	if !ok {
		a, found := e.registry.LookupTimed(sessionID, order)
		if !found || a.Phase() != PhaseEvaluating {
			return nil, utils.E(utils.CodeFailedPrecondition, op, "attempt is not ready for evaluation", nil)
		}
		return nil, utils.E(utils.CodeFailedPrecondition, op, "recording upload must finish before evaluation", nil)
	}
	if pending.RecordingRef == nil {
		return nil, utils.E(utils.CodeFailedPrecondition, op, "recording upload must finish before evaluation", nil)
	}

	row, err := e.evaluate(ctx, s, def, pending)
	if err != nil {
		return nil, err
	}
	if a, found := e.registry.LookupTimed(sessionID, order); found {
		a.MarkCompleted()
	}
	e.registry.Drop(sessionID, order)
	return row, nil
}

// CompleteDemoStage evaluates a stopped live demo. The recording must have
// been uploaded already; its ref and the buffered transcript feed the
// oracle. Retryable on oracle failure like the timed path.
func (e *Engine) CompleteDemoStage(ctx context.Context, sessionID string, order int, recordingRef string, durationSeconds int) (*models.StageResult, error) {
	const op = "Engine.CompleteDemoStage"

	s, def, err := e.loadStageContext(ctx, op, sessionID, order)
	if err != nil {
		return nil, err
	}
	if def.Kind != stage.KindLiveDemo {
		return nil, utils.E(utils.CodeFailedPrecondition, op, "stage is not a live demo", nil)
	}
	if recordingRef == "" {
		return nil, utils.E(utils.CodeFailedPrecondition, op, "recording upload must finish before evaluation", nil)
	}
	if durationSeconds < def.MinDurationSeconds {
		msg := fmt.Sprintf("demo ran %ds, minimum is %ds", durationSeconds, def.MinDurationSeconds)
		return nil, utils.E(utils.CodeFailedPrecondition, op, msg, nil)
	}

	pending, ok := e.registry.Pending(sessionID, order)
	if !ok {
		pending = &PendingEvaluation{
			SessionID:       sessionID,
			StageOrder:      order,
			RecordingRef:    &recordingRef,
			DurationSeconds: durationSeconds,
		}
		e.registry.SetPending(pending)
	}

	row, err := e.evaluate(ctx, s, def, pending)
	if err != nil {
		return nil, err
	}
	e.registry.Drop(sessionID, order)
	return row, nil
}

// evaluate runs the oracle once and persists its verdict verbatim. An
// already-stamped result returns as-is without another oracle call. An
// oracle failure leaves no partial result behind.
func (e *Engine) evaluate(ctx context.Context, s *models.InterviewSession, def stage.Definition, p *PendingEvaluation) (*models.StageResult, error) {
	const op = "Engine.evaluate"

	existing, err := e.results.Get(ctx, s.ID, def.Order)
	if err != nil && err != utils.ErrNotFound {
		return nil, utils.E(utils.CodeInternal, op, "load stage result", err)
	}
	if existing.IsCompleted() {
		return existing, nil
	}

	req := oracle.EvalRequest{
		SessionID:       s.ID,
		StageOrder:      def.Order,
		StageName:       def.Name,
		Questions:       p.Questions,
		Answers:         p.Answers,
		DurationSeconds: p.DurationSeconds,
		Profile:         e.profileFor(ctx, s.CandidateID),
		PassingScore:    def.PassingScore,
	}
	if p.RecordingRef != nil {
		req.RecordingRef = *p.RecordingRef
		tr, err := e.transcripts.ListByAttempt(ctx, s.ID, def.Order)
		if err != nil {
			e.log.WithError(err).WithField("session_id", s.ID).Warn("transcript fetch failed, evaluating without it")
		} else {
			req.Transcript = tr
		}
	}

	verdict, err := e.oracle.Evaluate(ctx, req)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "evaluation failed, stage can be resubmitted", err)
	}

	now := e.clock.Now().UTC()
	score := verdict.Score
	row := &models.StageResult{
		ID:              uuid.NewString(),
		SessionID:       s.ID,
		StageOrder:      def.Order,
		Score:           &score,
		Passed:          verdict.Passed,
		Feedback:        verdict.Feedback,
		Strengths:       verdict.Strengths,
		Improvements:    verdict.Improvements,
		RecordingRef:    p.RecordingRef,
		DurationSeconds: p.DurationSeconds,
		CompletedAt:     &now,
		CreatedAt:       now,
	}
	if len(verdict.QuestionScores) > 0 {
		raw, err := json.Marshal(verdict.QuestionScores)
		if err != nil {
			return nil, utils.E(utils.CodeInternal, op, "encode question scores", err)
		}
		row.QuestionScores = raw
	}

	if err := e.results.Upsert(ctx, row); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "persist stage result", err)
	}
	e.cacheResult(ctx, row)
	e.advance(ctx, s, def)
	return row, nil
}

// BookingForm is the candidate's slot submission.
type BookingForm struct {
	SlotDate string            `json:"slot_date"` // YYYY-MM-DD
	SlotTime string            `json:"slot_time"` // HH:MM
	Details  map[string]string `json:"details,omitempty"`
}

// CompleteSlotBooking validates and stores the slot, stamps the stage
// without a score and auto-progresses. No notification fires here; the
// invitation waits for the explicit confirm action.
func (e *Engine) CompleteSlotBooking(ctx context.Context, sessionID string, order int, form BookingForm) (*models.SlotBooking, error) {
	const op = "Engine.CompleteSlotBooking"

	s, def, err := e.loadStageContext(ctx, op, sessionID, order)
	if err != nil {
		return nil, err
	}
	if def.Kind != stage.KindSlotBooking {
		return nil, utils.E(utils.CodeFailedPrecondition, op, "stage takes no slot booking", nil)
	}
	if order != s.CurrentStageOrder {
		return nil, utils.E(utils.CodeFailedPrecondition, op, "stage is not current", nil)
	}

	if _, err := time.Parse("2006-01-02", form.SlotDate); err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "slot_date must be YYYY-MM-DD", err)
	}
	if _, err := time.Parse("15:04", form.SlotTime); err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "slot_time must be HH:MM", err)
	}
	if def.DetailedForm && len(form.Details) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "details are required for this booking", nil)
	}

	res, err := e.results.Get(ctx, sessionID, order)
	if err != nil && err != utils.ErrNotFound {
		return nil, utils.E(utils.CodeInternal, op, "load stage result", err)
	}
	if res.IsCompleted() {
		return nil, utils.E(utils.CodeFailedPrecondition, op, "stage already completed", nil)
	}

	now := e.clock.Now().UTC()
	b := &models.SlotBooking{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		StageOrder: order,
		SlotDate:   form.SlotDate,
		SlotTime:   form.SlotTime,
		CreatedAt:  now,
	}
	if len(form.Details) > 0 {
		raw, err := json.Marshal(form.Details)
		if err != nil {
			return nil, utils.E(utils.CodeInternal, op, "encode details", err)
		}
		b.Details = raw
	}
	if err := e.bookings.Upsert(ctx, b); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "persist booking", err)
	}

	row := &models.StageResult{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		StageOrder:  order,
		Passed:      true,
		CompletedAt: &now,
		CreatedAt:   now,
	}
	if err := e.results.Upsert(ctx, row); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "persist stage result", err)
	}
	e.cacheResult(ctx, row)
	e.advance(ctx, s, def)
	return b, nil
}

// ConfirmBooking marks the booked slot confirmed and sends the invitation
// naming the stage the slot is for. Delivery failure is logged, never
// surfaced; the confirmation itself stands.
func (e *Engine) ConfirmBooking(ctx context.Context, sessionID string, order int) (*models.SlotBooking, error) {
	const op = "Engine.ConfirmBooking"

	s, def, err := e.loadStageContext(ctx, op, sessionID, order)
	if err != nil {
		return nil, err
	}
	if def.Kind != stage.KindSlotBooking {
		return nil, utils.E(utils.CodeFailedPrecondition, op, "stage takes no slot booking", nil)
	}

	b, err := e.bookings.Get(ctx, sessionID, order)
	if err != nil {
		if err == utils.ErrNotFound {
			return nil, utils.E(utils.CodeFailedPrecondition, op, "no slot booked yet", nil)
		}
		return nil, utils.E(utils.CodeInternal, op, "load booking", err)
	}
	if !b.Confirmed {
		if err := e.bookings.Confirm(ctx, sessionID, order); err != nil {
			return nil, utils.E(utils.CodeInternal, op, "confirm booking", err)
		}
		b.Confirmed = true

		if next, ok := e.catalog.Next(order); ok {
			e.notifyBestEffort(ctx, notify.Notification{
				CandidateEmail:   s.CandidateEmail,
				SessionID:        s.ID,
				StageOrder:       next.Order,
				StageName:        next.Name,
				StageDescription: fmt.Sprintf("Your slot on %s at %s is confirmed. %s", b.SlotDate, b.SlotTime, next.Description),
			})
		}
	}
	return b, nil
}

// advance moves the session pointer past a completed stage. Completing the
// last stage closes the session. Notification failures never block.
func (e *Engine) advance(ctx context.Context, s *models.InterviewSession, completed stage.Definition) {
	next, ok := e.catalog.Next(completed.Order)
	if !ok {
		if err := e.sessions.MarkComplete(ctx, s.ID); err != nil {
			e.log.WithError(err).WithField("session_id", s.ID).Error("mark session complete failed")
			return
		}
		e.notifyBestEffort(ctx, notify.Notification{
			CandidateEmail: s.CandidateEmail,
			SessionID:      s.ID,
			StageOrder:     completed.Order,
			StageName:      completed.Name,
			Final:          true,
		})
		return
	}

	if err := e.sessions.AdvanceStage(ctx, s.ID, next.Order); err != nil {
		e.log.WithError(err).WithField("session_id", s.ID).Error("advance stage failed")
		return
	}
	s.CurrentStageOrder = next.Order

	if !completed.AutoProgress {
		e.notifyBestEffort(ctx, notify.Notification{
			CandidateEmail:   s.CandidateEmail,
			SessionID:        s.ID,
			StageOrder:       next.Order,
			StageName:        next.Name,
			StageDescription: next.Description,
		})
	}
}

func (e *Engine) notifyBestEffort(ctx context.Context, n notify.Notification) {
	if err := e.notifier.Notify(ctx, n); err != nil {
		e.log.WithError(err).WithFields(logrus.Fields{
			"session_id":  n.SessionID,
			"stage_order": n.StageOrder,
		}).Warn("notification dispatch failed")
	}
}

// StartLiveView rotates the viewer token for a new demo attempt and marks
// the stream live. Returns the plaintext token; only its hash is stored.
func (e *Engine) StartLiveView(ctx context.Context, sessionID string) (string, error) {
	const op = "Engine.StartLiveView"

	token, hash, err := utils.NewLiveViewToken()
	if err != nil {
		return "", utils.E(utils.CodeInternal, op, "mint viewer token", err)
	}
	now := e.clock.Now().UTC()
	if err := e.sessions.SetLiveView(ctx, sessionID, hash, true, &now); err != nil {
		return "", utils.E(utils.CodeInternal, op, "persist live view state", err)
	}
	return token, nil
}

// StopLiveView invalidates the current viewer token.
func (e *Engine) StopLiveView(ctx context.Context, sessionID string) error {
	const op = "Engine.StopLiveView"
	if err := e.sessions.SetLiveView(ctx, sessionID, "", false, nil); err != nil {
		return utils.E(utils.CodeInternal, op, "persist live view state", err)
	}
	return nil
}

// VerifyLiveViewToken gates the read-only viewer socket.
func (e *Engine) VerifyLiveViewToken(ctx context.Context, sessionID, token string) error {
	const op = "Engine.VerifyLiveViewToken"

	s, err := e.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return utils.E(utils.CodeNotFound, op, "session not found", err)
	}
	if !s.LiveViewActive || s.LiveViewTokenHash == "" {
		return utils.E(utils.CodeForbidden, op, "stream is not live", nil)
	}
	if err := utils.CheckLiveViewToken(s.LiveViewTokenHash, token); err != nil {
		return utils.E(utils.CodeForbidden, op, "invalid viewer token", err)
	}
	return nil
}

// RecordUtterance buffers one transcript turn for a live demo.
func (e *Engine) RecordUtterance(ctx context.Context, sessionID string, order int, role, content string) error {
	const op = "Engine.RecordUtterance"

	now := e.clock.Now().UTC()
	err := e.transcripts.Append(ctx, &models.TranscriptMessage{
		SessionID:  sessionID,
		StageOrder: order,
		Role:       role,
		Content:    content,
		Timestamp:  now,
		ExpiresAt:  now.Add(24 * time.Hour),
	})
	if err != nil {
		return utils.E(utils.CodeInternal, op, "append transcript", err)
	}
	return nil
}

// SummaryRow pairs a catalog entry with its outcome, nil until completed.
type SummaryRow struct {
	Stage  stage.Definition    `json:"stage"`
	Result *models.StageResult `json:"result,omitempty"`
}

// Summary aggregates every stage outcome for the session.
func (e *Engine) Summary(ctx context.Context, sessionID string) (*models.InterviewSession, []SummaryRow, error) {
	const op = "Engine.Summary"

	s, err := e.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, nil, utils.E(utils.CodeNotFound, op, "session not found", err)
	}
	all, err := e.results.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, nil, utils.E(utils.CodeInternal, op, "load results", err)
	}

	byOrder := make(map[int]*models.StageResult, len(all))
	for i := range all {
		byOrder[all[i].StageOrder] = &all[i]
	}
	rows := make([]SummaryRow, 0, e.catalog.Len())
	for _, def := range e.catalog.All() {
		rows = append(rows, SummaryRow{Stage: def, Result: byOrder[def.Order]})
	}
	return s, rows, nil
}

// PlaybackURL signs a short-lived link to a stage's sealed recording.
func (e *Engine) PlaybackURL(ctx context.Context, sessionID string, order int) (string, error) {
	const op = "Engine.PlaybackURL"

	res, err := e.cachedResult(ctx, sessionID, order)
	if err != nil {
		return "", utils.E(utils.CodeInternal, op, "load stage result", err)
	}
	if !res.IsCompleted() || res.RecordingRef == nil {
		return "", utils.E(utils.CodeNotFound, op, "no recording for this stage", nil)
	}
	url, err := e.artifacts.PlaybackURL(ctx, *res.RecordingRef, 15*time.Minute)
	if err != nil {
		return "", utils.E(utils.CodeUnavailable, op, "sign playback url", err)
	}
	return url, nil
}

// cachedResult reads through the result cache. Only stamped results are
// cached; they are immutable so staleness is not a concern.
func (e *Engine) cachedResult(ctx context.Context, sessionID string, order int) (*models.StageResult, error) {
	if e.cache != nil {
		var cached models.StageResult
		hit, err := e.cache.GetJSON(ctx, cache.ResultKey(sessionID, order), &cached)
		if err != nil {
			e.log.WithError(err).Debug("result cache read failed")
		} else if hit {
			return &cached, nil
		}
	}

	res, err := e.results.Get(ctx, sessionID, order)
	if err == utils.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e.cacheResult(ctx, res)
	return res, nil
}

func (e *Engine) cacheResult(ctx context.Context, r *models.StageResult) {
	if e.cache == nil || !r.IsCompleted() {
		return
	}
	if err := e.cache.SetJSON(ctx, cache.ResultKey(r.SessionID, r.StageOrder), r, resultCacheTTL); err != nil {
		e.log.WithError(err).Debug("result cache write failed")
	}
}

func (e *Engine) profileFor(ctx context.Context, candidateID string) *models.CandidateProfile {
	p, err := e.profiles.GetByUserID(ctx, candidateID)
	if err != nil {
		if err != utils.ErrNotFound {
			e.log.WithError(err).Debug("profile lookup failed")
		}
		return nil
	}
	return p
}
