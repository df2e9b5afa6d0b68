package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hireloop/hireloop/internal/engine"
	"github.com/hireloop/hireloop/internal/models"
	"github.com/hireloop/hireloop/internal/services"
	"github.com/hireloop/hireloop/internal/utils"
)

type InterviewHandler struct {
	svc services.InterviewService
	eng *engine.Engine
}

func NewInterviewHandler(svc services.InterviewService, eng *engine.Engine) *InterviewHandler {
	return &InterviewHandler{svc: svc, eng: eng}
}

// authorizeSession loads the session and checks ownership.
func (h *InterviewHandler) authorizeSession(c *gin.Context, op string) (*models.InterviewSession, bool) {
	userID, ok := requireUserID(c)
	if !ok {
		return nil, false
	}

	sess, err := h.svc.Get(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	if sess.CandidateID != userID {
		writeError(c, utils.E(utils.CodeForbidden, op, "forbidden", nil))
		return nil, false
	}
	return sess, true
}

func stageOrderParam(c *gin.Context, op string) (int, bool) {
	order, err := strconv.Atoi(c.Param("order"))
	if err != nil || order < 1 {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid stage order", err))
		return 0, false
	}
	return order, true
}

type StartInterviewRequest struct {
	JobID string `json:"job_id"`
	Email string `json:"email" binding:"required"`
}

func (h *InterviewHandler) Start(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req StartInterviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "InterviewHandler.Start", "invalid request body", err))
		return
	}

	sess, err := h.svc.Start(c.Request.Context(), userID, req.JobID, req.Email)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session":     sess,
		"stage_count": h.eng.Catalog().Len(),
	})
}

func (h *InterviewHandler) Get(c *gin.Context) {
	sess, ok := h.authorizeSession(c, "InterviewHandler.Get")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *InterviewHandler) Stage(c *gin.Context) {
	const op = "InterviewHandler.Stage"

	sess, ok := h.authorizeSession(c, op)
	if !ok {
		return
	}
	order, ok := stageOrderParam(c, op)
	if !ok {
		return
	}

	view, err := h.eng.LoadStage(c.Request.Context(), sess.ID, order)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *InterviewHandler) Acknowledge(c *gin.Context) {
	const op = "InterviewHandler.Acknowledge"

	sess, ok := h.authorizeSession(c, op)
	if !ok {
		return
	}
	order, ok := stageOrderParam(c, op)
	if !ok {
		return
	}

	res, err := h.eng.Acknowledge(c.Request.Context(), sess.ID, order)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *InterviewHandler) GenerateQuestions(c *gin.Context) {
	const op = "InterviewHandler.GenerateQuestions"

	sess, ok := h.authorizeSession(c, op)
	if !ok {
		return
	}
	order, ok := stageOrderParam(c, op)
	if !ok {
		return
	}

	snap, err := h.eng.GenerateQuestions(c.Request.Context(), sess.ID, order)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

type SubmitAnswerRequest struct {
	Answer string `json:"answer"`
}

func (h *InterviewHandler) SubmitAnswer(c *gin.Context) {
	const op = "InterviewHandler.SubmitAnswer"

	sess, ok := h.authorizeSession(c, op)
	if !ok {
		return
	}
	order, ok := stageOrderParam(c, op)
	if !ok {
		return
	}

	var req SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
		return
	}

	view, err := h.eng.SubmitAnswer(c.Request.Context(), sess.ID, order, req.Answer)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *InterviewHandler) Summary(c *gin.Context) {
	sess, ok := h.authorizeSession(c, "InterviewHandler.Summary")
	if !ok {
		return
	}

	s, rows, err := h.eng.Summary(c.Request.Context(), sess.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session": s,
		"stages":  rows,
	})
}

func (h *InterviewHandler) Playback(c *gin.Context) {
	const op = "InterviewHandler.Playback"

	sess, ok := h.authorizeSession(c, op)
	if !ok {
		return
	}
	order, ok := stageOrderParam(c, op)
	if !ok {
		return
	}

	url, err := h.eng.PlaybackURL(c.Request.Context(), sess.ID, order)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// ListMine returns the candidate's own sessions, newest first.
func (h *InterviewHandler) ListMine(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	out, err := h.svc.ListForCandidate(c.Request.Context(), userID, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// ListForCandidate is the admin view over any candidate's sessions.
func (h *InterviewHandler) ListForCandidate(c *gin.Context) {
	const op = "InterviewHandler.ListForCandidate"

	candidateID := c.Query("candidate_id")
	if candidateID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "candidate_id is required", nil))
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	out, err := h.svc.ListForCandidate(c.Request.Context(), candidateID, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
