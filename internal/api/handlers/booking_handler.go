package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hireloop/hireloop/internal/engine"
	"github.com/hireloop/hireloop/internal/services"
	"github.com/hireloop/hireloop/internal/utils"
)

type BookingHandler struct {
	svc services.InterviewService
	eng *engine.Engine
}

func NewBookingHandler(svc services.InterviewService, eng *engine.Engine) *BookingHandler {
	return &BookingHandler{svc: svc, eng: eng}
}

func (h *BookingHandler) authorize(c *gin.Context, op string) (sessionID string, order int, ok bool) {
	userID, ok := requireUserID(c)
	if !ok {
		return "", 0, false
	}
	sess, err := h.svc.Get(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		writeError(c, err)
		return "", 0, false
	}
	if sess.CandidateID != userID {
		writeError(c, utils.E(utils.CodeForbidden, op, "forbidden", nil))
		return "", 0, false
	}
	order, ok = stageOrderParam(c, op)
	if !ok {
		return "", 0, false
	}
	return sess.ID, order, true
}

// Book stores the slot selection and completes the booking stage. The
// invitation email is not sent here; see Confirm.
func (h *BookingHandler) Book(c *gin.Context) {
	const op = "BookingHandler.Book"

	sessionID, order, ok := h.authorize(c, op)
	if !ok {
		return
	}

	var form engine.BookingForm
	if err := c.ShouldBindJSON(&form); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
		return
	}

	b, err := h.eng.CompleteSlotBooking(c.Request.Context(), sessionID, order, form)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) Confirm(c *gin.Context) {
	const op = "BookingHandler.Confirm"

	sessionID, order, ok := h.authorize(c, op)
	if !ok {
		return
	}

	b, err := h.eng.ConfirmBooking(c.Request.Context(), sessionID, order)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}
