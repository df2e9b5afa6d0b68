package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/hireloop/hireloop/internal/api/handlers"
	"github.com/hireloop/hireloop/internal/api/middleware"
)

type Deps struct {
	Interview *handlers.InterviewHandler
	Booking   *handlers.BookingHandler
	Profile   *handlers.ProfileHandler
	Capture   *handlers.CaptureWSHandler
	Viewer    *handlers.ViewerWSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Live view is gated by the per-stream viewer token, not an account.
	r.GET("/live/:session_id/watch", d.Viewer.Watch)

	// Protected routes (JWT)
	auth := r.Group("/")
	auth.Use(middleware.JWTAuth())

	auth.POST("/interview/start", d.Interview.Start)
	auth.GET("/interview/mine", d.Interview.ListMine)
	auth.GET("/interview/:session_id", d.Interview.Get)
	auth.GET("/interview/:session_id/summary", d.Interview.Summary)

	auth.GET("/interview/:session_id/stage/:order", d.Interview.Stage)
	auth.POST("/interview/:session_id/stage/:order/acknowledge", d.Interview.Acknowledge)
	auth.POST("/interview/:session_id/stage/:order/questions", d.Interview.GenerateQuestions)
	auth.POST("/interview/:session_id/stage/:order/submit", d.Interview.SubmitAnswer)
	auth.GET("/interview/:session_id/stage/:order/playback", d.Interview.Playback)

	auth.POST("/interview/:session_id/stage/:order/booking", d.Booking.Book)
	auth.POST("/interview/:session_id/stage/:order/booking/confirm", d.Booking.Confirm)

	auth.GET("/profile/me", d.Profile.Me)
	auth.PUT("/profile/update", d.Profile.Update)

	// WebSocket capture for interactive stages
	auth.GET("/ws/interview/:session_id/stage/:order/capture", d.Capture.StageCapture)

	// Admin (HR) surface
	admin := auth.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	admin.GET("/interviews", d.Interview.ListForCandidate)
}
