package notify

import "context"

// Notification is the fire-and-forget message telling a candidate their
// next stage is ready (or the whole interview is complete).
type Notification struct {
	CandidateEmail   string `json:"candidate_email"`
	SessionID        string `json:"session_id"`
	StageOrder       int    `json:"stage_order"`
	StageName        string `json:"stage_name"`
	StageDescription string `json:"stage_description"`
	Final            bool   `json:"final"`
}

// Dispatcher enqueues notifications. Failures are logged by callers, never
// retried by the core, and never block stage progression.
type Dispatcher interface {
	Notify(ctx context.Context, n Notification) error
}
