package models

import "time"

// InterviewSession is one candidate's end-to-end attempt at the stage
// sequence. CurrentStageOrder only moves forward; retakes create a new
// session instead of rewinding this one.
type InterviewSession struct {
	ID          string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	CandidateID string `gorm:"column:candidate_id;type:uuid;index" json:"candidate_id"`
	JobID       string `gorm:"column:job_id;type:text" json:"job_id"`

	CandidateEmail string `gorm:"column:candidate_email;type:text" json:"candidate_email"`

	CurrentStageOrder int  `gorm:"column:current_stage_order" json:"current_stage_order"`
	Completed         bool `gorm:"column:completed" json:"completed"`

	// Live-view token, rotated per demo attempt. Only the bcrypt hash is
	// stored; the plaintext token goes to the candidate once.
	LiveViewTokenHash string     `gorm:"column:live_view_token_hash;type:text" json:"-"`
	LiveViewActive    bool       `gorm:"column:live_view_active" json:"live_view_active"`
	StreamStartedAt   *time.Time `gorm:"column:stream_started_at;type:timestamptz" json:"stream_started_at,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (InterviewSession) TableName() string { return "interview_sessions" }
