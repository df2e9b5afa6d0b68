package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// QuestionScore is one element of the per-question breakdown returned by
// the evaluation oracle, stored verbatim inside StageResult.QuestionScores.
type QuestionScore struct {
	QuestionID string `json:"question_id"`
	Score      int    `json:"score"`
	Feedback   string `json:"feedback,omitempty"`
}

// StageResult is the at-most-once evaluation outcome for one
// (session, stage_order) pair. CompletedAt == nil means the stage has not
// been completed; once set, the row is immutable from the candidate's view.
type StageResult struct {
	ID         string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SessionID  string `gorm:"column:session_id;type:uuid;uniqueIndex:uniq_session_stage" json:"session_id"`
	StageOrder int    `gorm:"column:stage_order;uniqueIndex:uniq_session_stage" json:"stage_order"`

	// Score is nil for stages that are never AI-evaluated (informational,
	// slot booking, reviews).
	Score  *int `gorm:"column:score" json:"score,omitempty"`
	Passed bool `gorm:"column:passed" json:"passed"`

	Feedback     string         `gorm:"column:feedback;type:text" json:"feedback,omitempty"`
	Strengths    pq.StringArray `gorm:"column:strengths;type:text[]" json:"strengths,omitempty"`
	Improvements pq.StringArray `gorm:"column:improvements;type:text[]" json:"improvements,omitempty"`

	QuestionScores datatypes.JSON `gorm:"column:question_scores;type:jsonb" json:"question_scores,omitempty"`

	RecordingRef    *string `gorm:"column:recording_ref;type:text" json:"recording_ref,omitempty"`
	DurationSeconds int     `gorm:"column:duration_seconds" json:"duration_seconds,omitempty"`

	CompletedAt *time.Time `gorm:"column:completed_at;type:timestamptz" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"column:created_at;type:timestamptz" json:"created_at"`
}

func (StageResult) TableName() string { return "stage_results" }

// IsCompleted reports whether the result has been stamped. Only a stamped
// result blocks re-entry into its stage.
func (r *StageResult) IsCompleted() bool {
	return r != nil && r.CompletedAt != nil
}
