package oracle

import (
	"context"

	"github.com/hireloop/hireloop/internal/models"
)

// EvalRequest is one evaluation call for a completed stage attempt. The
// oracle receives an artifact ref, never raw recording bytes.
type EvalRequest struct {
	SessionID  string
	StageOrder int
	StageName  string

	Questions []models.Question
	Answers   []models.Answer

	// Live-demo attempts only.
	Transcript      []models.TranscriptMessage
	RecordingRef    string
	DurationSeconds int

	Profile      *models.CandidateProfile
	PassingScore int
}

// EvalResult is persisted verbatim as the StageResult.
type EvalResult struct {
	Score          int                    `json:"score"`
	Passed         bool                   `json:"passed"`
	Feedback       string                 `json:"feedback"`
	Strengths      []string               `json:"strengths"`
	Improvements   []string               `json:"improvements"`
	QuestionScores []models.QuestionScore `json:"question_scores"`
}

type GenerateRequest struct {
	SessionID  string
	StageOrder int
	Profile    *models.CandidateProfile
	Count      int
}

// Provider is the black-box question/evaluation oracle. Calls may fail
// transiently; a failure must leave the caller's state untouched.
type Provider interface {
	Evaluate(ctx context.Context, req EvalRequest) (*EvalResult, error)
	GenerateQuestions(ctx context.Context, req GenerateRequest) ([]models.Question, error)
	Close() error
}
