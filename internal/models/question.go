package models

// QuestionType is the closed set of generated question shapes.
type QuestionType string

const (
	QuestionFreeText       QuestionType = "free_text"
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionScenario       QuestionType = "scenario"
)

// Question is generated fresh on each stage entry and lives only for the
// duration of one attempt; it is never persisted on its own.
type Question struct {
	ID       string       `json:"id"`
	Prompt   string       `json:"prompt"`
	Type     QuestionType `json:"type"`
	Choices  []string     `json:"choices,omitempty"`
	Category string       `json:"category,omitempty"`

	// KeyPoints are the expected answer points the oracle scores against.
	// Never sent to the candidate.
	KeyPoints []string `json:"-"`
}

// Answer pairs a question with the candidate's submitted text. An empty
// Text captured at timeout is a valid, scored submission.
type Answer struct {
	QuestionID string `json:"question_id"`
	Text       string `json:"text"`
}
