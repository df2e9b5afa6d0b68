package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// CandidateProfile is the context every stage evaluation runs against:
// subject, experience, resume. Passed explicitly into the engine at
// session-load time rather than looked up ambiently.
type CandidateProfile struct {
	UserID   string `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	FullName string `gorm:"column:full_name;type:text" json:"full_name"`
	Email    string `gorm:"column:email;type:text" json:"email"`

	Subject         string `gorm:"column:subject;type:text" json:"subject"`
	YearsExperience int    `gorm:"column:years_experience" json:"years_experience"`
	ResumeText      string `gorm:"column:resume_text;type:text" json:"resume_text"`

	Skills pq.StringArray `gorm:"column:skills;type:text[]" json:"skills"`

	// JSONB (raw JSON, flexible structure)
	Education   datatypes.JSON `gorm:"column:education;type:jsonb" json:"education"`
	Preferences datatypes.JSON `gorm:"column:preferences;type:jsonb" json:"preferences"`

	// pgvector: resume embedding used to personalize generated questions
	ResumeEmbedding pgvector.Vector `gorm:"column:resume_embedding;type:vector(768)" json:"-"`

	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (CandidateProfile) TableName() string { return "candidate_profiles" }
