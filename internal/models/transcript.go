package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Transcript roles.
const (
	RoleAgent     = "agent"
	RoleCandidate = "candidate"
)

// TranscriptMessage is one utterance captured during a live demo, from
// either the voice agent or the candidate (via STT). Buffered in Mongo
// with a TTL so an abandoned attempt cleans itself up; the full set is
// handed to the oracle at stage end and not retained past the TTL.
type TranscriptMessage struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID  string             `bson:"session_id" json:"session_id"`
	StageOrder int                `bson:"stage_order" json:"stage_order"`

	Role    string `bson:"role" json:"role"` // agent|candidate
	Content string `bson:"content" json:"content"`

	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	ExpiresAt time.Time `bson:"expires_at" json:"-"` // for TTL index
}
