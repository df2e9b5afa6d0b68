package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RecordingChunk is one uploaded media chunk of an in-progress recording.
// Chunks accumulate per (session, stage, chunk_index) while a stage attempt
// is live and are sealed into one blob at stop; the TTL index reaps chunks
// of abandoned attempts.
type RecordingChunk struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID  string             `bson:"session_id" json:"session_id"`
	StageOrder int                `bson:"stage_order" json:"stage_order"`
	ChunkIndex int64              `bson:"chunk_index" json:"chunk_index"`

	Data      []byte `bson:"data" json:"-"`
	SizeBytes int    `bson:"size_bytes" json:"size_bytes"`

	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	ExpiresAt time.Time `bson:"expires_at" json:"-"` // for TTL index
}
