package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hireloop/hireloop/internal/models"
)

type ChunkRepository interface {
	InsertChunk(ctx context.Context, c *models.RecordingChunk) error
	ListByAttempt(ctx context.Context, sessionID string, stageOrder int) ([]models.RecordingChunk, error)
	DeleteByAttempt(ctx context.Context, sessionID string, stageOrder int) error
}

type chunkRepo struct {
	col *mongo.Collection
}

func NewChunkRepo(db *mongo.Database) ChunkRepository {
	return &chunkRepo{col: db.Collection("recording_chunks")}
}

func (r *chunkRepo) InsertChunk(ctx context.Context, c *models.RecordingChunk) error {
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now().UTC()
	}
	c.SizeBytes = len(c.Data)
	_, err := r.col.InsertOne(ctx, c)
	return err
}

// ListByAttempt returns the attempt's chunks in chunk_index order, ready
// for sealing into one blob.
func (r *chunkRepo) ListByAttempt(ctx context.Context, sessionID string, stageOrder int) ([]models.RecordingChunk, error) {
	cur, err := r.col.Find(ctx,
		bson.M{"session_id": sessionID, "stage_order": stageOrder},
		options.Find().SetSort(bson.D{{Key: "chunk_index", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.RecordingChunk
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *chunkRepo) DeleteByAttempt(ctx context.Context, sessionID string, stageOrder int) error {
	_, err := r.col.DeleteMany(ctx, bson.M{"session_id": sessionID, "stage_order": stageOrder})
	return err
}
