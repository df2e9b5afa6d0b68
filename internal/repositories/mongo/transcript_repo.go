package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hireloop/hireloop/internal/models"
)

type TranscriptRepository interface {
	Append(ctx context.Context, m *models.TranscriptMessage) error
	ListByAttempt(ctx context.Context, sessionID string, stageOrder int) ([]models.TranscriptMessage, error)
	DeleteByAttempt(ctx context.Context, sessionID string, stageOrder int) error
}

type transcriptRepo struct {
	col *mongo.Collection
}

func NewTranscriptRepo(db *mongo.Database) TranscriptRepository {
	return &transcriptRepo{col: db.Collection("live_transcripts")}
}

func (r *transcriptRepo) Append(ctx context.Context, m *models.TranscriptMessage) error {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, m)
	return err
}

func (r *transcriptRepo) ListByAttempt(ctx context.Context, sessionID string, stageOrder int) ([]models.TranscriptMessage, error) {
	cur, err := r.col.Find(ctx,
		bson.M{"session_id": sessionID, "stage_order": stageOrder},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.TranscriptMessage
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *transcriptRepo) DeleteByAttempt(ctx context.Context, sessionID string, stageOrder int) error {
	_, err := r.col.DeleteMany(ctx, bson.M{"session_id": sessionID, "stage_order": stageOrder})
	return err
}
