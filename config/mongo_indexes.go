package config

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func EnsureMongoIndexes() error {
	if MongoClient == nil {
		return errors.New("MongoClient is nil; call InitMongo() first")
	}
	db := MongoDatabase()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// recording_chunks indexes
	chunks := db.Collection("recording_chunks")
	_, err := chunks.Indexes().CreateMany(ctx, []mongo.IndexModel{
		// 1) TTL: reap chunks of abandoned attempts
		{
			Keys: bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().
				SetName("ttl_expires_at").
				SetExpireAfterSeconds(0),
		},
		// 2) No duplicate chunk per attempt
		{
			Keys: bson.D{
				{Key: "session_id", Value: 1},
				{Key: "stage_order", Value: 1},
				{Key: "chunk_index", Value: 1},
			},
			Options: options.Index().
				SetName("uniq_attempt_chunk").
				SetUnique(true),
		},
		// 3) Seal-time ordered read
		{
			Keys: bson.D{
				{Key: "session_id", Value: 1},
				{Key: "stage_order", Value: 1},
				{Key: "timestamp", Value: -1},
			},
			Options: options.Index().SetName("by_attempt_ts"),
		},
	})
	if err != nil {
		return err
	}

	// live_transcripts indexes
	transcripts := db.Collection("live_transcripts")
	_, err = transcripts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().
				SetName("ttl_expires_at").
				SetExpireAfterSeconds(0),
		},
		{
			Keys: bson.D{
				{Key: "session_id", Value: 1},
				{Key: "stage_order", Value: 1},
				{Key: "timestamp", Value: 1},
			},
			Options: options.Index().SetName("by_attempt_ts"),
		},
	})
	return err
}
