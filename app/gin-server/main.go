package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/hireloop/hireloop/config"
	"github.com/hireloop/hireloop/internal/api/handlers"
	"github.com/hireloop/hireloop/internal/api/middleware"
	"github.com/hireloop/hireloop/internal/api/routes"
	"github.com/hireloop/hireloop/internal/broadcast"
	"github.com/hireloop/hireloop/internal/cache"
	"github.com/hireloop/hireloop/internal/engine"
	"github.com/hireloop/hireloop/internal/logger"
	"github.com/hireloop/hireloop/internal/providers/notify"
	"github.com/hireloop/hireloop/internal/providers/oracle"
	"github.com/hireloop/hireloop/internal/providers/stt"
	mongorepo "github.com/hireloop/hireloop/internal/repositories/mongo"
	pgrepo "github.com/hireloop/hireloop/internal/repositories/postgres"
	"github.com/hireloop/hireloop/internal/services"
	"github.com/hireloop/hireloop/internal/stage"
	"github.com/hireloop/hireloop/internal/storage"
	"github.com/hireloop/hireloop/internal/voice"
	"github.com/hireloop/hireloop/internal/workers"
)

func main() {
	_ = godotenv.Load()

	l := logger.New()
	ctx := context.Background()

	// Datastores
	if err := config.InitPostgres(); err != nil {
		log.Fatalf("PostgreSQL init error: %v", err)
	}
	if err := config.MigratePostgres(); err != nil {
		log.Fatalf("PostgreSQL migrate error: %v", err)
	}
	if err := config.InitMongo(); err != nil {
		log.Fatalf("MongoDB init error: %v", err)
	}
	if err := config.EnsureMongoIndexes(); err != nil {
		log.Fatalf("MongoDB index error: %v", err)
	}
	if err := config.InitRedis(); err != nil {
		log.Fatalf("Redis init error: %v", err)
	}
	l.Info("datastores connected")

	// Repositories
	sessions := pgrepo.NewSessionRepo(config.PostgresDB)
	results := pgrepo.NewResultRepo(config.PostgresDB)
	bookings := pgrepo.NewBookingRepo(config.PostgresDB)
	profiles := pgrepo.NewProfileRepo(config.PostgresDB)
	chunks := mongorepo.NewChunkRepo(config.MongoDatabase())
	transcripts := mongorepo.NewTranscriptRepo(config.MongoDatabase())

	// Providers
	projectID := os.Getenv("GCP_PROJECT_ID")
	location := os.Getenv("GCP_LOCATION")
	if location == "" {
		location = "us-central1"
	}

	evalOracle, err := oracle.NewVertexGemini(ctx, projectID, location, os.Getenv("GEMINI_MODEL"))
	if err != nil {
		log.Fatalf("Vertex init error: %v", err)
	}
	defer evalOracle.Close()

	agent, err := voice.NewVertexAgent(ctx, projectID, location, os.Getenv("VOICE_AGENT_MODEL"))
	if err != nil {
		log.Fatalf("voice agent init error: %v", err)
	}
	defer agent.Close()

	speech, err := stt.NewGoogleSpeech(ctx)
	if err != nil {
		log.Fatalf("Speech init error: %v", err)
	}
	defer speech.Close()

	artifacts, err := storage.NewGCSArtifactStore(ctx, os.Getenv("GCS_BUCKET"))
	if err != nil {
		log.Fatalf("GCS init error: %v", err)
	}
	defer artifacts.Close()

	dispatcher := notify.NewRedisDispatcher(config.RedisClient)

	// Notification worker pool
	pool := &workers.NotifyWorkerPool{
		Redis:      config.RedisClient,
		Sender:     &workers.LogSender{Logger: l},
		NumWorkers: 2,
		Logger:     l,
	}
	if err := pool.Start(ctx); err != nil {
		log.Fatalf("notify worker error: %v", err)
	}

	// Engine + services
	eng := engine.New(engine.Deps{
		Catalog:     stage.Default(),
		Sessions:    sessions,
		Results:     results,
		Bookings:    bookings,
		Profiles:    profiles,
		Transcripts: transcripts,
		Oracle:      evalOracle,
		Notifier:    dispatcher,
		Artifacts:   artifacts,
		Cache:       cache.NewRedisCache(config.RedisClient),
		Log:         logger.Component(l, "engine"),
	})

	interviews := services.NewInterviewService(sessions)
	profileSvc := services.NewProfileService(profiles)

	hubs := broadcast.NewHubRegistry()
	publisher := broadcast.NewRedisPublisher(config.RedisClient)

	// HTTP surface
	r := gin.New()
	r.Use(middleware.RequestLogger(l), gin.Recovery())

	routes.RegisterRoutes(r, routes.Deps{
		Interview: handlers.NewInterviewHandler(interviews, eng),
		Booking:   handlers.NewBookingHandler(interviews, eng),
		Profile:   handlers.NewProfileHandler(profileSvc),
		Capture: handlers.NewCaptureWSHandler(
			interviews, eng, chunks, artifacts, publisher, hubs,
			agent, speech, engine.SystemScheduler(), logger.Component(l, "capture"),
		),
		Viewer: handlers.NewViewerWSHandler(eng, config.RedisClient, hubs, logger.Component(l, "viewer")),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
