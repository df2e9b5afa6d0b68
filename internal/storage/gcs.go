package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/google/uuid"
)

type GCSArtifactStore struct {
	client *gcs.Client
	bucket string
}

func NewGCSArtifactStore(ctx context.Context, bucket string) (*GCSArtifactStore, error) {
	c, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GCSArtifactStore{client: c, bucket: bucket}, nil
}

func (s *GCSArtifactStore) Close() error { return s.client.Close() }

func (s *GCSArtifactStore) Upload(ctx context.Context, sessionID string, stageOrder int, contentType string, r io.Reader) (string, error) {
	objectName := fmt.Sprintf("recordings/%s/stage-%d-%s.webm", sessionID, stageOrder, uuid.NewString())

	obj := s.client.Bucket(s.bucket).Object(objectName)
	w := obj.NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	// The object name is the opaque artifact ref; playback goes through
	// signed URLs, recordings stay private.
	return objectName, nil
}

func (s *GCSArtifactStore) PlaybackURL(ctx context.Context, ref string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return s.client.Bucket(s.bucket).SignedURL(ref, &gcs.SignedURLOptions{
		Method:  http.MethodGet,
		Expires: time.Now().Add(ttl),
	})
}
