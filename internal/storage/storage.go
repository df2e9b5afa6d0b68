package storage

import (
	"context"
	"io"
	"time"
)

// ArtifactStore holds sealed recording blobs. The oracle only ever sees the
// opaque ref returned by Upload, never raw bytes.
type ArtifactStore interface {
	Upload(ctx context.Context, sessionID string, stageOrder int, contentType string, r io.Reader) (ref string, err error)
	PlaybackURL(ctx context.Context, ref string, ttl time.Duration) (string, error)
}
