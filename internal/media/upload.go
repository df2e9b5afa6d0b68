package media

import (
	"bytes"
	"context"
	"time"

	"github.com/hireloop/hireloop/internal/storage"
	"github.com/hireloop/hireloop/internal/utils"
)

// UploadBlob pushes a sealed recording to the artifact store, retrying
// transient failures. Upload must succeed before evaluation can start:
// the oracle receives the returned ref, never raw bytes.
func UploadBlob(ctx context.Context, store storage.ArtifactStore, sessionID string, stageOrder int, blob *Blob, attempts int) (string, error) {
	const op = "media.UploadBlob"

	if attempts <= 0 {
		attempts = 3
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return "", utils.E(utils.CodeTimeout, op, "upload cancelled", ctx.Err())
			case <-time.After(time.Duration(i) * 500 * time.Millisecond):
			}
		}

		ref, err := store.Upload(ctx, sessionID, stageOrder, "video/webm", bytes.NewReader(blob.Data))
		if err == nil {
			return ref, nil
		}
		lastErr = err
	}
	return "", utils.E(utils.CodeUnavailable, op, "recording upload failed", lastErr)
}
