package cache

import (
	"context"
	"fmt"
	"time"
)

type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// ResultKey caches a completed StageResult; completed results are immutable
// so the entry never needs invalidation, only expiry.
func ResultKey(sessionID string, stageOrder int) string {
	return fmt.Sprintf("result:%s:%d", sessionID, stageOrder)
}
