package notify

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Stream is the Redis stream the notify worker pool consumes.
const Stream = "notify:stream"

// RedisDispatcher hands notifications off to the notify:stream; actual
// email delivery happens in the worker pool.
type RedisDispatcher struct {
	rdb *redis.Client
}

func NewRedisDispatcher(rdb *redis.Client) *RedisDispatcher {
	return &RedisDispatcher{rdb: rdb}
}

func (d *RedisDispatcher) Notify(ctx context.Context, n Notification) error {
	return d.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: Stream,
		Values: map[string]any{
			"candidate_email":   n.CandidateEmail,
			"session_id":        n.SessionID,
			"stage_order":       strconv.Itoa(n.StageOrder),
			"stage_name":        n.StageName,
			"stage_description": n.StageDescription,
			"final":             strconv.FormatBool(n.Final),
		},
	}).Err()
}
