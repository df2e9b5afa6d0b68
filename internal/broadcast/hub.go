package broadcast

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Status is the tri-state broadcast connection indicator. It feeds UI
// badges only; a failed broadcast never aborts recording or evaluation.
type Status int

const (
	StatusConnecting Status = iota
	StatusConnected
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Publisher is the fan-out transport (Redis pub/sub in production).
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// RedisPublisher adapts a redis client to the Publisher contract.
type RedisPublisher struct {
	rdb *redis.Client
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	return p.rdb.Publish(ctx, channel, payload).Err()
}

// MediaChannel carries relayed media frames for one session's live view.
func MediaChannel(sessionID string) string { return "live:" + sessionID + ":media" }

// StatusChannel carries viewer-facing status and viewer-count events.
func StatusChannel(sessionID string) string { return "live:" + sessionID + ":status" }

// Hub relays a broadcaster's media frames to zero or more viewers and
// tracks a monotonic peak viewer count. All failures degrade the status;
// none of them propagate to the recording path.
type Hub struct {
	pub       Publisher
	sessionID string

	mu      sync.Mutex
	status  Status
	viewers int
	peak    int

	onStatus  func(Status)
	onViewers func(current, peak int)
}

func NewHub(pub Publisher, sessionID string) *Hub {
	return &Hub{
		pub:       pub,
		sessionID: sessionID,
		status:    StatusConnecting,
	}
}

// SetCallbacks wires the UI-facing event sinks. Must be called before Start.
func (h *Hub) SetCallbacks(onStatus func(Status), onViewers func(current, peak int)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onStatus = onStatus
	h.onViewers = onViewers
}

// Start announces the broadcast. A transport failure leaves the hub in
// StatusFailed and is otherwise swallowed.
func (h *Hub) Start(ctx context.Context) {
	if err := h.publishStatus(ctx, "broadcast_started"); err != nil {
		h.setStatus(StatusFailed)
		return
	}
	h.setStatus(StatusConnected)
}

// PublishFrame relays one media frame to viewers. Frames are dropped once
// the hub has failed; the caller keeps recording regardless.
func (h *Hub) PublishFrame(ctx context.Context, frame []byte) {
	h.mu.Lock()
	if h.status == StatusFailed {
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	payload, _ := json.Marshal(map[string]any{
		"type": "media",
		"data": base64.StdEncoding.EncodeToString(frame),
	})
	if err := h.pub.Publish(ctx, MediaChannel(h.sessionID), payload); err != nil {
		h.setStatus(StatusFailed)
	}
}

// ViewerJoined bumps the viewer count. Peak only ever grows.
func (h *Hub) ViewerJoined(ctx context.Context) {
	h.mu.Lock()
	h.viewers++
	if h.viewers > h.peak {
		h.peak = h.viewers
	}
	current, peak := h.viewers, h.peak
	cb := h.onViewers
	h.mu.Unlock()

	if cb != nil {
		cb(current, peak)
	}
	h.publishViewerCount(ctx, current, peak)
}

func (h *Hub) ViewerLeft(ctx context.Context) {
	h.mu.Lock()
	if h.viewers > 0 {
		h.viewers--
	}
	current, peak := h.viewers, h.peak
	cb := h.onViewers
	h.mu.Unlock()

	if cb != nil {
		cb(current, peak)
	}
	h.publishViewerCount(ctx, current, peak)
}

// Stop announces the end of the broadcast. Best-effort.
func (h *Hub) Stop(ctx context.Context) {
	_ = h.publishStatus(ctx, "broadcast_ended")
}

func (h *Hub) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

func (h *Hub) Viewers() (current, peak int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.viewers, h.peak
}

func (h *Hub) setStatus(s Status) {
	h.mu.Lock()
	if h.status == s {
		h.mu.Unlock()
		return
	}
	h.status = s
	cb := h.onStatus
	h.mu.Unlock()

	if cb != nil {
		cb(s)
	}
}

func (h *Hub) publishStatus(ctx context.Context, event string) error {
	payload, _ := json.Marshal(map[string]any{"type": event})
	return h.pub.Publish(ctx, StatusChannel(h.sessionID), payload)
}

func (h *Hub) publishViewerCount(ctx context.Context, current, peak int) {
	payload, _ := json.Marshal(map[string]any{
		"type":         "viewer_count",
		"viewers":      current,
		"peak_viewers": peak,
	})
	_ = h.pub.Publish(ctx, StatusChannel(h.sessionID), payload)
}
