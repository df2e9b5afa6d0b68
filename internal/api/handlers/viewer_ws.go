package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/hireloop/hireloop/internal/broadcast"
	"github.com/hireloop/hireloop/internal/engine"
	"github.com/hireloop/hireloop/internal/utils"
)

// ViewerWSHandler serves the read-only live view: anyone with the current
// viewer token can watch, no account needed. Frames arrive over Redis
// pub/sub from the broadcaster and are forwarded as-is.
type ViewerWSHandler struct {
	eng      *engine.Engine
	redis    *redis.Client
	hubs     *broadcast.HubRegistry
	log      *logrus.Entry
	upgrader websocket.Upgrader
}

func NewViewerWSHandler(eng *engine.Engine, rdb *redis.Client, hubs *broadcast.HubRegistry, log *logrus.Entry) *ViewerWSHandler {
	return &ViewerWSHandler{
		eng:   eng,
		redis: rdb,
		hubs:  hubs,
		log:   log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

func (h *ViewerWSHandler) Watch(c *gin.Context) {
	const op = "ViewerWSHandler.Watch"

	sessionID := c.Param("session_id")
	token := c.Query("token")
	if sessionID == "" || token == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "session_id and token are required", nil))
		return
	}

	// token gate; a rotated or stopped stream rejects here
	if err := h.eng.VerifyLiveViewToken(c.Request.Context(), sessionID, token); err != nil {
		writeError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	if hub, ok := h.hubs.Get(sessionID); ok {
		hub.ViewerJoined(ctx)
		defer hub.ViewerLeft(context.WithoutCancel(ctx))
	}

	pubsub := h.redis.Subscribe(ctx,
		broadcast.MediaChannel(sessionID),
		broadcast.StatusChannel(sessionID),
	)
	defer pubsub.Close()

	// reader: drain client frames, detect close
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		conn.SetReadLimit(1 << 10)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	wc.writeEvent("watching", map[string]any{"session_id": sessionID})

	ch := pubsub.Channel()
	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-readDone:
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			wc.mu.Lock()
			_ = wc.c.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			wc.mu.Unlock()
		case m, ok := <-ch:
			if !ok {
				return
			}
			wc.mu.Lock()
			wc.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
			err := wc.c.WriteMessage(websocket.TextMessage, []byte(m.Payload))
			wc.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
