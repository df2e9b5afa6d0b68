package voice

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hireloop/hireloop/internal/models"
	"github.com/hireloop/hireloop/internal/utils"
)

// ConnState is the voice channel's connection state. A failed or dropped
// channel degrades coaching to text-only; it never fails the stage attempt.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateFailed
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Channel is one bidirectional voice session between a candidate's live
// demo and the conversational agent. It tracks turn history, exposes a
// speaking flag while the agent streams, and accepts out-of-band
// contextual updates (coaching nudges).
type Channel struct {
	backend      AgentBackend
	systemPrompt string

	mu       sync.Mutex
	state    ConnState
	speaking bool
	history  []models.TranscriptMessage

	onUtterance func(role, text string)
	onState     func(ConnState)
	onSpeaking  func(bool)

	now func() time.Time
}

func NewChannel(backend AgentBackend, systemPrompt string) *Channel {
	return &Channel{
		backend:      backend,
		systemPrompt: systemPrompt,
		state:        StateDisconnected,
		now:          time.Now,
	}
}

// SetCallbacks wires utterance/state/speaking event sinks. Call before Connect.
func (c *Channel) SetCallbacks(onUtterance func(role, text string), onState func(ConnState), onSpeaking func(bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUtterance = onUtterance
	c.onState = onState
	c.onSpeaking = onSpeaking
}

func (c *Channel) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Channel) Speaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speaking
}

// History returns the accumulated turn list (agent + candidate).
func (c *Channel) History() []models.TranscriptMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.TranscriptMessage, len(c.history))
	copy(out, c.history)
	return out
}

func (c *Channel) Connect(ctx context.Context) error {
	const op = "VoiceChannel.Connect"

	c.setState(StateConnecting)
	if err := c.backend.Start(ctx); err != nil {
		c.setState(StateFailed)
		return utils.E(utils.CodeUnavailable, op, "voice agent unavailable", err)
	}
	c.setState(StateConnected)
	return nil
}

// HandleCandidateUtterance records the candidate's transcribed speech and
// streams the agent's spoken reply. On backend failure the channel flips to
// failed; the candidate utterance is kept either way.
func (c *Channel) HandleCandidateUtterance(ctx context.Context, text string) error {
	const op = "VoiceChannel.HandleCandidateUtterance"

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	c.record(models.RoleCandidate, text)

	c.mu.Lock()
	connected := c.state == StateConnected
	c.mu.Unlock()
	if !connected {
		return utils.E(utils.CodeUnavailable, op, "voice channel not connected", nil)
	}

	return c.speak(ctx, op, text)
}

// SendContextualUpdate pushes an out-of-band coaching nudge to the agent,
// which speaks it in its own words. Callers display the cue as text
// regardless of whether this succeeds.
func (c *Channel) SendContextualUpdate(ctx context.Context, cue string) error {
	const op = "VoiceChannel.SendContextualUpdate"

	c.mu.Lock()
	connected := c.state == StateConnected
	c.mu.Unlock()
	if !connected {
		return utils.E(utils.CodeUnavailable, op, "voice channel not connected", nil)
	}

	return c.speak(ctx, op, "(coaching nudge, relay to the candidate naturally) "+cue)
}

// speak streams one agent reply to input and records it as an agent turn.
func (c *Channel) speak(ctx context.Context, op, input string) error {
	c.mu.Lock()
	history := make([]models.TranscriptMessage, len(c.history))
	copy(history, c.history)
	c.mu.Unlock()

	c.setSpeaking(true)
	defer c.setSpeaking(false)

	chunks, errs := c.backend.StreamReply(ctx, c.systemPrompt, history, input)

	var full strings.Builder
	for chunk := range chunks {
		full.WriteString(chunk)
	}

	var streamErr error
	select {
	case streamErr = <-errs:
	default:
	}
	if streamErr != nil {
		c.setState(StateFailed)
		return utils.E(utils.CodeUnavailable, op, "voice agent stream failed", streamErr)
	}

	reply := strings.TrimSpace(full.String())
	if reply != "" {
		c.record(models.RoleAgent, reply)
	}
	return nil
}

// Close sends the scripted closing message (when still connected), waits up
// to drain for it to be spoken, then disconnects. Skipping the drain is a
// quality loss, not a correctness issue.
func (c *Channel) Close(ctx context.Context, closingMessage string, drain time.Duration) {
	c.mu.Lock()
	connected := c.state == StateConnected
	c.mu.Unlock()

	if connected && closingMessage != "" {
		drainCtx := ctx
		if drain > 0 {
			var cancel context.CancelFunc
			drainCtx, cancel = context.WithTimeout(ctx, drain)
			defer cancel()
		}
		_ = c.speak(drainCtx, "VoiceChannel.Close", closingMessage)
	}

	c.setState(StateDisconnected)
}

func (c *Channel) record(role, text string) {
	c.mu.Lock()
	msg := models.TranscriptMessage{
		Role:      role,
		Content:   text,
		Timestamp: c.now().UTC(),
	}
	c.history = append(c.history, msg)
	cb := c.onUtterance
	c.mu.Unlock()

	if cb != nil {
		cb(role, text)
	}
}

func (c *Channel) setState(s ConnState) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	cb := c.onState
	c.mu.Unlock()

	if cb != nil {
		cb(s)
	}
}

func (c *Channel) setSpeaking(v bool) {
	c.mu.Lock()
	if c.speaking == v {
		c.mu.Unlock()
		return
	}
	c.speaking = v
	cb := c.onSpeaking
	c.mu.Unlock()

	if cb != nil {
		cb(v)
	}
}
