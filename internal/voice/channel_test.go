package voice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hireloop/hireloop/internal/models"
	"github.com/hireloop/hireloop/internal/utils"
)

type fakeBackend struct {
	startErr  error
	streamErr error
	reply     string
	calls     int
}

func (b *fakeBackend) Start(ctx context.Context) error { return b.startErr }

func (b *fakeBackend) StreamReply(ctx context.Context, systemPrompt string, history []models.TranscriptMessage, input string) (<-chan string, <-chan error) {
	b.calls++
	out := make(chan string, 4)
	errs := make(chan error, 1)
	if b.streamErr != nil {
		errs <- b.streamErr
	} else {
		out <- b.reply[:len(b.reply)/2]
		out <- b.reply[len(b.reply)/2:]
	}
	close(out)
	close(errs)
	return out, errs
}

func (b *fakeBackend) Close() error { return nil }

func TestChannelConnect(t *testing.T) {
	c := NewChannel(&fakeBackend{reply: "hello there"}, "")

	var states []ConnState
	c.SetCallbacks(nil, func(s ConnState) { states = append(states, s) }, nil)

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if c.State() != StateConnected {
		t.Errorf("state = %v, want connected", c.State())
	}
	if len(states) != 2 || states[0] != StateConnecting || states[1] != StateConnected {
		t.Errorf("state transitions = %v", states)
	}
}

func TestChannelConnectFailure(t *testing.T) {
	c := NewChannel(&fakeBackend{startErr: errors.New("no quota")}, "")

	err := c.Connect(context.Background())
	if !utils.IsCode(err, utils.CodeUnavailable) {
		t.Fatalf("expected UNAVAILABLE, got %v", err)
	}
	if c.State() != StateFailed {
		t.Errorf("state = %v, want failed", c.State())
	}
}

func TestCandidateUtteranceGetsAgentReply(t *testing.T) {
	b := &fakeBackend{reply: "good point!"}
	c := NewChannel(b, "")

	type utt struct{ role, text string }
	var utterances []utt
	var speakingEvents []bool
	c.SetCallbacks(
		func(role, text string) { utterances = append(utterances, utt{role, text}) },
		nil,
		func(v bool) { speakingEvents = append(speakingEvents, v) },
	)

	ctx := context.Background()
	if err := c.Connect(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.HandleCandidateUtterance(ctx, "today we cover fractions"); err != nil {
		t.Fatalf("HandleCandidateUtterance: %v", err)
	}

	if len(utterances) != 2 {
		t.Fatalf("got %d utterances, want 2: %v", len(utterances), utterances)
	}
	if utterances[0].role != models.RoleCandidate || utterances[1].role != models.RoleAgent {
		t.Errorf("roles = %v", utterances)
	}
	if utterances[1].text != "good point!" {
		t.Errorf("agent reply = %q", utterances[1].text)
	}

	// speaking toggles true then false around the stream
	if len(speakingEvents) != 2 || !speakingEvents[0] || speakingEvents[1] {
		t.Errorf("speaking events = %v", speakingEvents)
	}

	history := c.History()
	if len(history) != 2 {
		t.Errorf("history length = %d, want 2", len(history))
	}
}

func TestContextualUpdateRequiresConnection(t *testing.T) {
	c := NewChannel(&fakeBackend{reply: "ok"}, "")

	err := c.SendContextualUpdate(context.Background(), "introduce yourself")
	if !utils.IsCode(err, utils.CodeUnavailable) {
		t.Errorf("expected UNAVAILABLE without connection, got %v", err)
	}
}

func TestStreamFailureDegradesChannel(t *testing.T) {
	b := &fakeBackend{reply: "x", streamErr: errors.New("stream reset")}
	c := NewChannel(b, "")
	ctx := context.Background()

	if err := c.Connect(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.HandleCandidateUtterance(ctx, "hello"); err == nil {
		t.Fatal("expected stream error")
	}
	if c.State() != StateFailed {
		t.Errorf("state = %v, want failed", c.State())
	}
	if c.Speaking() {
		t.Error("speaking flag must reset after a failed stream")
	}

	// the candidate utterance is kept even when the reply failed
	history := c.History()
	if len(history) != 1 || history[0].Role != models.RoleCandidate {
		t.Errorf("history = %v", history)
	}
}

func TestCloseSendsClosingMessageThenDisconnects(t *testing.T) {
	b := &fakeBackend{reply: "great session, goodbye!"}
	c := NewChannel(b, "")
	ctx := context.Background()

	if err := c.Connect(ctx); err != nil {
		t.Fatal(err)
	}
	c.Close(ctx, "wrap up and thank the candidate", 2*time.Second)

	if c.State() != StateDisconnected {
		t.Errorf("state = %v, want disconnected", c.State())
	}
	history := c.History()
	if len(history) != 1 || history[0].Role != models.RoleAgent {
		t.Errorf("expected one agent closing turn, got %v", history)
	}
}

func TestCloseWhenAlreadyDownSkipsClosingMessage(t *testing.T) {
	b := &fakeBackend{reply: "bye"}
	c := NewChannel(b, "")

	c.Close(context.Background(), "wrap up", time.Second)

	if b.calls != 0 {
		t.Errorf("backend called %d times on a dead channel, want 0", b.calls)
	}
	if c.State() != StateDisconnected {
		t.Errorf("state = %v, want disconnected", c.State())
	}
}

func TestSessionTokenRoundTrip(t *testing.T) {
	tok, err := MintSessionToken("secret", "s1", "coach prompt", time.Hour)
	if err != nil {
		t.Fatalf("MintSessionToken: %v", err)
	}

	sessionID, prompt, err := ParseSessionToken("secret", tok)
	if err != nil {
		t.Fatalf("ParseSessionToken: %v", err)
	}
	if sessionID != "s1" || prompt != "coach prompt" {
		t.Errorf("claims = (%q, %q)", sessionID, prompt)
	}

	if _, _, err := ParseSessionToken("other-secret", tok); err == nil {
		t.Error("token must not parse under a different secret")
	}
}
