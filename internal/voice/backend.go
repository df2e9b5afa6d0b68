package voice

import (
	"context"
	"fmt"
	"strings"

	vertexgenai "cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/iterator"

	"github.com/hireloop/hireloop/internal/models"
)

// AgentBackend generates the conversational agent's replies. One backend
// serves many channels; per-session state lives in the Channel.
type AgentBackend interface {
	// Start verifies the backend is reachable before a channel reports
	// itself connected.
	Start(ctx context.Context) error

	// StreamReply returns the agent's reply to `input` as incremental text
	// chunks, given the conversation so far.
	StreamReply(ctx context.Context, systemPrompt string, history []models.TranscriptMessage, input string) (chunks <-chan string, errs <-chan error)

	Close() error
}

// VertexAgent backs the voice channel with a streaming Gemini model.
type VertexAgent struct {
	client *vertexgenai.Client
	model  *vertexgenai.GenerativeModel
}

func NewVertexAgent(ctx context.Context, projectID, location, modelName string) (*VertexAgent, error) {
	c, err := vertexgenai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, err
	}

	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	return &VertexAgent{client: c, model: c.GenerativeModel(modelName)}, nil
}

func (v *VertexAgent) Start(ctx context.Context) error { return nil }

func (v *VertexAgent) Close() error { return v.client.Close() }

func (v *VertexAgent) StreamReply(ctx context.Context, systemPrompt string, history []models.TranscriptMessage, input string) (<-chan string, <-chan error) {
	out := make(chan string, 32)
	errs := make(chan error, 1)

	prompt := buildAgentPrompt(systemPrompt, history, input)

	go func() {
		defer close(out)
		defer close(errs)

		it := v.model.GenerateContentStream(ctx, vertexgenai.Text(prompt))
		for {
			resp, err := it.Next()
			if err == iterator.Done {
				return
			}
			if err != nil {
				errs <- err
				return
			}

			for _, cand := range resp.Candidates {
				if cand.Content == nil {
					continue
				}
				for _, part := range cand.Content.Parts {
					if t, ok := part.(vertexgenai.Text); ok && string(t) != "" {
						out <- string(t)
					}
				}
			}
		}
	}()

	return out, errs
}

func buildAgentPrompt(systemPrompt string, history []models.TranscriptMessage, input string) string {
	var sb strings.Builder
	if systemPrompt == "" {
		systemPrompt = "You are a friendly teaching-demo coach. Reply in one or two short spoken sentences."
	}
	sb.WriteString(systemPrompt + "\n\n")
	for _, m := range history {
		fmt.Fprintf(&sb, "[%s] %s\n", m.Role, m.Content)
	}
	sb.WriteString("\n" + input + "\n")
	return sb.String()
}
