package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	vertexgenai "cloud.google.com/go/vertexai/genai"
	"github.com/google/uuid"

	"github.com/hireloop/hireloop/internal/models"
)

type VertexGemini struct {
	client *vertexgenai.Client
	model  *vertexgenai.GenerativeModel
}

func NewVertexGemini(ctx context.Context, projectID, location, modelName string) (*VertexGemini, error) {
	c, err := vertexgenai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, err
	}

	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	m := c.GenerativeModel(modelName)
	m.GenerationConfig.ResponseMIMEType = "application/json"

	return &VertexGemini{client: c, model: m}, nil
}

func (v *VertexGemini) Close() error { return v.client.Close() }

func (v *VertexGemini) Evaluate(ctx context.Context, req EvalRequest) (*EvalResult, error) {
	prompt := buildEvalPrompt(req)

	raw, err := v.generateJSON(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var out EvalResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("oracle returned malformed evaluation: %w", err)
	}

	if out.Score < 0 {
		out.Score = 0
	}
	if out.Score > 100 {
		out.Score = 100
	}
	// Passed is derived from the stage threshold, not trusted from the model.
	out.Passed = out.Score >= req.PassingScore

	return &out, nil
}

func (v *VertexGemini) GenerateQuestions(ctx context.Context, req GenerateRequest) ([]models.Question, error) {
	if req.Count <= 0 {
		return nil, errors.New("question count must be > 0")
	}

	raw, err := v.generateJSON(ctx, buildGeneratePrompt(req))
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Questions []struct {
			Prompt    string   `json:"prompt"`
			Type      string   `json:"type"`
			Choices   []string `json:"choices"`
			Category  string   `json:"category"`
			KeyPoints []string `json:"key_points"`
		} `json:"questions"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("oracle returned malformed questions: %w", err)
	}
	if len(parsed.Questions) == 0 {
		return nil, errors.New("oracle returned no questions")
	}

	out := make([]models.Question, 0, req.Count)
	for _, q := range parsed.Questions {
		if len(out) == req.Count {
			break
		}
		typ := models.QuestionType(q.Type)
		switch typ {
		case models.QuestionFreeText, models.QuestionMultipleChoice, models.QuestionScenario:
		default:
			typ = models.QuestionFreeText
		}
		out = append(out, models.Question{
			ID:        uuid.NewString(),
			Prompt:    q.Prompt,
			Type:      typ,
			Choices:   q.Choices,
			Category:  q.Category,
			KeyPoints: q.KeyPoints,
		})
	}
	return out, nil
}

func (v *VertexGemini) generateJSON(ctx context.Context, prompt string) ([]byte, error) {
	resp, err := v.model.GenerateContent(ctx, vertexgenai.Text(prompt))
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(vertexgenai.Text); ok {
				sb.WriteString(string(t))
			}
		}
	}
	if sb.Len() == 0 {
		return nil, errors.New("oracle returned empty response")
	}
	return []byte(sb.String()), nil
}

func buildEvalPrompt(req EvalRequest) string {
	var sb strings.Builder
	sb.WriteString("You are an interview evaluator for a tutor-recruitment platform.\n")
	sb.WriteString("Score the candidate 0-100 and respond with JSON only:\n")
	sb.WriteString(`{"score":0,"feedback":"","strengths":[],"improvements":[],"question_scores":[{"question_id":"","score":0,"feedback":""}]}` + "\n\n")

	writeProfile(&sb, req.Profile)

	sb.WriteString("Stage: " + req.StageName + "\n")

	for i, q := range req.Questions {
		fmt.Fprintf(&sb, "\nQuestion %d (id=%s, category=%s): %s\n", i+1, q.ID, q.Category, q.Prompt)
		if len(q.KeyPoints) > 0 {
			sb.WriteString("Expected key points: " + strings.Join(q.KeyPoints, "; ") + "\n")
		}
		if i < len(req.Answers) {
			answer := req.Answers[i].Text
			if answer == "" {
				answer = "(no answer before timeout)"
			}
			sb.WriteString("Candidate answer: " + answer + "\n")
		}
	}

	if len(req.Transcript) > 0 {
		sb.WriteString("\nLive demo transcript:\n")
		for _, m := range req.Transcript {
			fmt.Fprintf(&sb, "[%s] %s\n", m.Role, m.Content)
		}
		fmt.Fprintf(&sb, "Demo duration: %d seconds. Recording ref: %s\n", req.DurationSeconds, req.RecordingRef)
	}

	return sb.String()
}

func buildGeneratePrompt(req GenerateRequest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Generate %d interview questions for a tutor candidate.\n", req.Count)
	sb.WriteString("Respond with JSON only: ")
	sb.WriteString(`{"questions":[{"prompt":"","type":"free_text|multiple_choice|scenario","choices":[],"category":"","key_points":[]}]}` + "\n\n")
	writeProfile(&sb, req.Profile)
	return sb.String()
}

func writeProfile(sb *strings.Builder, p *models.CandidateProfile) {
	if p == nil {
		return
	}
	fmt.Fprintf(sb, "Candidate: %s, subject %s, %d years experience.\n", p.FullName, p.Subject, p.YearsExperience)
	if len(p.Skills) > 0 {
		sb.WriteString("Skills: " + strings.Join(p.Skills, ", ") + "\n")
	}
	if p.ResumeText != "" {
		resume := p.ResumeText
		if len(resume) > 2000 {
			resume = resume[:2000]
		}
		sb.WriteString("Resume excerpt:\n" + resume + "\n")
	}
}
