package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hireloop/hireloop/internal/models"
	pgrepo "github.com/hireloop/hireloop/internal/repositories/postgres"
	"github.com/hireloop/hireloop/internal/utils"
)

type InterviewService interface {
	Start(ctx context.Context, candidateID, jobID, email string) (*models.InterviewSession, error)
	Get(ctx context.Context, sessionID string) (*models.InterviewSession, error)
	ListForCandidate(ctx context.Context, candidateID string, limit int) ([]models.InterviewSession, error)
}

type interviewService struct {
	sessions pgrepo.SessionRepository
}

func NewInterviewService(sessions pgrepo.SessionRepository) InterviewService {
	return &interviewService{sessions: sessions}
}

// Start opens a fresh session at stage 1. A candidate retaking the
// interview gets a new session; existing sessions are never rewound.
func (s *interviewService) Start(ctx context.Context, candidateID, jobID, email string) (*models.InterviewSession, error) {
	const op = "InterviewService.Start"

	if candidateID == "" || email == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "candidate_id and email are required", nil)
	}

	now := time.Now().UTC()
	session := &models.InterviewSession{
		ID:                uuid.NewString(),
		CandidateID:       candidateID,
		JobID:             jobID,
		CandidateEmail:    email,
		CurrentStageOrder: 1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create session", err)
	}
	return session, nil
}

func (s *interviewService) Get(ctx context.Context, sessionID string) (*models.InterviewSession, error) {
	const op = "InterviewService.Get"

	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}

	out, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "session not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get session", err)
	}
	return out, nil
}

func (s *interviewService) ListForCandidate(ctx context.Context, candidateID string, limit int) ([]models.InterviewSession, error) {
	const op = "InterviewService.ListForCandidate"

	if candidateID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "candidate_id is required", nil)
	}

	out, err := s.sessions.ListByCandidate(ctx, candidateID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list sessions", err)
	}
	return out, nil
}
