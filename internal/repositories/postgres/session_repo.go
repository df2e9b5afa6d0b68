package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/hireloop/hireloop/internal/models"
	"github.com/hireloop/hireloop/internal/utils"
)

type SessionRepository interface {
	Create(ctx context.Context, s *models.InterviewSession) error
	GetByID(ctx context.Context, id string) (*models.InterviewSession, error)
	ListByCandidate(ctx context.Context, candidateID string, limit int) ([]models.InterviewSession, error)

	// AdvanceStage moves current_stage_order forward, never back. The guard
	// makes the write a no-op when the stored order already reached `to`.
	AdvanceStage(ctx context.Context, id string, to int) error

	MarkComplete(ctx context.Context, id string) error
	SetLiveView(ctx context.Context, id, tokenHash string, active bool, startedAt *time.Time) error
}

type sessionRepo struct {
	db *gorm.DB
}

func NewSessionRepo(db *gorm.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) Create(ctx context.Context, s *models.InterviewSession) error {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (*models.InterviewSession, error) {
	var s models.InterviewSession
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Take(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &s, err
}

func (r *sessionRepo) ListByCandidate(ctx context.Context, candidateID string, limit int) ([]models.InterviewSession, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []models.InterviewSession
	err := r.db.WithContext(ctx).
		Where("candidate_id = ?", candidateID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *sessionRepo) AdvanceStage(ctx context.Context, id string, to int) error {
	return r.db.WithContext(ctx).
		Model(&models.InterviewSession{}).
		Where("id = ? AND current_stage_order < ?", id, to).
		Updates(map[string]any{
			"current_stage_order": to,
			"updated_at":          time.Now().UTC(),
		}).Error
}

func (r *sessionRepo) MarkComplete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&models.InterviewSession{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"completed":  true,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *sessionRepo) SetLiveView(ctx context.Context, id, tokenHash string, active bool, startedAt *time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.InterviewSession{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"live_view_token_hash": tokenHash,
			"live_view_active":     active,
			"stream_started_at":    startedAt,
			"updated_at":           time.Now().UTC(),
		}).Error
}
