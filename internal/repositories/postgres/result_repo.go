package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hireloop/hireloop/internal/models"
	"github.com/hireloop/hireloop/internal/utils"
)

type ResultRepository interface {
	Get(ctx context.Context, sessionID string, stageOrder int) (*models.StageResult, error)
	Upsert(ctx context.Context, r *models.StageResult) error
	ListBySession(ctx context.Context, sessionID string) ([]models.StageResult, error)
}

type resultRepo struct {
	db *gorm.DB
}

func NewResultRepo(db *gorm.DB) ResultRepository {
	return &resultRepo{db: db}
}

func (r *resultRepo) Get(ctx context.Context, sessionID string, stageOrder int) (*models.StageResult, error) {
	var row models.StageResult
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND stage_order = ?", sessionID, stageOrder).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}

func (r *resultRepo) Upsert(ctx context.Context, row *models.StageResult) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "session_id"}, {Name: "stage_order"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"score", "passed", "feedback", "strengths", "improvements",
				"question_scores", "recording_ref", "duration_seconds", "completed_at",
			}),
		}).
		Create(row).Error
}

func (r *resultRepo) ListBySession(ctx context.Context, sessionID string) ([]models.StageResult, error) {
	var rows []models.StageResult
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("stage_order ASC").
		Find(&rows).Error
	return rows, err
}
