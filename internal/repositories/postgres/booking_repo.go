package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hireloop/hireloop/internal/models"
	"github.com/hireloop/hireloop/internal/utils"
)

type BookingRepository interface {
	Upsert(ctx context.Context, b *models.SlotBooking) error
	Get(ctx context.Context, sessionID string, stageOrder int) (*models.SlotBooking, error)
	Confirm(ctx context.Context, sessionID string, stageOrder int) error
}

type bookingRepo struct {
	db *gorm.DB
}

func NewBookingRepo(db *gorm.DB) BookingRepository {
	return &bookingRepo{db: db}
}

func (r *bookingRepo) Upsert(ctx context.Context, b *models.SlotBooking) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "stage_order"}},
			DoUpdates: clause.AssignmentColumns([]string{"slot_date", "slot_time", "details"}),
		}).
		Create(b).Error
}

func (r *bookingRepo) Get(ctx context.Context, sessionID string, stageOrder int) (*models.SlotBooking, error) {
	var b models.SlotBooking
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND stage_order = ?", sessionID, stageOrder).
		Take(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &b, err
}

func (r *bookingRepo) Confirm(ctx context.Context, sessionID string, stageOrder int) error {
	return r.db.WithContext(ctx).
		Model(&models.SlotBooking{}).
		Where("session_id = ? AND stage_order = ?", sessionID, stageOrder).
		Update("confirmed", true).Error
}
