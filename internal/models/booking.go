package models

import (
	"time"

	"gorm.io/datatypes"
)

// SlotBooking is the candidate's submitted slot selection for a booking
// stage. Written separately from StageResult; booking a slot advances the
// stage but the invitation email waits for the explicit confirm action.
type SlotBooking struct {
	ID         string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SessionID  string `gorm:"column:session_id;type:uuid;uniqueIndex:uniq_booking_stage" json:"session_id"`
	StageOrder int    `gorm:"column:stage_order;uniqueIndex:uniq_booking_stage" json:"stage_order"`

	SlotDate string `gorm:"column:slot_date;type:text" json:"slot_date"` // YYYY-MM-DD
	SlotTime string `gorm:"column:slot_time;type:text" json:"slot_time"` // HH:MM

	// Details holds the larger location/role form of the detailed variant.
	Details datatypes.JSON `gorm:"column:details;type:jsonb" json:"details,omitempty"`

	Confirmed bool `gorm:"column:confirmed" json:"confirmed"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
}

func (SlotBooking) TableName() string { return "slot_bookings" }
