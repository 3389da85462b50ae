package model

import (
	"time"

	"github.com/google/uuid"
)

type ConsultationMode string

const (
	ConsultationModeVirtual  ConsultationMode = "VIRTUAL"
	ConsultationModePhysical ConsultationMode = "PHYSICAL"
)

// Slot duration bounds in minutes.
const (
	MinSlotDurationMinutes = 15
	MaxSlotDurationMinutes = 180
)

// TimeSlot is a doctor-published bookable window. A slot is bookable only
// while IsAvailable && !IsBooked; IsBooked flips atomically with appointment
// creation and is the only field the booking path writes.
type TimeSlot struct {
	Base
	DoctorID        uuid.UUID        `db:"doctor_id" json:"doctor_id"`
	StartTime       time.Time        `db:"start_time" json:"start_time"`
	EndTime         time.Time        `db:"end_time" json:"end_time"`
	DurationMinutes int              `db:"duration_minutes" json:"duration_minutes"`
	IsAvailable     bool             `db:"is_available" json:"is_available"`
	IsBooked        bool             `db:"is_booked" json:"is_booked"`
	Mode            ConsultationMode `db:"mode" json:"mode"`
}

// Overlaps reports whether the slot's [start,end) interval intersects the
// given one.
func (s *TimeSlot) Overlaps(start, end time.Time) bool {
	return s.StartTime.Before(end) && s.EndTime.After(start)
}

type CreateSlotRequest struct {
	StartTime       time.Time        `json:"start_time" binding:"required"`
	EndTime         time.Time        `json:"end_time" binding:"required"`
	DurationMinutes int              `json:"duration_minutes" binding:"required,min=15,max=180"`
	Mode            ConsultationMode `json:"mode" binding:"required,oneof=VIRTUAL PHYSICAL"`
}

type UpdateSlotRequest struct {
	StartTime       time.Time `json:"start_time" binding:"required"`
	EndTime         time.Time `json:"end_time" binding:"required"`
	DurationMinutes int       `json:"duration_minutes" binding:"required,min=15,max=180"`
}
