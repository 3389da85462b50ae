package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending        AppointmentStatus = "PENDING"
	AppointmentStatusPendingPayment AppointmentStatus = "PENDING_PAYMENT"
	AppointmentStatusConfirmed      AppointmentStatus = "CONFIRMED"
	AppointmentStatusRescheduled    AppointmentStatus = "RESCHEDULED"
	AppointmentStatusReadyForCall   AppointmentStatus = "READY_FOR_CALL"
	AppointmentStatusInProgress     AppointmentStatus = "IN_PROGRESS"
	AppointmentStatusCancelled      AppointmentStatus = "CANCELLED"
	AppointmentStatusCompleted      AppointmentStatus = "COMPLETED"
	AppointmentStatusNoShow         AppointmentStatus = "NO_SHOW"
)

// IsTerminal reports whether no further transitions are allowed from the
// status. RESCHEDULED is terminal for the record; the replacement appointment
// carries on.
func (s AppointmentStatus) IsTerminal() bool {
	switch s {
	case AppointmentStatusCancelled, AppointmentStatusCompleted,
		AppointmentStatusNoShow, AppointmentStatusRescheduled:
		return true
	}
	return false
}

// Appointment owns exactly one TimeSlot, created together with it in the
// booking transaction. Cancelled and rescheduled records are retained for
// audit, never deleted.
type Appointment struct {
	Base
	PatientID          uuid.UUID         `db:"patient_id" json:"patient_id"`
	DoctorID           uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	SlotID             uuid.UUID         `db:"slot_id" json:"slot_id"`
	Status             AppointmentStatus `db:"status" json:"status"`
	ReasonForVisit     string            `db:"reason_for_visit" json:"reason_for_visit,omitempty"`
	PatientNotes       string            `db:"patient_notes" json:"patient_notes,omitempty"`
	CancellationReason *string           `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	RescheduledToID    *uuid.UUID        `db:"rescheduled_to_id" json:"rescheduled_to_id,omitempty"`
	CompletedAt        *time.Time        `db:"completed_at" json:"completed_at,omitempty"`
}

// AppointmentDocument is an opaque reference into the external document
// service; this core only stores the id.
type AppointmentDocument struct {
	ID            uuid.UUID `db:"id" json:"id"`
	AppointmentID uuid.UUID `db:"appointment_id" json:"appointment_id"`
	DocumentRef   string    `db:"document_ref" json:"document_ref"`
	AttachedBy    uuid.UUID `db:"attached_by" json:"attached_by"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

type BookAppointmentRequest struct {
	PatientID      uuid.UUID `json:"patient_id" binding:"required"`
	SlotID         uuid.UUID `json:"slot_id" binding:"required"`
	ReasonForVisit string    `json:"reason_for_visit" binding:"max=1000"`
	PatientNotes   string    `json:"patient_notes" binding:"max=2000"`
}

type RescheduleAppointmentRequest struct {
	NewSlotID uuid.UUID `json:"new_slot_id" binding:"required"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason" binding:"required,max=1000"`
}

type AttachDocumentRequest struct {
	DocumentRef string `json:"document_ref" binding:"required,max=255"`
}

type AppointmentFilters struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	Status    AppointmentStatus
	StartDate time.Time
	EndDate   time.Time
}
