package model

import (
	"time"

	"github.com/google/uuid"
)

// Event types published through the outbox.
const (
	EventAppointmentBooked      = "appointment.booked"
	EventAppointmentCancelled   = "appointment.cancelled"
	EventAppointmentRescheduled = "appointment.rescheduled"
	EventAppointmentReminder    = "appointment.reminder"
)

// EventParticipant identifies one party of an appointment in an event
// payload, resolved from the identity directory at emit time.
type EventParticipant struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

type AppointmentBookedEvent struct {
	AppointmentID       uuid.UUID        `json:"appointment_id"`
	Patient             EventParticipant `json:"patient"`
	Doctor              EventParticipant `json:"doctor"`
	AppointmentDateTime time.Time        `json:"appointment_date_time"`
	ReasonForVisit      string           `json:"reason_for_visit,omitempty"`
	PatientNotes        string           `json:"patient_notes,omitempty"`
}

type AppointmentCancelledEvent struct {
	AppointmentID       uuid.UUID        `json:"appointment_id"`
	Patient             EventParticipant `json:"patient"`
	Doctor              EventParticipant `json:"doctor"`
	AppointmentDateTime time.Time        `json:"appointment_date_time"`
	ReasonForVisit      string           `json:"reason_for_visit,omitempty"`
	CancellationReason  string           `json:"cancellation_reason"`
}

type AppointmentRescheduledEvent struct {
	AppointmentID       uuid.UUID        `json:"appointment_id"`
	PreviousID          uuid.UUID        `json:"previous_appointment_id"`
	Patient             EventParticipant `json:"patient"`
	Doctor              EventParticipant `json:"doctor"`
	AppointmentDateTime time.Time        `json:"appointment_date_time"`
	PreviousDateTime    time.Time        `json:"previous_date_time"`
	ReasonForVisit      string           `json:"reason_for_visit,omitempty"`
}

type AppointmentReminderEvent struct {
	AppointmentID         uuid.UUID        `json:"appointment_id"`
	Patient               EventParticipant `json:"patient"`
	Doctor                EventParticipant `json:"doctor"`
	AppointmentDateTime   time.Time        `json:"appointment_date_time"`
	ConsultationMode      ConsultationMode `json:"consultation_mode"`
	HoursUntilAppointment int              `json:"hours_until_appointment"`
	ReasonForVisit        string           `json:"reason_for_visit,omitempty"`
}
