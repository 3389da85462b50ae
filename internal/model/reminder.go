package model

import (
	"time"

	"github.com/google/uuid"
)

// ReminderWindow is a fixed lead time before an appointment's start at
// which a reminder must fire at most once.
type ReminderWindow struct {
	Label string
	Lead  time.Duration
}

// DefaultReminderWindows are swept most-imminent first so a freshly
// confirmed appointment inside both windows still gets its 1h reminder on
// time.
var DefaultReminderWindows = []ReminderWindow{
	{Label: "1h", Lead: time.Hour},
	{Label: "24h", Lead: 24 * time.Hour},
}

// ReminderCandidate is the joined appointment+slot projection the sweep
// queries; status is re-checked against it immediately before emitting.
type ReminderCandidate struct {
	AppointmentID  uuid.UUID         `db:"appointment_id"`
	PatientID      uuid.UUID         `db:"patient_id"`
	DoctorID       uuid.UUID         `db:"doctor_id"`
	Status         AppointmentStatus `db:"status"`
	StartTime      time.Time         `db:"start_time"`
	EndTime        time.Time         `db:"end_time"`
	Mode           ConsultationMode  `db:"mode"`
	ReasonForVisit string            `db:"reason_for_visit"`
}
