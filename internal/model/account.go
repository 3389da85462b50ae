package model

import (
	"github.com/google/uuid"
)

type AccountType string

const (
	AccountTypePatient AccountType = "PATIENT"
	AccountTypeMember  AccountType = "MEMBER"
	AccountTypeDoctor  AccountType = "DOCTOR"
)

// Actor is the authenticated account performing a request, extracted from
// the access token. PatientID is set only for patient accounts; family
// member accounts must name the patient they act for explicitly on every
// call, there is no single-relation inference.
type Actor struct {
	AccountID uuid.UUID   `json:"account_id"`
	Type      AccountType `json:"type"`
	Email     string      `json:"email"`
	PatientID *uuid.UUID  `json:"patient_id,omitempty"`
	DoctorID  *uuid.UUID  `json:"doctor_id,omitempty"`
}

// IsPatient reports whether the actor is the patient's own account.
func (a Actor) IsPatient(patientID uuid.UUID) bool {
	return a.Type == AccountTypePatient && a.PatientID != nil && *a.PatientID == patientID
}

// IsDoctor reports whether the actor is the given doctor's account.
func (a Actor) IsDoctor(doctorID uuid.UUID) bool {
	return a.Type == AccountTypeDoctor && a.DoctorID != nil && *a.DoctorID == doctorID
}

// PatientProfile is the identity projection this core reads from the
// patient directory; it owns none of these fields.
type PatientProfile struct {
	ID    uuid.UUID `db:"id" json:"id"`
	Name  string    `db:"name" json:"name"`
	Email string    `db:"email" json:"email"`
}

// DoctorProfile mirrors PatientProfile for doctors.
type DoctorProfile struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Specialty string    `db:"specialty" json:"specialty"`
}
