package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/carebook/scheduling-api/internal/model"
)

func (r *directoryRepository) GetPatient(ctx context.Context, id uuid.UUID) (*model.PatientProfile, error) {
	query := `
		SELECT id, name, email
		FROM patient_profiles
		WHERE id = $1
	`
	var profile model.PatientProfile
	err := r.db.GetContext(ctx, &profile, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient profile: %w", err)
	}
	return &profile, nil
}

func (r *directoryRepository) GetDoctor(ctx context.Context, id uuid.UUID) (*model.DoctorProfile, error) {
	query := `
		SELECT id, name, email, specialty
		FROM doctor_profiles
		WHERE id = $1
	`
	var profile model.DoctorProfile
	err := r.db.GetContext(ctx, &profile, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get doctor profile: %w", err)
	}
	return &profile, nil
}
