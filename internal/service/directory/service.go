package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/carebook/scheduling-api/internal/model"
	"github.com/carebook/scheduling-api/internal/repository"
	apperrors "github.com/carebook/scheduling-api/pkg/errors"
)

const (
	cacheTTL     = 5 * time.Minute
	cacheCleanup = 10 * time.Minute
)

// Service is the identity lookup port over the patient/doctor directory.
// Profiles feed event payloads only, so short-lived caching is safe.
type Service struct {
	repo  repository.DirectoryRepository
	cache *cache.Cache
}

func NewService(repo repository.DirectoryRepository) *Service {
	return &Service{
		repo:  repo,
		cache: cache.New(cacheTTL, cacheCleanup),
	}
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*model.PatientProfile, error) {
	key := "patient:" + id.String()
	if v, ok := s.cache.Get(key); ok {
		return v.(*model.PatientProfile), nil
	}

	profile, err := s.repo.GetPatient(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("patient", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up patient: %w", err)
	}

	s.cache.Set(key, profile, cache.DefaultExpiration)
	return profile, nil
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*model.DoctorProfile, error) {
	key := "doctor:" + id.String()
	if v, ok := s.cache.Get(key); ok {
		return v.(*model.DoctorProfile), nil
	}

	profile, err := s.repo.GetDoctor(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("doctor", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up doctor: %w", err)
	}

	s.cache.Set(key, profile, cache.DefaultExpiration)
	return profile, nil
}

// Participants resolves both parties of an appointment for event payloads.
func (s *Service) Participants(ctx context.Context, patientID, doctorID uuid.UUID) (model.EventParticipant, model.EventParticipant, error) {
	patient, err := s.GetPatient(ctx, patientID)
	if err != nil {
		return model.EventParticipant{}, model.EventParticipant{}, err
	}

	doctor, err := s.GetDoctor(ctx, doctorID)
	if err != nil {
		return model.EventParticipant{}, model.EventParticipant{}, err
	}

	p := model.EventParticipant{ID: patient.ID, Name: patient.Name, Email: patient.Email}
	d := model.EventParticipant{ID: doctor.ID, Name: doctor.Name, Email: doctor.Email}
	return p, d, nil
}
