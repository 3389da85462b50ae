package slot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carebook/scheduling-api/internal/model"
	"github.com/carebook/scheduling-api/internal/repository"
	apperrors "github.com/carebook/scheduling-api/pkg/errors"
	"github.com/carebook/scheduling-api/pkg/metrics"
)

// Service owns a doctor's publishable time slots: non-overlap, the
// availability and booked flags, and the conditional reserve/release
// primitives the scheduler builds on.
type Service struct {
	repo    repository.SlotRepository
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(repo repository.SlotRepository, m *metrics.Metrics) *Service {
	return &Service{
		repo:    repo,
		metrics: m,
		now:     time.Now,
	}
}

func (s *Service) validateBounds(start, end time.Time, durationMinutes int) error {
	now := s.now()

	if !start.Before(end) {
		return apperrors.NewValidation("slot start must be before end")
	}
	if start.Before(now) {
		return apperrors.NewValidation("slot must be in the future")
	}
	if durationMinutes < model.MinSlotDurationMinutes || durationMinutes > model.MaxSlotDurationMinutes {
		return apperrors.NewValidation(fmt.Sprintf(
			"slot duration must be between %d and %d minutes",
			model.MinSlotDurationMinutes, model.MaxSlotDurationMinutes))
	}
	if int(end.Sub(start).Minutes()) != durationMinutes {
		return apperrors.NewValidation("slot duration does not match its time bounds")
	}
	return nil
}

func (s *Service) CreateSlot(ctx context.Context, doctorID uuid.UUID, req *model.CreateSlotRequest) (*model.TimeSlot, error) {
	if err := s.validateBounds(req.StartTime, req.EndTime, req.DurationMinutes); err != nil {
		return nil, err
	}

	overlap, err := s.repo.HasOverlap(ctx, doctorID, req.StartTime, req.EndTime, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to check overlap: %w", err)
	}
	if overlap {
		return nil, apperrors.NewConflict("slot overlaps an existing slot for this doctor")
	}

	slot := &model.TimeSlot{
		DoctorID:        doctorID,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		DurationMinutes: req.DurationMinutes,
		IsAvailable:     true,
		IsBooked:        false,
		Mode:            req.Mode,
	}

	if err := s.repo.Create(ctx, slot); err != nil {
		return nil, fmt.Errorf("failed to create slot: %w", err)
	}
	s.metrics.SlotsPublished.Inc()
	return slot, nil
}

func (s *Service) UpdateSlot(ctx context.Context, doctorID, slotID uuid.UUID, req *model.UpdateSlotRequest) (*model.TimeSlot, error) {
	slot, err := s.getOwnedSlot(ctx, doctorID, slotID)
	if err != nil {
		return nil, err
	}

	// Booked slots are immutable in time.
	if slot.IsBooked {
		return nil, apperrors.NewConflict("cannot modify a booked slot")
	}

	if err := s.validateBounds(req.StartTime, req.EndTime, req.DurationMinutes); err != nil {
		return nil, err
	}

	overlap, err := s.repo.HasOverlap(ctx, doctorID, req.StartTime, req.EndTime, &slotID)
	if err != nil {
		return nil, fmt.Errorf("failed to check overlap: %w", err)
	}
	if overlap {
		return nil, apperrors.NewConflict("slot overlaps an existing slot for this doctor")
	}

	slot.StartTime = req.StartTime
	slot.EndTime = req.EndTime
	slot.DurationMinutes = req.DurationMinutes

	err = s.repo.Update(ctx, slot)
	if errors.Is(err, sql.ErrNoRows) {
		// Lost a race against a concurrent booking.
		return nil, apperrors.NewConflict("cannot modify a booked slot")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update slot: %w", err)
	}
	return slot, nil
}

// Enable marks the slot bookable again.
func (s *Service) Enable(ctx context.Context, doctorID, slotID uuid.UUID) error {
	return s.setAvailability(ctx, doctorID, slotID, true)
}

// Disable hides the slot from booking without deleting it. A booked slot
// stays booked; disabling has no retroactive effect on its appointment.
func (s *Service) Disable(ctx context.Context, doctorID, slotID uuid.UUID) error {
	return s.setAvailability(ctx, doctorID, slotID, false)
}

func (s *Service) setAvailability(ctx context.Context, doctorID, slotID uuid.UUID, available bool) error {
	if _, err := s.getOwnedSlot(ctx, doctorID, slotID); err != nil {
		return err
	}

	err := s.repo.SetAvailability(ctx, slotID, available)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NewNotFound("slot", err)
	}
	if err != nil {
		return fmt.Errorf("failed to set slot availability: %w", err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, slotID uuid.UUID) (*model.TimeSlot, error) {
	slot, err := s.repo.Get(ctx, slotID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("slot", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get slot: %w", err)
	}
	return slot, nil
}

// FindAvailable returns the doctor's bookable slots inside the window,
// ordered by start time.
func (s *Service) FindAvailable(ctx context.Context, doctorID uuid.UUID, window model.DateWindow) ([]*model.TimeSlot, error) {
	slots, err := s.repo.FindAvailable(ctx, doctorID, window)
	if err != nil {
		return nil, fmt.Errorf("failed to find available slots: %w", err)
	}
	return slots, nil
}

// ListDoctorSlots returns all of the doctor's slots in the window,
// regardless of availability, for the doctor's own schedule view.
func (s *Service) ListDoctorSlots(ctx context.Context, doctorID uuid.UUID, window model.DateWindow) ([]*model.TimeSlot, error) {
	slots, err := s.repo.ListByDoctor(ctx, doctorID, window)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	return slots, nil
}

func (s *Service) getOwnedSlot(ctx context.Context, doctorID, slotID uuid.UUID) (*model.TimeSlot, error) {
	slot, err := s.Get(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if slot.DoctorID != doctorID {
		return nil, apperrors.NewAuthorization("slot belongs to another doctor")
	}
	return slot, nil
}
