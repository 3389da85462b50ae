package delegation

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
)

// Service decides whether an acting account may perform an action on a
// patient's behalf. Every delegated call names its patient explicitly;
// there is no inference from a member account to "its" patient, since one
// account may be linked to several patients.
type Service struct {
	familyRepo repository.FamilyRepository
	now        func() time.Time
}

func NewService(familyRepo repository.FamilyRepository) *Service {
	return &Service{
		familyRepo: familyRepo,
		now:        time.Now,
	}
}

// IsAuthorizedForPatient returns true for the patient's own account, or for
// a family member holding an active grant of the requested permission.
// "No relation" is a normal false result, not an error.
func (s *Service) IsAuthorizedForPatient(ctx context.Context, actor model.Actor, patientID uuid.UUID, permType model.PermissionType) (bool, error) {
	if actor.IsPatient(patientID) {
		return true, nil
	}

	member, err := s.familyRepo.GetMemberByAccount(ctx, actor.AccountID, patientID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to resolve family relation: %w", err)
	}

	perm, err := s.familyRepo.GetPermission(ctx, member.ID, permType)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to resolve permission: %w", err)
	}

	return perm.IsActive(s.now()), nil
}

// Authorize is IsAuthorizedForPatient lifted to an error: a false result
// becomes an AuthorizationError naming the missing permission.
func (s *Service) Authorize(ctx context.Context, actor model.Actor, patientID uuid.UUID, permType model.PermissionType) error {
	ok, err := s.IsAuthorizedForPatient(ctx, actor, patientID, permType)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewAuthorization(fmt.Sprintf("actor lacks active %s permission for patient", permType))
	}
	return nil
}
