package family

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/carebook/scheduling-api/internal/model"
	"github.com/carebook/scheduling-api/internal/repository"
	"github.com/carebook/scheduling-api/internal/service/delegation"
	apperrors "github.com/carebook/scheduling-api/pkg/errors"
)

// Service manages family relations and their permissions. Every mutation
// is preconditioned on the actor being the owning patient or a delegate
// holding MANAGE_FAMILY_MEMBERS; the check is enforced here, not left to a
// database constraint.
type Service struct {
	repo  repository.FamilyRepository
	authz *delegation.Service
}

func NewService(repo repository.FamilyRepository, authz *delegation.Service) *Service {
	return &Service{
		repo:  repo,
		authz: authz,
	}
}

func (s *Service) authorizeManage(ctx context.Context, actor model.Actor, patientID uuid.UUID) error {
	return s.authz.Authorize(ctx, actor, patientID, model.PermissionManageFamily)
}

// Invite creates a pending relation; the member account links on accept.
func (s *Service) Invite(ctx context.Context, actor model.Actor, patientID uuid.UUID, req *model.InviteFamilyMemberRequest) (*model.FamilyMember, error) {
	if err := s.authorizeManage(ctx, actor, patientID); err != nil {
		return nil, err
	}

	member := &model.FamilyMember{
		PatientID:    patientID,
		InviteEmail:  req.Email,
		Relationship: req.Relationship,
		Pending:      true,
	}
	if err := s.repo.CreateMember(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to create family member: %w", err)
	}
	return member, nil
}

// AcceptInvite links the accepting account to the pending relation. The
// invitation is bound to the invited email: only an account authenticated
// under that address may claim it, so knowing a member id is not enough.
func (s *Service) AcceptInvite(ctx context.Context, actor model.Actor, memberID uuid.UUID) error {
	member, err := s.repo.GetMember(ctx, memberID)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NewNotFound("pending invitation", err)
	}
	if err != nil {
		return fmt.Errorf("failed to load invitation: %w", err)
	}
	if !member.Pending {
		return apperrors.NewNotFound("pending invitation", sql.ErrNoRows)
	}
	if actor.Email == "" || !strings.EqualFold(actor.Email, member.InviteEmail) {
		return apperrors.NewAuthorization("invitation was issued to a different account")
	}

	err = s.repo.LinkAccount(ctx, memberID, actor.AccountID)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NewNotFound("pending invitation", err)
	}
	if err != nil {
		return fmt.Errorf("failed to accept invitation: %w", err)
	}
	return nil
}

func (s *Service) ListMembers(ctx context.Context, actor model.Actor, patientID uuid.UUID) ([]*model.FamilyMember, error) {
	if err := s.authorizeManage(ctx, actor, patientID); err != nil {
		return nil, err
	}

	members, err := s.repo.ListMembers(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list family members: %w", err)
	}
	return members, nil
}

func (s *Service) RemoveMember(ctx context.Context, actor model.Actor, patientID, memberID uuid.UUID) error {
	member, err := s.getOwnedMember(ctx, patientID, memberID)
	if err != nil {
		return err
	}
	if err := s.authorizeManage(ctx, actor, member.PatientID); err != nil {
		return err
	}

	if err := s.repo.DeleteMember(ctx, memberID); err != nil {
		return fmt.Errorf("failed to remove family member: %w", err)
	}
	return nil
}

// Grant creates or refreshes a permission; the set is closed and unique
// per (member, type).
func (s *Service) Grant(ctx context.Context, actor model.Actor, patientID, memberID uuid.UUID, req *model.GrantPermissionRequest) (*model.FamilyMemberPermission, error) {
	if !req.PermissionType.Valid() {
		return nil, apperrors.NewValidation("unknown permission type")
	}

	member, err := s.getOwnedMember(ctx, patientID, memberID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeManage(ctx, actor, member.PatientID); err != nil {
		return nil, err
	}

	perm := &model.FamilyMemberPermission{
		FamilyMemberID: memberID,
		PermissionType: req.PermissionType,
		Granted:        true,
		ExpiryDate:     req.ExpiryDate,
		Notes:          req.Notes,
	}
	if err := s.repo.UpsertPermission(ctx, perm); err != nil {
		return nil, fmt.Errorf("failed to grant permission: %w", err)
	}
	return perm, nil
}

func (s *Service) Update(ctx context.Context, actor model.Actor, patientID, memberID uuid.UUID, permType model.PermissionType, req *model.UpdatePermissionRequest) (*model.FamilyMemberPermission, error) {
	member, err := s.getOwnedMember(ctx, patientID, memberID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeManage(ctx, actor, member.PatientID); err != nil {
		return nil, err
	}

	perm, err := s.repo.GetPermission(ctx, memberID, permType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("permission", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}

	if req.Granted != nil {
		perm.Granted = *req.Granted
	}
	if req.ExpiryDate != nil {
		perm.ExpiryDate = req.ExpiryDate
	}
	if req.Notes != nil {
		perm.Notes = *req.Notes
	}

	if err := s.repo.UpdatePermission(ctx, perm); err != nil {
		return nil, fmt.Errorf("failed to update permission: %w", err)
	}
	return perm, nil
}

// Revoke flips granted off; the row is kept so the grant history survives.
func (s *Service) Revoke(ctx context.Context, actor model.Actor, patientID, memberID uuid.UUID, permType model.PermissionType) error {
	granted := false
	_, err := s.Update(ctx, actor, patientID, memberID, permType, &model.UpdatePermissionRequest{Granted: &granted})
	return err
}

func (s *Service) ListPermissions(ctx context.Context, actor model.Actor, patientID, memberID uuid.UUID) ([]*model.FamilyMemberPermission, error) {
	member, err := s.getOwnedMember(ctx, patientID, memberID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeManage(ctx, actor, member.PatientID); err != nil {
		return nil, err
	}

	perms, err := s.repo.ListPermissions(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	return perms, nil
}

func (s *Service) getOwnedMember(ctx context.Context, patientID, memberID uuid.UUID) (*model.FamilyMember, error) {
	member, err := s.repo.GetMember(ctx, memberID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("family member", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family member: %w", err)
	}
	if member.PatientID != patientID {
		return nil, apperrors.NewNotFound("family member", nil)
	}
	return member, nil
}
