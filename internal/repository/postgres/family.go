package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carebook/scheduling-api/internal/model"
)

func (r *familyRepository) CreateMember(ctx context.Context, member *model.FamilyMember) error {
	query := `
		INSERT INTO family_members (
			id, patient_id, account_id, invite_email, relationship,
			pending, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	member.ID = uuid.New()
	member.CreatedAt = time.Now()
	member.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		member.ID,
		member.PatientID,
		member.AccountID,
		member.InviteEmail,
		member.Relationship,
		member.Pending,
		member.CreatedAt,
		member.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create family member: %w", err)
	}
	return nil
}

func (r *familyRepository) GetMember(ctx context.Context, id uuid.UUID) (*model.FamilyMember, error) {
	query := `
		SELECT id, patient_id, account_id, invite_email, relationship,
			   pending, created_at, updated_at
		FROM family_members
		WHERE id = $1
	`
	var member model.FamilyMember
	err := r.db.GetContext(ctx, &member, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family member: %w", err)
	}
	return &member, nil
}

// GetMemberByAccount resolves the non-pending relation linking an account to
// a patient; no relation is a normal sql.ErrNoRows, not a failure.
func (r *familyRepository) GetMemberByAccount(ctx context.Context, accountID, patientID uuid.UUID) (*model.FamilyMember, error) {
	query := `
		SELECT id, patient_id, account_id, invite_email, relationship,
			   pending, created_at, updated_at
		FROM family_members
		WHERE account_id = $1
		AND patient_id = $2
		AND pending = FALSE
	`
	var member model.FamilyMember
	err := r.db.GetContext(ctx, &member, query, accountID, patientID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family member by account: %w", err)
	}
	return &member, nil
}

func (r *familyRepository) ListMembers(ctx context.Context, patientID uuid.UUID) ([]*model.FamilyMember, error) {
	query := `
		SELECT id, patient_id, account_id, invite_email, relationship,
			   pending, created_at, updated_at
		FROM family_members
		WHERE patient_id = $1
		ORDER BY created_at ASC
	`
	var members []*model.FamilyMember
	err := r.db.SelectContext(ctx, &members, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list family members: %w", err)
	}
	return members, nil
}

func (r *familyRepository) LinkAccount(ctx context.Context, memberID, accountID uuid.UUID) error {
	query := `
		UPDATE family_members
		SET account_id = $1, pending = FALSE, updated_at = $2
		WHERE id = $3 AND pending = TRUE
	`
	result, err := r.db.ExecContext(ctx, query, accountID, time.Now(), memberID)
	if err != nil {
		return fmt.Errorf("failed to link account: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *familyRepository) DeleteMember(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM family_members
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete family member: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpsertPermission enforces the (family member, permission type) uniqueness
// at the statement level.
func (r *familyRepository) UpsertPermission(ctx context.Context, perm *model.FamilyMemberPermission) error {
	query := `
		INSERT INTO family_member_permissions (
			id, family_member_id, permission_type, granted, expiry_date,
			notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (family_member_id, permission_type) DO UPDATE
		SET granted = EXCLUDED.granted,
			expiry_date = EXCLUDED.expiry_date,
			notes = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at
	`
	if perm.ID == uuid.Nil {
		perm.ID = uuid.New()
	}
	perm.CreatedAt = time.Now()
	perm.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		perm.ID,
		perm.FamilyMemberID,
		perm.PermissionType,
		perm.Granted,
		perm.ExpiryDate,
		perm.Notes,
		perm.CreatedAt,
		perm.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert permission: %w", err)
	}
	return nil
}

func (r *familyRepository) GetPermission(ctx context.Context, memberID uuid.UUID, permType model.PermissionType) (*model.FamilyMemberPermission, error) {
	query := `
		SELECT id, family_member_id, permission_type, granted, expiry_date,
			   notes, created_at, updated_at
		FROM family_member_permissions
		WHERE family_member_id = $1
		AND permission_type = $2
	`
	var perm model.FamilyMemberPermission
	err := r.db.GetContext(ctx, &perm, query, memberID, permType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}
	return &perm, nil
}

func (r *familyRepository) ListPermissions(ctx context.Context, memberID uuid.UUID) ([]*model.FamilyMemberPermission, error) {
	query := `
		SELECT id, family_member_id, permission_type, granted, expiry_date,
			   notes, created_at, updated_at
		FROM family_member_permissions
		WHERE family_member_id = $1
		ORDER BY permission_type ASC
	`
	var perms []*model.FamilyMemberPermission
	err := r.db.SelectContext(ctx, &perms, query, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	return perms, nil
}

func (r *familyRepository) UpdatePermission(ctx context.Context, perm *model.FamilyMemberPermission) error {
	query := `
		UPDATE family_member_permissions
		SET granted = $1, expiry_date = $2, notes = $3, updated_at = $4
		WHERE id = $5
	`
	perm.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		perm.Granted,
		perm.ExpiryDate,
		perm.Notes,
		perm.UpdatedAt,
		perm.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update permission: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
