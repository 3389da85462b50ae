package family

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebook/scheduling-api/internal/model"
	"github.com/carebook/scheduling-api/internal/service/delegation"
	apperrors "github.com/carebook/scheduling-api/pkg/errors"
)

type permKey struct {
	member   uuid.UUID
	permType model.PermissionType
}

type memFamilyRepo struct {
	members map[uuid.UUID]*model.FamilyMember
	perms   map[permKey]*model.FamilyMemberPermission
}

func newMemFamilyRepo() *memFamilyRepo {
	return &memFamilyRepo{
		members: make(map[uuid.UUID]*model.FamilyMember),
		perms:   make(map[permKey]*model.FamilyMemberPermission),
	}
}

func (m *memFamilyRepo) CreateMember(ctx context.Context, member *model.FamilyMember) error {
	member.ID = uuid.New()
	m.members[member.ID] = member
	return nil
}

func (m *memFamilyRepo) GetMember(ctx context.Context, id uuid.UUID) (*model.FamilyMember, error) {
	member, ok := m.members[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return member, nil
}

func (m *memFamilyRepo) GetMemberByAccount(ctx context.Context, accountID, patientID uuid.UUID) (*model.FamilyMember, error) {
	for _, member := range m.members {
		if member.AccountID != nil && *member.AccountID == accountID &&
			member.PatientID == patientID && !member.Pending {
			return member, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memFamilyRepo) ListMembers(ctx context.Context, patientID uuid.UUID) ([]*model.FamilyMember, error) {
	var out []*model.FamilyMember
	for _, member := range m.members {
		if member.PatientID == patientID {
			out = append(out, member)
		}
	}
	return out, nil
}

func (m *memFamilyRepo) LinkAccount(ctx context.Context, memberID, accountID uuid.UUID) error {
	member, ok := m.members[memberID]
	if !ok || !member.Pending {
		return sql.ErrNoRows
	}
	member.AccountID = &accountID
	member.Pending = false
	return nil
}

func (m *memFamilyRepo) DeleteMember(ctx context.Context, id uuid.UUID) error {
	delete(m.members, id)
	return nil
}

func (m *memFamilyRepo) UpsertPermission(ctx context.Context, perm *model.FamilyMemberPermission) error {
	m.perms[permKey{perm.FamilyMemberID, perm.PermissionType}] = perm
	return nil
}

func (m *memFamilyRepo) GetPermission(ctx context.Context, memberID uuid.UUID, permType model.PermissionType) (*model.FamilyMemberPermission, error) {
	perm, ok := m.perms[permKey{memberID, permType}]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return perm, nil
}

func (m *memFamilyRepo) ListPermissions(ctx context.Context, memberID uuid.UUID) ([]*model.FamilyMemberPermission, error) {
	var out []*model.FamilyMemberPermission
	for key, perm := range m.perms {
		if key.member == memberID {
			out = append(out, perm)
		}
	}
	return out, nil
}

func (m *memFamilyRepo) UpdatePermission(ctx context.Context, perm *model.FamilyMemberPermission) error {
	key := permKey{perm.FamilyMemberID, perm.PermissionType}
	if _, ok := m.perms[key]; !ok {
		return sql.ErrNoRows
	}
	m.perms[key] = perm
	return nil
}

func newTestService(repo *memFamilyRepo) *Service {
	return NewService(repo, delegation.NewService(repo))
}

func patientActor(patientID uuid.UUID) model.Actor {
	return model.Actor{AccountID: uuid.New(), Type: model.AccountTypePatient, PatientID: &patientID}
}

func memberActor(email string) model.Actor {
	return model.Actor{AccountID: uuid.New(), Type: model.AccountTypeMember, Email: email}
}

func TestInviteAndAccept(t *testing.T) {
	repo := newMemFamilyRepo()
	svc := newTestService(repo)
	patientID := uuid.New()
	actor := patientActor(patientID)
	ctx := context.Background()

	member, err := svc.Invite(ctx, actor, patientID, &model.InviteFamilyMemberRequest{
		Email:        "spouse@example.com",
		Relationship: "spouse",
	})
	require.NoError(t, err)
	assert.True(t, member.Pending)
	assert.Nil(t, member.AccountID)

	spouse := memberActor("spouse@example.com")
	require.NoError(t, svc.AcceptInvite(ctx, spouse, member.ID))

	stored := repo.members[member.ID]
	assert.False(t, stored.Pending)
	require.NotNil(t, stored.AccountID)
	assert.Equal(t, spouse.AccountID, *stored.AccountID)

	// Accepting twice is rejected: the relation is no longer pending.
	err = svc.AcceptInvite(ctx, spouse, member.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAcceptInvite_BoundToInvitedEmail(t *testing.T) {
	repo := newMemFamilyRepo()
	svc := newTestService(repo)
	patientID := uuid.New()
	ctx := context.Background()

	member, err := svc.Invite(ctx, patientActor(patientID), patientID, &model.InviteFamilyMemberRequest{
		Email:        "spouse@example.com",
		Relationship: "spouse",
	})
	require.NoError(t, err)

	// An unrelated account that learned the member id cannot claim it.
	err = svc.AcceptInvite(ctx, memberActor("hijacker@example.com"), member.ID)
	assert.True(t, apperrors.IsAuthorization(err))
	assert.True(t, repo.members[member.ID].Pending)
	assert.Nil(t, repo.members[member.ID].AccountID)

	// Neither can a token carrying no email at all.
	err = svc.AcceptInvite(ctx, memberActor(""), member.ID)
	assert.True(t, apperrors.IsAuthorization(err))

	// The invited address matches case-insensitively.
	require.NoError(t, svc.AcceptInvite(ctx, memberActor("Spouse@Example.COM"), member.ID))
	assert.False(t, repo.members[member.ID].Pending)
}

func TestInvite_RequiresManagePermission(t *testing.T) {
	repo := newMemFamilyRepo()
	svc := newTestService(repo)
	patientID := uuid.New()

	stranger := model.Actor{AccountID: uuid.New(), Type: model.AccountTypeMember}
	_, err := svc.Invite(context.Background(), stranger, patientID, &model.InviteFamilyMemberRequest{
		Email:        "someone@example.com",
		Relationship: "friend",
	})
	assert.True(t, apperrors.IsAuthorization(err))
}

func TestGrantUpdateRevoke(t *testing.T) {
	repo := newMemFamilyRepo()
	svc := newTestService(repo)
	patientID := uuid.New()
	actor := patientActor(patientID)
	ctx := context.Background()

	member, err := svc.Invite(ctx, actor, patientID, &model.InviteFamilyMemberRequest{
		Email:        "spouse@example.com",
		Relationship: "spouse",
	})
	require.NoError(t, err)
	require.NoError(t, svc.AcceptInvite(ctx, memberActor("spouse@example.com"), member.ID))

	expiry := time.Now().AddDate(0, 1, 0)
	perm, err := svc.Grant(ctx, actor, patientID, member.ID, &model.GrantPermissionRequest{
		PermissionType: model.PermissionBookAppointment,
		ExpiryDate:     &expiry,
	})
	require.NoError(t, err)
	assert.True(t, perm.Granted)

	newExpiry := time.Now().AddDate(0, 2, 0)
	updated, err := svc.Update(ctx, actor, patientID, member.ID, model.PermissionBookAppointment, &model.UpdatePermissionRequest{
		ExpiryDate: &newExpiry,
	})
	require.NoError(t, err)
	assert.Equal(t, newExpiry, *updated.ExpiryDate)
	assert.True(t, updated.Granted)

	require.NoError(t, svc.Revoke(ctx, actor, patientID, member.ID, model.PermissionBookAppointment))

	stored, err := repo.GetPermission(ctx, member.ID, model.PermissionBookAppointment)
	require.NoError(t, err)
	assert.False(t, stored.Granted)
}

func TestGrant_RejectsUnknownPermission(t *testing.T) {
	repo := newMemFamilyRepo()
	svc := newTestService(repo)
	patientID := uuid.New()

	_, err := svc.Grant(context.Background(), patientActor(patientID), patientID, uuid.New(), &model.GrantPermissionRequest{
		PermissionType: "NOT_A_PERMISSION",
	})
	assert.True(t, apperrors.IsValidation(err))
}

func TestGrant_OtherPatientsMemberIsNotFound(t *testing.T) {
	repo := newMemFamilyRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	ownerID := uuid.New()
	owner := patientActor(ownerID)
	member, err := svc.Invite(ctx, owner, ownerID, &model.InviteFamilyMemberRequest{
		Email:        "kid@example.com",
		Relationship: "child",
	})
	require.NoError(t, err)

	otherID := uuid.New()
	_, err = svc.Grant(ctx, patientActor(otherID), otherID, member.ID, &model.GrantPermissionRequest{
		PermissionType: model.PermissionViewAppointment,
	})
	assert.True(t, apperrors.IsNotFound(err))
}
