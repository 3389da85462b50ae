package delegation

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebook/scheduling-api/internal/model"
	apperrors "github.com/carebook/scheduling-api/pkg/errors"
)

type fakeFamilyRepo struct {
	member *model.FamilyMember
	perm   *model.FamilyMemberPermission
}

func (f *fakeFamilyRepo) CreateMember(ctx context.Context, member *model.FamilyMember) error {
	return nil
}

func (f *fakeFamilyRepo) GetMember(ctx context.Context, id uuid.UUID) (*model.FamilyMember, error) {
	if f.member == nil {
		return nil, sql.ErrNoRows
	}
	return f.member, nil
}

func (f *fakeFamilyRepo) GetMemberByAccount(ctx context.Context, accountID, patientID uuid.UUID) (*model.FamilyMember, error) {
	if f.member == nil {
		return nil, sql.ErrNoRows
	}
	return f.member, nil
}

func (f *fakeFamilyRepo) ListMembers(ctx context.Context, patientID uuid.UUID) ([]*model.FamilyMember, error) {
	return nil, nil
}

func (f *fakeFamilyRepo) LinkAccount(ctx context.Context, memberID, accountID uuid.UUID) error {
	return nil
}

func (f *fakeFamilyRepo) DeleteMember(ctx context.Context, id uuid.UUID) error {
	return nil
}

func (f *fakeFamilyRepo) UpsertPermission(ctx context.Context, perm *model.FamilyMemberPermission) error {
	return nil
}

func (f *fakeFamilyRepo) GetPermission(ctx context.Context, memberID uuid.UUID, permType model.PermissionType) (*model.FamilyMemberPermission, error) {
	if f.perm == nil {
		return nil, sql.ErrNoRows
	}
	return f.perm, nil
}

func (f *fakeFamilyRepo) ListPermissions(ctx context.Context, memberID uuid.UUID) ([]*model.FamilyMemberPermission, error) {
	return nil, nil
}

func (f *fakeFamilyRepo) UpdatePermission(ctx context.Context, perm *model.FamilyMemberPermission) error {
	return nil
}

func newTestService(repo *fakeFamilyRepo, now time.Time) *Service {
	svc := NewService(repo)
	svc.now = func() time.Time { return now }
	return svc
}

func TestIsAuthorizedForPatient(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	patientID := uuid.New()
	memberID := uuid.New()
	yesterday := now.AddDate(0, 0, -1)
	nextWeek := now.AddDate(0, 0, 7)

	ownActor := model.Actor{
		AccountID: uuid.New(),
		Type:      model.AccountTypePatient,
		PatientID: &patientID,
	}
	memberActor := model.Actor{
		AccountID: uuid.New(),
		Type:      model.AccountTypeMember,
	}

	member := &model.FamilyMember{PatientID: patientID}
	member.ID = memberID

	tests := []struct {
		name  string
		actor model.Actor
		repo  *fakeFamilyRepo
		want  bool
	}{
		{
			name:  "patient acting on own record",
			actor: ownActor,
			repo:  &fakeFamilyRepo{},
			want:  true,
		},
		{
			name:  "member with active permission",
			actor: memberActor,
			repo: &fakeFamilyRepo{
				member: member,
				perm:   &model.FamilyMemberPermission{Granted: true, ExpiryDate: &nextWeek},
			},
			want: true,
		},
		{
			name:  "member with expired permission",
			actor: memberActor,
			repo: &fakeFamilyRepo{
				member: member,
				perm:   &model.FamilyMemberPermission{Granted: true, ExpiryDate: &yesterday},
			},
			want: false,
		},
		{
			name:  "member with revoked permission",
			actor: memberActor,
			repo: &fakeFamilyRepo{
				member: member,
				perm:   &model.FamilyMemberPermission{Granted: false},
			},
			want: false,
		},
		{
			name:  "member without the permission",
			actor: memberActor,
			repo:  &fakeFamilyRepo{member: member},
			want:  false,
		},
		{
			name:  "no relation to patient",
			actor: memberActor,
			repo:  &fakeFamilyRepo{},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(tt.repo, now)
			ok, err := svc.IsAuthorizedForPatient(context.Background(), tt.actor, patientID, model.PermissionBookAppointment)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestAuthorize_DeniedBecomesAuthorizationError(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	svc := newTestService(&fakeFamilyRepo{}, now)

	actor := model.Actor{AccountID: uuid.New(), Type: model.AccountTypeMember}
	err := svc.Authorize(context.Background(), actor, uuid.New(), model.PermissionCancelAppointment)

	require.Error(t, err)
	assert.True(t, apperrors.IsAuthorization(err))
}
