package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFamilyMemberPermission_IsActive(t *testing.T) {
	now := time.Date(2025, 6, 10, 15, 30, 0, 0, time.UTC)
	date := func(y int, m time.Month, d int) *time.Time {
		t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		return &t
	}

	tests := []struct {
		name string
		perm FamilyMemberPermission
		want bool
	}{
		{"granted without expiry", FamilyMemberPermission{Granted: true}, true},
		{"revoked without expiry", FamilyMemberPermission{Granted: false}, false},
		{"expiry in the future", FamilyMemberPermission{Granted: true, ExpiryDate: date(2025, 7, 1)}, true},
		{"expires today, still active", FamilyMemberPermission{Granted: true, ExpiryDate: date(2025, 6, 10)}, true},
		{"expired yesterday", FamilyMemberPermission{Granted: true, ExpiryDate: date(2025, 6, 9)}, false},
		{"revoked despite future expiry", FamilyMemberPermission{Granted: false, ExpiryDate: date(2025, 7, 1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.perm.IsActive(now))
		})
	}
}

func TestPermissionType_Valid(t *testing.T) {
	assert.True(t, PermissionBookAppointment.Valid())
	assert.True(t, PermissionManageFamily.Valid())
	assert.False(t, PermissionType("DELETE_EVERYTHING").Valid())
	assert.False(t, PermissionType("").Valid())
}
