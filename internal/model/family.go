package model

import (
	"time"

	"github.com/google/uuid"
)

type PermissionType string

const (
	PermissionBookAppointment   PermissionType = "BOOK_APPOINTMENT"
	PermissionCancelAppointment PermissionType = "CANCEL_APPOINTMENT"
	PermissionViewAppointment   PermissionType = "VIEW_APPOINTMENT"
	PermissionJoinVideoCall     PermissionType = "JOIN_VIDEO_CALL"
	PermissionViewDocuments     PermissionType = "VIEW_DOCUMENTS"
	PermissionAttachDocuments   PermissionType = "ATTACH_DOCUMENTS"
	PermissionViewReferrals     PermissionType = "VIEW_REFERRALS"
	PermissionManageFamily      PermissionType = "MANAGE_FAMILY_MEMBERS"
)

var permissionTypes = map[PermissionType]struct{}{
	PermissionBookAppointment:   {},
	PermissionCancelAppointment: {},
	PermissionViewAppointment:   {},
	PermissionJoinVideoCall:     {},
	PermissionViewDocuments:     {},
	PermissionAttachDocuments:   {},
	PermissionViewReferrals:     {},
	PermissionManageFamily:      {},
}

// Valid reports whether p is one of the closed set of grantable permissions.
func (p PermissionType) Valid() bool {
	_, ok := permissionTypes[p]
	return ok
}

// FamilyMember links a member account to a patient. AccountID is nil while
// the invitation is pending.
type FamilyMember struct {
	Base
	PatientID    uuid.UUID  `db:"patient_id" json:"patient_id"`
	AccountID    *uuid.UUID `db:"account_id" json:"account_id,omitempty"`
	InviteEmail  string     `db:"invite_email" json:"invite_email"`
	Relationship string     `db:"relationship" json:"relationship"`
	Pending      bool       `db:"pending" json:"pending"`
}

// FamilyMemberPermission is unique per (family member, permission type).
type FamilyMemberPermission struct {
	Base
	FamilyMemberID uuid.UUID      `db:"family_member_id" json:"family_member_id"`
	PermissionType PermissionType `db:"permission_type" json:"permission_type"`
	Granted        bool           `db:"granted" json:"granted"`
	ExpiryDate     *time.Time     `db:"expiry_date" json:"expiry_date,omitempty"`
	Notes          string         `db:"notes" json:"notes,omitempty"`
}

// IsActive is a pure function of (granted, expiry, now); the active state is
// never cached and never background-expired.
func (p *FamilyMemberPermission) IsActive(now time.Time) bool {
	if !p.Granted {
		return false
	}
	if p.ExpiryDate == nil {
		return true
	}
	// Expiry is inclusive of its calendar day.
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return !p.ExpiryDate.Before(today)
}

type InviteFamilyMemberRequest struct {
	Email        string `json:"email" binding:"required,email"`
	Relationship string `json:"relationship" binding:"required,max=100"`
}

type GrantPermissionRequest struct {
	PermissionType PermissionType `json:"permission_type" binding:"required,permission_type"`
	ExpiryDate     *time.Time     `json:"expiry_date"`
	Notes          string         `json:"notes" binding:"max=1000"`
}

type UpdatePermissionRequest struct {
	Granted    *bool      `json:"granted"`
	ExpiryDate *time.Time `json:"expiry_date"`
	Notes      *string    `json:"notes"`
}
