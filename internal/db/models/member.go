// Package models - member.go defines the Member model for organization accounts
// and the closed role set that gates every write operation.
package models

import "time"

// Role is a member's role within an organization. The set is closed: any
// other string is rejected at the store boundary.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleStaff  Role = "staff"
	RoleViewer Role = "viewer"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleEditor, RoleStaff, RoleViewer:
		return true
	}
	return false
}

// CanPublish reports whether the role may publish or update public job postings.
func (r Role) CanPublish() bool {
	return r == RoleOwner || r == RoleAdmin || r == RoleEditor
}

// CanModerate reports whether the role may approve or unapprove Licolog posts.
func (r Role) CanModerate() bool {
	return r == RoleOwner || r == RoleAdmin
}

// CanManageMembers reports whether the role may invite members or change roles.
func (r Role) CanManageMembers() bool {
	return r == RoleOwner || r == RoleAdmin
}

// CanPost reports whether the role may create Licolog posts.
func (r Role) CanPost() bool {
	return r != RoleViewer
}

// Member represents a member account within an organization
type Member struct {
	ID           string
	OrgID        string
	Email        string
	PasswordHash string
	DisplayName  string
	Role         Role
	// FacilityID holds the facility's contract ID string, not the facility
	// row ID. Lookups join on facilities.contract_id.
	FacilityID *string
	PhotoURL   *string
	AvatarPath *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
