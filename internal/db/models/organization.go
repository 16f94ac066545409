// Package models - organization.go defines the Organization model representing a tenant
// with a URL-safe name and human-readable display name.
package models

import "time"

// Organization represents a tenant organization (a care operator)
type Organization struct {
	ID          string
	Name        string // URL-safe name (used in public paths)
	DisplayName string // Human-readable display name
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
