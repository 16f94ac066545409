// Package models - facility.go defines the Facility model for a physical care
// location belonging to an organization, keyed externally by contract ID.
package models

import "time"

// Facility represents a care facility operated by an organization
type Facility struct {
	ID         string
	OrgID      string
	Name       string
	ContractID string // External contract identifier; members reference this, not the row ID
	Address    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
