// Package models - news.go defines the NewsPost model for organization announcements.
package models

import "time"

// NewsPost represents an announcement shown on the organization's public page
// once published.
type NewsPost struct {
	ID        string
	OrgID     string
	Title     string
	Body      string
	Published bool
	CreatedBy *string
	CreatedAt time.Time
	UpdatedAt time.Time
}
