// Package models - licolog.go defines the Licolog micro-post models: the post
// with its closed moderation status set, attached media references, and the
// append-only moderation event trail.
package models

import "time"

// PostStatus is a Licolog post's moderation state. The set is closed: any
// other string is rejected at the store boundary.
type PostStatus string

const (
	PostStatusPending  PostStatus = "pending"
	PostStatusApproved PostStatus = "approved"
	PostStatusHidden   PostStatus = "hidden"
	PostStatusInternal PostStatus = "internal"
)

// Valid reports whether s is one of the known post statuses.
func (s PostStatus) Valid() bool {
	switch s {
	case PostStatusPending, PostStatusApproved, PostStatusHidden, PostStatusInternal:
		return true
	}
	return false
}

// EventType identifies a moderation event.
type EventType string

const (
	EventLicologApproved   EventType = "licolog_approved"
	EventLicologUnapproved EventType = "licolog_unapproved"
)

// MediaRef points at an uploaded image belonging to a post.
type MediaRef struct {
	Path   string `json:"path"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Bytes  int64  `json:"bytes,omitempty"`
}

// LicologPost represents a staff micro-post awaiting or past moderation
type LicologPost struct {
	ID         string
	OrgID      string
	Body       string
	FacilityID *string // contract ID string, same indirection as Member.FacilityID
	AuthorID   *string
	Status     PostStatus
	Media      []MediaRef
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// LicologEvent is one append-only moderation event. Events are never updated
// or deleted.
type LicologEvent struct {
	ID        string
	OrgID     string
	Type      EventType
	PostID    string
	ActorID   *string
	CreatedAt time.Time
}
