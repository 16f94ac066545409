// Package models - application.go defines the Application model for public
// applicant submissions and their review lifecycle.
package models

import "time"

// ApplicationStatus is an application's review state: pending -> review -> done.
type ApplicationStatus string

const (
	ApplicationPending ApplicationStatus = "pending"
	ApplicationReview  ApplicationStatus = "review"
	ApplicationDone    ApplicationStatus = "done"
)

// Valid reports whether s is one of the known application statuses.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationPending, ApplicationReview, ApplicationDone:
		return true
	}
	return false
}

// Application represents a job application submitted through the public page.
// NotifiedAt marks whether the notification email has been sent; the notifier
// scans for NULL values and fills them in after delivery (or dry-run).
type Application struct {
	ID         string
	OrgID      string
	JobPubID   string
	Name       string
	Contact    string
	Message    string
	Status     ApplicationStatus
	NotifiedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
