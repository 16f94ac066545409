// Package models - job.go defines the job posting models: the editable draft,
// the published metadata record, and the snapshot document written to blob storage.
package models

import "time"

// SnapshotSchemaVersion is the version stamped into every published snapshot.
const SnapshotSchemaVersion = 1

// JobDraft is the editable working copy of a job posting. Drafts are never
// publicly visible; publishing produces an immutable snapshot plus a
// PublicJob metadata record.
type JobDraft struct {
	ID              string
	OrgID           string
	Title           string
	Wage            string
	Description     string
	FacilityName    string
	FacilityAddress string
	FacilityType    string
	EmploymentType  string
	WorkingHours    string
	Requirements    string
	Benefits        string
	CreatedBy       *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PublicJob is the metadata record for a published job posting. The posting
// content itself lives in blob storage at StoragePath.
type PublicJob struct {
	ID            string
	OrgID         string
	Title         string
	StoragePath   string
	ThumbnailPath *string
	ThumbnailURL  *string
	PublishedBy   *string
	PublishedAt   time.Time
	UpdatedBy     *string
	UpdatedAt     time.Time
}

// JobSnapshot is the JSON document served to applicants. It is written once
// per publish and overwritten in place on update.
type JobSnapshot struct {
	OrgID           string  `json:"orgId"`
	Title           string  `json:"title"`
	Wage            string  `json:"wage"`
	Description     string  `json:"description"`
	FacilityName    string  `json:"facilityName,omitempty"`
	FacilityAddress string  `json:"facilityAddress,omitempty"`
	FacilityType    string  `json:"facilityType,omitempty"`
	EmploymentType  string  `json:"employmentType,omitempty"`
	WorkingHours    string  `json:"workingHours,omitempty"`
	Requirements    string  `json:"requirements,omitempty"`
	Benefits        string  `json:"benefits,omitempty"`
	Version         int     `json:"version"`
	GeneratedAt     int64   `json:"generatedAt"` // unix milliseconds
	ThumbnailPath   *string `json:"thumbnailPath,omitempty"`
	ThumbnailURL    *string `json:"thumbnailURL,omitempty"`
}
