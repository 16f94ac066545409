// Package models - job_view.go defines the raw view event row and the daily
// aggregate counter used by the dashboard.
package models

import "time"

// DayKeyFormat is the layout of day_key values (e.g. "2026-08-30").
const DayKeyFormat = "2006-01-02"

// JobView is one recorded view of a published job page. Rows are append-only.
type JobView struct {
	ID        string
	OrgID     string
	JobPubID  string
	DayKey    string
	Referrer  string
	UserAgent string
	ViewerID  *string // set when the viewer was signed in
	ViewedAt  time.Time
}

// JobViewDaily is the upserted per-day view counter for an organization.
type JobViewDaily struct {
	OrgID  string
	DayKey string
	Count  int64
}
