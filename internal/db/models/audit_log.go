// Package models - audit_log.go defines the AuditLog model for recording security-relevant
// events, capturing actor, action, affected resource, client IP, and arbitrary metadata.
package models

import "time"

// AuditLog represents an audit log entry for tracking member actions
type AuditLog struct {
	ID           string
	MemberID     *string                // Nullable for system actions
	OrgID        *string
	Action       string                 // "job.publish", "licolog.approve", "member.create"
	ResourceType *string                // "job", "licolog_post", "member", "application"
	ResourceID   *string                // UUID of affected resource
	Metadata     map[string]interface{} // JSONB: additional context
	IPAddress    *string                // Client IP
	CreatedAt    time.Time
}
