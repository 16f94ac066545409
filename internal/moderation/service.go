// Package moderation enforces the Licolog review workflow: pending posts are
// listed for reviewers, approved in batches, and every decision leaves an
// append-only event behind. Role checks live here so handlers stay thin.
package moderation

import (
	"context"
	"errors"

	"github.com/TakashiSato01/licope-lab/internal/db/models"
	"github.com/TakashiSato01/licope-lab/internal/db/repositories"
	"github.com/TakashiSato01/licope-lab/internal/telemetry"
)

var (
	// ErrNotSignedIn is returned when no actor is supplied.
	ErrNotSignedIn = errors.New("sign-in required")
	// ErrForbidden is returned when the actor's role may not moderate.
	ErrForbidden = errors.New("moderation permission required")
)

// Service coordinates moderation actions on Licolog posts.
type Service struct {
	repo *repositories.LicologRepository
}

// NewService creates a moderation service backed by the given repository.
func NewService(repo *repositories.LicologRepository) *Service {
	return &Service{repo: repo}
}

// ListPending returns the organization's posts awaiting review, newest first.
func (s *Service) ListPending(ctx context.Context, orgID string, limit int) ([]*models.LicologPost, error) {
	pending := models.PostStatusPending
	return s.repo.ListPosts(ctx, orgID, &pending, limit)
}

// ApproveMany approves the given posts in one transaction. An empty or nil id
// list is a no-op and succeeds without touching the database. The permission
// check still runs first: a viewer approving nothing is still forbidden.
func (s *Service) ApproveMany(ctx context.Context, actor *models.Member, orgID string, ids []string) error {
	if actor == nil {
		return ErrNotSignedIn
	}
	if !actor.Role.CanModerate() {
		return ErrForbidden
	}
	if len(ids) == 0 {
		return nil
	}

	if err := s.repo.ApproveMany(ctx, orgID, ids, actor.ID); err != nil {
		return err
	}

	telemetry.ModerationActionsTotal.WithLabelValues("approve").Add(float64(len(ids)))
	return nil
}

// Unapprove returns a single approved post to pending.
func (s *Service) Unapprove(ctx context.Context, actor *models.Member, orgID, postID string) error {
	if actor == nil {
		return ErrNotSignedIn
	}
	if !actor.Role.CanModerate() {
		return ErrForbidden
	}

	if err := s.repo.Unapprove(ctx, orgID, postID, actor.ID); err != nil {
		return err
	}

	telemetry.ModerationActionsTotal.WithLabelValues("unapprove").Inc()
	return nil
}

// ListEvents returns the organization's moderation trail, newest first.
func (s *Service) ListEvents(ctx context.Context, orgID string, limit int) ([]*models.LicologEvent, error) {
	return s.repo.ListEvents(ctx, orgID, limit)
}
