// Package publish implements the job posting publish workflow: it coordinates
// serializing the snapshot document, uploading it (and an optional thumbnail)
// to the configured storage backend, and recording the public_jobs metadata
// row.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/TakashiSato01/licope-lab/internal/db/models"
	"github.com/TakashiSato01/licope-lab/internal/db/repositories"
	"github.com/TakashiSato01/licope-lab/internal/storage"
	"github.com/TakashiSato01/licope-lab/internal/telemetry"
)

var (
	// ErrNotSignedIn is returned when no actor is supplied.
	ErrNotSignedIn = errors.New("sign-in required")
	// ErrForbidden is returned when the actor's role may not publish.
	ErrForbidden = errors.New("publish permission required")
	// ErrNotFound is returned by Update when the publication does not exist.
	ErrNotFound = errors.New("published job not found")
)

// thumbnailURLTTL is how long generated thumbnail links stay valid on cloud
// backends. Local storage ignores it.
const thumbnailURLTTL = 7 * 24 * time.Hour

// Thumbnail is an optional image uploaded alongside a snapshot.
type Thumbnail struct {
	Reader   io.Reader
	Size     int64
	Filename string
}

// Publisher handles publishing job drafts as public snapshots.
type Publisher struct {
	jobRepo *repositories.JobRepository
	backend storage.Storage
}

// NewPublisher creates a new publisher.
func NewPublisher(jobRepo *repositories.JobRepository, backend storage.Storage) *Publisher {
	return &Publisher{
		jobRepo: jobRepo,
		backend: backend,
	}
}

// SnapshotPath is the deterministic blob location for a publication.
func SnapshotPath(orgID, pubID string) string {
	return fmt.Sprintf("public/orgs/%s/jobs/%s.json", orgID, pubID)
}

// PublicPath returns the public page path for a publication.
func PublicPath(orgID, pubID string) string {
	return fmt.Sprintf("/p/%s/jobs/%s", orgID, pubID)
}

// thumbExt sanitizes a client-supplied filename down to a safe image
// extension. Anything unexpected becomes .jpg.
func thumbExt(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return ext
	}
	return ".jpg"
}

// Publish turns a draft into a public job posting. It allocates the
// publication ID, uploads the optional thumbnail, writes the snapshot JSON,
// and inserts the metadata row. Returns the created metadata record and the
// public page path.
//
// There is no rollback of earlier uploads when a later step fails: a
// half-published snapshot is harmless (nothing links to it until the metadata
// row exists) and the next publish simply writes fresh blobs under a new ID.
func (p *Publisher) Publish(ctx context.Context, actor *models.Member, orgID string, draft *models.JobDraft, thumb *Thumbnail) (*models.PublicJob, string, error) {
	if actor == nil {
		return nil, "", ErrNotSignedIn
	}
	if !actor.Role.CanPublish() {
		return nil, "", ErrForbidden
	}

	pubID := uuid.New().String()

	var thumbnailPath, thumbnailURL *string
	if thumb != nil {
		tp := fmt.Sprintf("public/orgs/%s/jobs/%s/thumb%s", orgID, pubID, thumbExt(thumb.Filename))
		if _, err := p.backend.Upload(ctx, tp, thumb.Reader, thumb.Size); err != nil {
			return nil, "", fmt.Errorf("upload thumbnail: %w", err)
		}
		thumbnailPath = &tp

		if url, err := p.backend.GetURL(ctx, tp, thumbnailURLTTL); err == nil && url != "" {
			thumbnailURL = &url
		}
	}

	storagePath := SnapshotPath(orgID, pubID)
	if err := p.writeSnapshot(ctx, storagePath, orgID, draft, thumbnailPath, thumbnailURL); err != nil {
		return nil, "", err
	}

	actorID := actor.ID
	job := &models.PublicJob{
		ID:            pubID,
		OrgID:         orgID,
		Title:         draft.Title,
		StoragePath:   storagePath,
		ThumbnailPath: thumbnailPath,
		ThumbnailURL:  thumbnailURL,
		PublishedBy:   &actorID,
	}

	if err := p.jobRepo.CreatePublicJob(ctx, job); err != nil {
		return nil, "", fmt.Errorf("create public job record: %w", err)
	}

	telemetry.JobPublishesTotal.Inc()

	return job, PublicPath(orgID, pubID), nil
}

// Update republish an existing publication in place: the snapshot blob is
// overwritten at its stored path and the metadata row is patched. When no new
// thumbnail is supplied the previously stored thumbnail fields are preserved;
// concurrent updates are last-writer-wins.
func (p *Publisher) Update(ctx context.Context, actor *models.Member, orgID, pubID string, draft *models.JobDraft, thumb *Thumbnail) (*models.PublicJob, error) {
	if actor == nil {
		return nil, ErrNotSignedIn
	}
	if !actor.Role.CanPublish() {
		return nil, ErrForbidden
	}

	job, err := p.jobRepo.GetPublicJob(ctx, orgID, pubID)
	if err != nil {
		return nil, fmt.Errorf("load public job: %w", err)
	}
	if job == nil {
		return nil, ErrNotFound
	}

	thumbnailPath := job.ThumbnailPath
	thumbnailURL := job.ThumbnailURL
	if thumb != nil {
		tp := fmt.Sprintf("public/orgs/%s/jobs/%s/thumb%s", orgID, pubID, thumbExt(thumb.Filename))
		if _, err := p.backend.Upload(ctx, tp, thumb.Reader, thumb.Size); err != nil {
			return nil, fmt.Errorf("upload thumbnail: %w", err)
		}
		thumbnailPath = &tp
		thumbnailURL = nil
		if url, urlErr := p.backend.GetURL(ctx, tp, thumbnailURLTTL); urlErr == nil && url != "" {
			thumbnailURL = &url
		}
	}

	// Rows migrated from older deployments may carry an empty storage path.
	storagePath := job.StoragePath
	if storagePath == "" {
		storagePath = SnapshotPath(orgID, pubID)
	}

	if err := p.writeSnapshot(ctx, storagePath, orgID, draft, thumbnailPath, thumbnailURL); err != nil {
		return nil, err
	}

	actorID := actor.ID
	job.Title = draft.Title
	job.StoragePath = storagePath
	job.ThumbnailPath = thumbnailPath
	job.ThumbnailURL = thumbnailURL
	job.UpdatedBy = &actorID

	if err := p.jobRepo.UpdatePublicJob(ctx, job); err != nil {
		return nil, fmt.Errorf("update public job record: %w", err)
	}

	telemetry.JobPublishesTotal.Inc()

	return job, nil
}

// writeSnapshot serializes the snapshot document and uploads it.
func (p *Publisher) writeSnapshot(ctx context.Context, storagePath, orgID string, draft *models.JobDraft, thumbnailPath, thumbnailURL *string) error {
	snapshot := &models.JobSnapshot{
		OrgID:           orgID,
		Title:           draft.Title,
		Wage:            draft.Wage,
		Description:     draft.Description,
		FacilityName:    draft.FacilityName,
		FacilityAddress: draft.FacilityAddress,
		FacilityType:    draft.FacilityType,
		EmploymentType:  draft.EmploymentType,
		WorkingHours:    draft.WorkingHours,
		Requirements:    draft.Requirements,
		Benefits:        draft.Benefits,
		Version:         models.SnapshotSchemaVersion,
		GeneratedAt:     time.Now().UnixMilli(),
		ThumbnailPath:   thumbnailPath,
		ThumbnailURL:    thumbnailURL,
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize snapshot: %w", err)
	}

	if _, err := p.backend.Upload(ctx, storagePath, bytes.NewReader(data), int64(len(data))); err != nil {
		return fmt.Errorf("upload snapshot: %w", err)
	}

	return nil
}
