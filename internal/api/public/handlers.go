// Package public implements the unauthenticated HTTP surface: the published
// job snapshot proxy, thumbnail redirects, view tracking, application intake,
// and the public news feed.
package public

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/TakashiSato01/licope-lab/internal/db/models"
	"github.com/TakashiSato01/licope-lab/internal/db/repositories"
	"github.com/TakashiSato01/licope-lab/internal/publish"
	"github.com/TakashiSato01/licope-lab/internal/storage"
	"github.com/TakashiSato01/licope-lab/internal/telemetry"

	"github.com/TakashiSato01/licope-lab/internal/apply"
)

const thumbnailRedirectTTL = time.Hour

// Handlers handles the public-facing endpoints
type Handlers struct {
	jobRepo  *repositories.JobRepository
	viewRepo *repositories.JobViewRepository
	newsRepo *repositories.NewsRepository
	backend  storage.Storage
	apply    *apply.Service
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	jobRepo *repositories.JobRepository,
	viewRepo *repositories.JobViewRepository,
	newsRepo *repositories.NewsRepository,
	backend storage.Storage,
	applySvc *apply.Service,
) *Handlers {
	return &Handlers{
		jobRepo:  jobRepo,
		viewRepo: viewRepo,
		newsRepo: newsRepo,
		backend:  backend,
		apply:    applySvc,
	}
}

// optionalViewerID returns the signed-in member's ID when OptionalAuth put one
// on the context. Anonymous viewers are the normal case.
func optionalViewerID(c *gin.Context) *string {
	v, ok := c.Get("member")
	if !ok {
		return nil
	}
	m, ok := v.(*models.Member)
	if !ok {
		return nil
	}
	return &m.ID
}

// recordView logs one view. Failures are logged and swallowed: tracking never
// breaks the page.
func (h *Handlers) recordView(c *gin.Context, orgID, pubID string) {
	view := &models.JobView{
		OrgID:     orgID,
		JobPubID:  pubID,
		Referrer:  c.GetHeader("Referer"),
		UserAgent: c.GetHeader("User-Agent"),
		ViewerID:  optionalViewerID(c),
	}
	if err := h.viewRepo.RecordView(c.Request.Context(), view); err != nil {
		slog.Warn("failed to record job view",
			"org_id", orgID,
			"pub_id", pubID,
			"error", err)
		return
	}
	telemetry.JobViewsTotal.Inc()
}

// @Summary      Published job page
// @Description  Streams the published snapshot JSON and records a view.
// @Tags         Public
// @Produce      json
// @Param        org_id  path  string  true  "Organization ID"
// @Param        pub_id  path  string  true  "Publication ID"
// @Success      200  {object}  map[string]interface{}  "snapshot"
// @Failure      404  {object}  map[string]interface{}  "Not published"
// @Router       /p/{org_id}/jobs/{pub_id} [get]
// SnapshotHandler serves a published job snapshot
// GET /p/:org_id/jobs/:pub_id
func (h *Handlers) SnapshotHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.Param("org_id")
		pubID := c.Param("pub_id")

		job, err := h.jobRepo.GetPublicJob(c.Request.Context(), orgID, pubID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load job"})
			return
		}
		if job == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
			return
		}

		storagePath := job.StoragePath
		if storagePath == "" {
			storagePath = publish.SnapshotPath(orgID, pubID)
		}

		reader, err := h.backend.Download(c.Request.Context(), storagePath)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Snapshot not found"})
			return
		}
		defer reader.Close()

		h.recordView(c, orgID, pubID)

		c.DataFromReader(http.StatusOK, -1, "application/json; charset=utf-8", reader, nil)
	}
}

// ThumbnailHandler redirects to the job's thumbnail
// GET /p/:org_id/jobs/:pub_id/thumbnail
func (h *Handlers) ThumbnailHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		job, err := h.jobRepo.GetPublicJob(c.Request.Context(), c.Param("org_id"), c.Param("pub_id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load job"})
			return
		}
		if job == nil || job.ThumbnailPath == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Thumbnail not found"})
			return
		}

		url, err := h.backend.GetURL(c.Request.Context(), *job.ThumbnailPath, thumbnailRedirectTTL)
		if err != nil || url == "" {
			c.JSON(http.StatusNotFound, gin.H{"error": "Thumbnail not found"})
			return
		}

		c.Redirect(http.StatusFound, url)
	}
}

// trackViewRequest matches the key casing the published snapshot uses, since
// the tracking beacon lives on the same public page.
type trackViewRequest struct {
	OrgID string `json:"orgId" binding:"required"`
	PubID string `json:"pubId" binding:"required"`
}

// TrackViewHandler records a view reported by the public page beacon
// POST /api/v1/track/view
func (h *Handlers) TrackViewHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req trackViewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "orgId and pubId are required"})
			return
		}

		view := &models.JobView{
			OrgID:     req.OrgID,
			JobPubID:  req.PubID,
			Referrer:  c.GetHeader("Referer"),
			UserAgent: c.GetHeader("User-Agent"),
			ViewerID:  optionalViewerID(c),
		}
		if err := h.viewRepo.RecordView(c.Request.Context(), view); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record view"})
			return
		}
		telemetry.JobViewsTotal.Inc()

		c.JSON(http.StatusOK, gin.H{"recorded": true})
	}
}

// ValidateApplicationHandler dry-runs application validation for inline form
// feedback
// POST /api/v1/public/:org_id/applications/validate
func (h *Handlers) ValidateApplicationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var in apply.Input
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		if errs := apply.Validate(in); !errs.Valid() {
			c.JSON(http.StatusOK, gin.H{"valid": false, "errors": errs})
			return
		}
		c.JSON(http.StatusOK, gin.H{"valid": true})
	}
}

type submitApplicationRequest struct {
	apply.Input
	JobPubID string `json:"job_pub_id" binding:"required"`
}

// @Summary      Submit an application
// @Description  Validates and stores an application against a published job. Stored applications always start pending.
// @Tags         Public
// @Accept       json
// @Produce      json
// @Param        org_id  path  string  true  "Organization ID"
// @Success      201  {object}  map[string]interface{}  "application id"
// @Failure      422  {object}  map[string]interface{}  "Field errors"
// @Router       /api/v1/public/{org_id}/applications [post]
// SubmitApplicationHandler accepts a public job application
// POST /api/v1/public/:org_id/applications
func (h *Handlers) SubmitApplicationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.Param("org_id")

		var req submitApplicationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		// Applications only attach to jobs that are actually published.
		job, err := h.jobRepo.GetPublicJob(c.Request.Context(), orgID, req.JobPubID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load job"})
			return
		}
		if job == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
			return
		}

		app, fieldErrs, err := h.apply.Submit(c.Request.Context(), orgID, req.JobPubID, req.Input)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit application"})
			return
		}
		if fieldErrs != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"valid": false, "errors": fieldErrs})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"id":         app.ID,
			"status":     app.Status,
			"created_at": app.CreatedAt,
		})
	}
}

// PublicNewsHandler lists an organization's published news posts
// GET /api/v1/public/:org_id/news
func (h *Handlers) PublicNewsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		posts, err := h.newsRepo.List(c.Request.Context(), c.Param("org_id"), true)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list news"})
			return
		}

		out := make([]gin.H, 0, len(posts))
		for _, n := range posts {
			out = append(out, gin.H{
				"id":         n.ID,
				"title":      n.Title,
				"body":       n.Body,
				"created_at": n.CreatedAt,
				"updated_at": n.UpdatedAt,
			})
		}
		c.JSON(http.StatusOK, gin.H{"news": out})
	}
}
