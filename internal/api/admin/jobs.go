// jobs.go implements HTTP handlers for job drafts and the publish workflow.
// Drafts are private working copies; publishing snapshots a draft into the
// blob store and records the public_jobs metadata row via internal/publish.
package admin

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/TakashiSato01/licope-lab/internal/db/models"
	"github.com/TakashiSato01/licope-lab/internal/db/repositories"
	"github.com/TakashiSato01/licope-lab/internal/publish"
)

// JobHandlers handles job draft and publish endpoints
type JobHandlers struct {
	jobRepo   *repositories.JobRepository
	publisher *publish.Publisher
}

// NewJobHandlers creates a new JobHandlers instance
func NewJobHandlers(jobRepo *repositories.JobRepository, publisher *publish.Publisher) *JobHandlers {
	return &JobHandlers{jobRepo: jobRepo, publisher: publisher}
}

func draftJSON(d *models.JobDraft) gin.H {
	return gin.H{
		"id":               d.ID,
		"org_id":           d.OrgID,
		"title":            d.Title,
		"wage":             d.Wage,
		"description":      d.Description,
		"facility_name":    d.FacilityName,
		"facility_address": d.FacilityAddress,
		"facility_type":    d.FacilityType,
		"employment_type":  d.EmploymentType,
		"working_hours":    d.WorkingHours,
		"requirements":     d.Requirements,
		"benefits":         d.Benefits,
		"created_by":       d.CreatedBy,
		"created_at":       d.CreatedAt,
		"updated_at":       d.UpdatedAt,
	}
}

func publicJobJSON(j *models.PublicJob, publicPath string) gin.H {
	out := gin.H{
		"id":             j.ID,
		"org_id":         j.OrgID,
		"title":          j.Title,
		"storage_path":   j.StoragePath,
		"thumbnail_path": j.ThumbnailPath,
		"thumbnail_url":  j.ThumbnailURL,
		"published_by":   j.PublishedBy,
		"published_at":   j.PublishedAt,
		"updated_by":     j.UpdatedBy,
		"updated_at":     j.UpdatedAt,
	}
	if publicPath != "" {
		out["public_path"] = publicPath
	}
	return out
}

// draftRequest carries the editable draft fields for create and update.
type draftRequest struct {
	Title           string `json:"title" form:"title"`
	Wage            string `json:"wage" form:"wage"`
	Description     string `json:"description" form:"description"`
	FacilityName    string `json:"facility_name" form:"facility_name"`
	FacilityAddress string `json:"facility_address" form:"facility_address"`
	FacilityType    string `json:"facility_type" form:"facility_type"`
	EmploymentType  string `json:"employment_type" form:"employment_type"`
	WorkingHours    string `json:"working_hours" form:"working_hours"`
	Requirements    string `json:"requirements" form:"requirements"`
	Benefits        string `json:"benefits" form:"benefits"`
}

func (r *draftRequest) apply(d *models.JobDraft) {
	d.Title = r.Title
	d.Wage = r.Wage
	d.Description = r.Description
	d.FacilityName = r.FacilityName
	d.FacilityAddress = r.FacilityAddress
	d.FacilityType = r.FacilityType
	d.EmploymentType = r.EmploymentType
	d.WorkingHours = r.WorkingHours
	d.Requirements = r.Requirements
	d.Benefits = r.Benefits
}

// ListDraftsHandler lists the organization's job drafts
// GET /api/v1/jobs
func (h *JobHandlers) ListDraftsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		member := currentMember(c)
		if member == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		drafts, err := h.jobRepo.ListDrafts(c.Request.Context(), member.OrgID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list drafts"})
			return
		}

		out := make([]gin.H, 0, len(drafts))
		for _, d := range drafts {
			out = append(out, draftJSON(d))
		}
		c.JSON(http.StatusOK, gin.H{"drafts": out})
	}
}

// GetDraftHandler returns one job draft
// GET /api/v1/jobs/:id
func (h *JobHandlers) GetDraftHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		member := currentMember(c)
		if member == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		d, err := h.jobRepo.GetDraft(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get draft"})
			return
		}
		if d == nil || d.OrgID != member.OrgID {
			c.JSON(http.StatusNotFound, gin.H{"error": "Draft not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"draft": draftJSON(d)})
	}
}

// CreateDraftHandler creates a job draft
// POST /api/v1/jobs
func (h *JobHandlers) CreateDraftHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		member := currentMember(c)
		if member == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		var req draftRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if strings.TrimSpace(req.Title) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
			return
		}

		d := &models.JobDraft{OrgID: member.OrgID, CreatedBy: &member.ID}
		req.apply(d)

		if err := h.jobRepo.CreateDraft(c.Request.Context(), d); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create draft"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"draft": draftJSON(d)})
	}
}

// UpdateDraftHandler updates a job draft
// PUT /api/v1/jobs/:id
func (h *JobHandlers) UpdateDraftHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		member := currentMember(c)
		if member == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		d, err := h.jobRepo.GetDraft(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get draft"})
			return
		}
		if d == nil || d.OrgID != member.OrgID {
			c.JSON(http.StatusNotFound, gin.H{"error": "Draft not found"})
			return
		}

		var req draftRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if strings.TrimSpace(req.Title) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
			return
		}

		req.apply(d)
		if err := h.jobRepo.UpdateDraft(c.Request.Context(), d); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update draft"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"draft": draftJSON(d)})
	}
}

// DeleteDraftHandler deletes a job draft. Published snapshots are unaffected.
// DELETE /api/v1/jobs/:id
func (h *JobHandlers) DeleteDraftHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		member := currentMember(c)
		if member == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		d, err := h.jobRepo.GetDraft(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get draft"})
			return
		}
		if d == nil || d.OrgID != member.OrgID {
			c.JSON(http.StatusNotFound, gin.H{"error": "Draft not found"})
			return
		}

		if err := h.jobRepo.DeleteDraft(c.Request.Context(), d.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete draft"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"deleted": true})
	}
}

// optionalThumbnail extracts the multipart "thumbnail" file when the request
// carries one. A non-multipart request simply has no thumbnail. The returned
// file, when non-nil, is the caller's to close.
func optionalThumbnail(c *gin.Context) (*publish.Thumbnail, multipart.File, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return nil, nil, nil
	}
	fileHeader, err := c.FormFile("thumbnail")
	if err != nil {
		// Multipart without a thumbnail part is fine
		return nil, nil, nil
	}
	file, err := fileHeader.Open()
	if err != nil {
		return nil, nil, err
	}
	return &publish.Thumbnail{
		Reader:   file,
		Size:     fileHeader.Size,
		Filename: fileHeader.Filename,
	}, file, nil
}

// writePublishError maps publish service errors onto HTTP status codes.
func writePublishError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, publish.ErrNotSignedIn):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
	case errors.Is(err, publish.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Publishing requires owner, admin, or editor role"})
	case errors.Is(err, publish.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Published job not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to publish job"})
	}
}

// @Summary      Publish a job draft
// @Description  Snapshots the draft into the public blob store and records the public job. Accepts an optional multipart thumbnail.
// @Tags         Jobs
// @Security     Bearer
// @Accept       multipart/form-data
// @Produce      json
// @Param        id  path  string  true  "Draft ID"
// @Success      201  {object}  map[string]interface{}  "job, public_path"
// @Failure      403  {object}  map[string]interface{}  "Insufficient role"
// @Failure      404  {object}  map[string]interface{}  "Draft not found"
// @Router       /api/v1/jobs/{id}/publish [post]
// PublishHandler publishes a draft
// POST /api/v1/jobs/:id/publish
func (h *JobHandlers) PublishHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		member := currentMember(c)
		if member == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		d, err := h.jobRepo.GetDraft(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get draft"})
			return
		}
		if d == nil || d.OrgID != member.OrgID {
			c.JSON(http.StatusNotFound, gin.H{"error": "Draft not found"})
			return
		}

		thumb, thumbFile, err := optionalThumbnail(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read thumbnail"})
			return
		}
		if thumbFile != nil {
			defer thumbFile.Close()
		}

		job, publicPath, err := h.publisher.Publish(c.Request.Context(), member, member.OrgID, d, thumb)
		if err != nil {
			writePublishError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"job":         publicJobJSON(job, publicPath),
			"public_path": publicPath,
		})
	}
}

// @Summary      Update a published job
// @Description  Re-renders the snapshot in place from the supplied fields. Keeps the stored thumbnail when no new file arrives.
// @Tags         Jobs
// @Security     Bearer
// @Accept       multipart/form-data
// @Produce      json
// @Param        pub_id  path  string  true  "Published job ID"
// @Success      200  {object}  map[string]interface{}  "job"
// @Failure      404  {object}  map[string]interface{}  "Published job not found"
// @Router       /api/v1/public-jobs/{pub_id} [put]
// UpdatePublicJobHandler updates a published snapshot in place
// PUT /api/v1/public-jobs/:pub_id
func (h *JobHandlers) UpdatePublicJobHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		member := currentMember(c)
		if member == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		var req draftRequest
		if strings.HasPrefix(c.ContentType(), "multipart/") {
			if err := c.ShouldBind(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid form fields"})
				return
			}
		} else {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
				return
			}
		}
		if strings.TrimSpace(req.Title) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
			return
		}

		thumb, thumbFile, err := optionalThumbnail(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read thumbnail"})
			return
		}
		if thumbFile != nil {
			defer thumbFile.Close()
		}

		draft := &models.JobDraft{OrgID: member.OrgID}
		req.apply(draft)

		job, err := h.publisher.Update(c.Request.Context(), member, member.OrgID, c.Param("pub_id"), draft, thumb)
		if err != nil {
			writePublishError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"job": publicJobJSON(job, publish.PublicPath(job.OrgID, job.ID))})
	}
}

// ListPublicJobsHandler lists the organization's published jobs for the dashboard
// GET /api/v1/public-jobs
func (h *JobHandlers) ListPublicJobsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		member := currentMember(c)
		if member == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		jobsList, err := h.jobRepo.ListPublicJobs(c.Request.Context(), member.OrgID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list published jobs"})
			return
		}

		out := make([]gin.H, 0, len(jobsList))
		for _, j := range jobsList {
			out = append(out, publicJobJSON(j, publish.PublicPath(j.OrgID, j.ID)))
		}
		c.JSON(http.StatusOK, gin.H{"jobs": out})
	}
}
