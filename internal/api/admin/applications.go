package admin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/TakashiSato01/licope-lab/internal/db/models"
	"github.com/TakashiSato01/licope-lab/internal/db/repositories"
)

// ApplicationHandlers handles the staff-facing application inbox
type ApplicationHandlers struct {
	appRepo *repositories.ApplicationRepository
}

// NewApplicationHandlers creates a new ApplicationHandlers instance
func NewApplicationHandlers(appRepo *repositories.ApplicationRepository) *ApplicationHandlers {
	return &ApplicationHandlers{appRepo: appRepo}
}

func applicationJSON(a *models.Application) gin.H {
	return gin.H{
		"id":          a.ID,
		"org_id":      a.OrgID,
		"job_pub_id":  a.JobPubID,
		"name":        a.Name,
		"contact":     a.Contact,
		"message":     a.Message,
		"status":      a.Status,
		"notified_at": a.NotifiedAt,
		"created_at":  a.CreatedAt,
		"updated_at":  a.UpdatedAt,
	}
}

// @Summary      List applications
// @Description  Lists the organization's applications newest first with limit/offset pagination.
// @Tags         Applications
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "Page size (default 50, max 200)"
// @Param        offset  query  int  false  "Rows to skip"
// @Success      200  {object}  map[string]interface{}  "applications, total"
// @Router       /api/v1/applications [get]
// ListHandler lists applications for the inbox
// GET /api/v1/applications
func (h *ApplicationHandlers) ListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		member := currentMember(c)
		if member == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		if limit <= 0 || limit > 200 {
			limit = 50
		}
		if offset < 0 {
			offset = 0
		}

		apps, err := h.appRepo.List(c.Request.Context(), member.OrgID, limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list applications"})
			return
		}
		total, err := h.appRepo.Count(c.Request.Context(), member.OrgID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count applications"})
			return
		}

		out := make([]gin.H, 0, len(apps))
		for _, a := range apps {
			out = append(out, applicationJSON(a))
		}
		c.JSON(http.StatusOK, gin.H{
			"applications": out,
			"total":        total,
			"limit":        limit,
			"offset":       offset,
		})
	}
}

// updateStatusRequest carries a triage status transition.
type updateStatusRequest struct {
	Status models.ApplicationStatus `json:"status" binding:"required"`
}

// @Summary      Update application status
// @Description  Moves an application between pending, review, and done.
// @Tags         Applications
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id  path  string  true  "Application ID"
// @Success      200  {object}  map[string]interface{}  "application"
// @Failure      400  {object}  map[string]interface{}  "Unknown status"
// @Failure      404  {object}  map[string]interface{}  "Application not found"
// @Router       /api/v1/applications/{id}/status [put]
// UpdateStatusHandler updates the triage status of an application
// PUT /api/v1/applications/:id/status
func (h *ApplicationHandlers) UpdateStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		member := currentMember(c)
		if member == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		var req updateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if !req.Status.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status"})
			return
		}

		a, err := h.appRepo.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get application"})
			return
		}
		if a == nil || a.OrgID != member.OrgID {
			c.JSON(http.StatusNotFound, gin.H{"error": "Application not found"})
			return
		}

		if err := h.appRepo.UpdateStatus(c.Request.Context(), a.ID, req.Status); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update status"})
			return
		}
		a.Status = req.Status

		c.JSON(http.StatusOK, gin.H{"application": applicationJSON(a)})
	}
}
