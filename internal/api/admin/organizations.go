// organizations.go implements HTTP handlers for the tenant organization record.
// Every session is scoped to exactly one organization, so there is no
// cross-tenant listing surface; members read and update their own org only.
package admin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/TakashiSato01/licope-lab/internal/db/models"
	"github.com/TakashiSato01/licope-lab/internal/db/repositories"
)

// OrganizationHandlers handles organization endpoints
type OrganizationHandlers struct {
	orgRepo *repositories.OrganizationRepository
}

// NewOrganizationHandlers creates a new OrganizationHandlers instance
func NewOrganizationHandlers(orgRepo *repositories.OrganizationRepository) *OrganizationHandlers {
	return &OrganizationHandlers{orgRepo: orgRepo}
}

func organizationJSON(o *models.Organization) gin.H {
	return gin.H{
		"id":           o.ID,
		"name":         o.Name,
		"display_name": o.DisplayName,
		"created_at":   o.CreatedAt,
		"updated_at":   o.UpdatedAt,
	}
}

// @Summary      Get own organization
// @Tags         Organizations
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "organization"
// @Failure      404  {object}  map[string]interface{}  "Organization not found"
// @Router       /api/v1/org [get]
// GetHandler returns the session's organization
// GET /api/v1/org
func (h *OrganizationHandlers) GetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		member := currentMember(c)
		if member == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		org, err := h.orgRepo.GetByID(c.Request.Context(), member.OrgID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get organization"})
			return
		}
		if org == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"organization": organizationJSON(org)})
	}
}

// @Summary      Update own organization
// @Description  Updates the display name (and optionally the URL-safe slug) of the session's organization. Owner or admin only.
// @Tags         Organizations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "organization"
// @Failure      400  {object}  map[string]interface{}  "Invalid body"
// @Router       /api/v1/org [put]
// UpdateHandler updates the session's organization
// PUT /api/v1/org
func (h *OrganizationHandlers) UpdateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		member := currentMember(c)
		if member == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		var req struct {
			Name        string `json:"name"`
			DisplayName string `json:"display_name"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		org, err := h.orgRepo.GetByID(c.Request.Context(), member.OrgID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get organization"})
			return
		}
		if org == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
			return
		}

		if req.DisplayName != "" {
			org.DisplayName = req.DisplayName
		}
		if req.Name != "" {
			slug := strings.TrimSpace(strings.ToLower(req.Name))
			if slug == "" || strings.ContainsAny(slug, " /\\?#%") {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Organization name must be URL-safe"})
				return
			}
			org.Name = slug
		}

		if err := h.orgRepo.Update(c.Request.Context(), org); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update organization"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"organization": organizationJSON(org)})
	}
}
