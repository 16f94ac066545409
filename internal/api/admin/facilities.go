// facilities.go implements HTTP handlers for facility records. Facilities are
// referenced from members and Licolog posts by contract_id, not by row id; the
// write surface is owner/admin only (gated in middleware).
package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TakashiSato01/licope-lab/internal/db/models"
	"github.com/TakashiSato01/licope-lab/internal/db/repositories"
)

// FacilityHandlers handles facility endpoints
type FacilityHandlers struct {
	facilityRepo *repositories.FacilityRepository
}

// NewFacilityHandlers creates a new FacilityHandlers instance
func NewFacilityHandlers(facilityRepo *repositories.FacilityRepository) *FacilityHandlers {
	return &FacilityHandlers{facilityRepo: facilityRepo}
}

func facilityJSON(f *models.Facility) gin.H {
	return gin.H{
		"id":          f.ID,
		"org_id":      f.OrgID,
		"name":        f.Name,
		"contract_id": f.ContractID,
		"address":     f.Address,
		"created_at":  f.CreatedAt,
		"updated_at":  f.UpdatedAt,
	}
}

// ListHandler lists the organization's facilities
// GET /api/v1/facilities
func (h *FacilityHandlers) ListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		member := currentMember(c)
		if member == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		facilities, err := h.facilityRepo.List(c.Request.Context(), member.OrgID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list facilities"})
			return
		}

		out := make([]gin.H, 0, len(facilities))
		for _, f := range facilities {
			out = append(out, facilityJSON(f))
		}
		c.JSON(http.StatusOK, gin.H{"facilities": out})
	}
}

// GetHandler returns one facility
// GET /api/v1/facilities/:id
func (h *FacilityHandlers) GetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		member := currentMember(c)
		if member == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		f, err := h.facilityRepo.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get facility"})
			return
		}
		if f == nil || f.OrgID != member.OrgID {
			c.JSON(http.StatusNotFound, gin.H{"error": "Facility not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"facility": facilityJSON(f)})
	}
}

type facilityRequest struct {
	Name       string `json:"name" binding:"required"`
	ContractID string `json:"contract_id" binding:"required"`
	Address    string `json:"address"`
}

// CreateHandler creates a facility
// POST /api/v1/facilities
func (h *FacilityHandlers) CreateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		member := currentMember(c)
		if member == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		var req facilityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name and contract_id are required"})
			return
		}

		existing, err := h.facilityRepo.GetByContractID(c.Request.Context(), member.OrgID, req.ContractID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check contract id"})
			return
		}
		if existing != nil {
			c.JSON(http.StatusConflict, gin.H{"error": "A facility with this contract id already exists"})
			return
		}

		f := &models.Facility{
			OrgID:      member.OrgID,
			Name:       req.Name,
			ContractID: req.ContractID,
			Address:    req.Address,
		}
		if err := h.facilityRepo.Create(c.Request.Context(), f); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create facility"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"facility": facilityJSON(f)})
	}
}

// UpdateHandler updates a facility
// PUT /api/v1/facilities/:id
func (h *FacilityHandlers) UpdateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		member := currentMember(c)
		if member == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		f, err := h.facilityRepo.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get facility"})
			return
		}
		if f == nil || f.OrgID != member.OrgID {
			c.JSON(http.StatusNotFound, gin.H{"error": "Facility not found"})
			return
		}

		var req struct {
			Name    string `json:"name"`
			Address string `json:"address"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		if req.Name != "" {
			f.Name = req.Name
		}
		if req.Address != "" {
			f.Address = req.Address
		}

		if err := h.facilityRepo.Update(c.Request.Context(), f); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update facility"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"facility": facilityJSON(f)})
	}
}

// DeleteHandler deletes a facility. Members referencing its contract id keep
// the dangling string; the indirection is by contract, not by row.
// DELETE /api/v1/facilities/:id
func (h *FacilityHandlers) DeleteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		member := currentMember(c)
		if member == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		f, err := h.facilityRepo.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get facility"})
			return
		}
		if f == nil || f.OrgID != member.OrgID {
			c.JSON(http.StatusNotFound, gin.H{"error": "Facility not found"})
			return
		}

		if err := h.facilityRepo.Delete(c.Request.Context(), f.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete facility"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"deleted": true})
	}
}
