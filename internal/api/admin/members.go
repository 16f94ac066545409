// members.go implements HTTP handlers for member accounts: listing, invites,
// profile and role updates, and avatar uploads. Role and facility assignment
// are admin-only; profile edits are allowed for the member themselves.
package admin

import (
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/TakashiSato01/licope-lab/internal/auth"
	"github.com/TakashiSato01/licope-lab/internal/config"
	"github.com/TakashiSato01/licope-lab/internal/db/models"
	"github.com/TakashiSato01/licope-lab/internal/db/repositories"
	"github.com/TakashiSato01/licope-lab/internal/storage"
)

// maxAvatarBytes bounds an avatar upload.
const maxAvatarBytes = 5 << 20 // 5 MiB

// avatarURLTTL controls how long signed avatar URLs stay valid on backends
// that cannot produce permanent links.
const avatarURLTTL = 7 * 24 * time.Hour

// MemberHandlers handles member management endpoints
type MemberHandlers struct {
	cfg        *config.Config
	memberRepo *repositories.MemberRepository
	backend    storage.Storage
}

// NewMemberHandlers creates a new MemberHandlers instance
func NewMemberHandlers(cfg *config.Config, memberRepo *repositories.MemberRepository, backend storage.Storage) *MemberHandlers {
	return &MemberHandlers{
		cfg:        cfg,
		memberRepo: memberRepo,
		backend:    backend,
	}
}

// @Summary      List members
// @Tags         Members
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "members"
// @Router       /api/v1/members [get]
// ListHandler lists the organization's members, newest first
// GET /api/v1/members
func (h *MemberHandlers) ListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		member := currentMember(c)
		if member == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		members, err := h.memberRepo.List(c.Request.Context(), member.OrgID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list members"})
			return
		}

		out := make([]gin.H, 0, len(members))
		for _, m := range members {
			out = append(out, memberJSON(m))
		}
		c.JSON(http.StatusOK, gin.H{"members": out})
	}
}

// inviteRequest is the POST /members body.
type inviteRequest struct {
	Email       string  `json:"email" binding:"required"`
	Password    string  `json:"password" binding:"required"`
	DisplayName string  `json:"display_name" binding:"required"`
	Role        string  `json:"role" binding:"required"`
	FacilityID  *string `json:"facility_id"`
}

// @Summary      Invite a member
// @Description  Creates a member account in the session's organization. Owner or admin only; the role gate runs in middleware.
// @Tags         Members
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Success      201  {object}  map[string]interface{}  "member"
// @Failure      400  {object}  map[string]interface{}  "Invalid body or role"
// @Failure      409  {object}  map[string]interface{}  "Email already in use"
// @Router       /api/v1/members [post]
// InviteHandler creates a new member in the caller's organization
// POST /api/v1/members
func (h *MemberHandlers) InviteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := currentMember(c)
		if actor == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		var req inviteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email, password, display_name, and role are required"})
			return
		}

		role := models.Role(req.Role)
		if !role.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid role: %s", req.Role)})
			return
		}

		existing, err := h.memberRepo.GetByEmail(c.Request.Context(), actor.OrgID, req.Email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check email"})
			return
		}
		if existing != nil {
			c.JSON(http.StatusConflict, gin.H{"error": "A member with this email already exists"})
			return
		}

		hash, err := auth.HashPassword(req.Password, h.cfg.Auth.BcryptCost)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		m := &models.Member{
			OrgID:        actor.OrgID,
			Email:        req.Email,
			PasswordHash: hash,
			DisplayName:  req.DisplayName,
			Role:         role,
			FacilityID:   req.FacilityID,
		}
		if err := h.memberRepo.Create(c.Request.Context(), m); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create member"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"member": memberJSON(m)})
	}
}

// loadSameOrgMember fetches the target member and verifies tenant scope.
// Returns nil after writing the error response when the target is invalid.
func (h *MemberHandlers) loadSameOrgMember(c *gin.Context, actor *models.Member) *models.Member {
	target, err := h.memberRepo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get member"})
		return nil
	}
	if target == nil || target.OrgID != actor.OrgID {
		// Cross-tenant ids look identical to unknown ids
		c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
		return nil
	}
	return target
}

// @Summary      Get a member
// @Tags         Members
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Member ID"
// @Success      200  {object}  map[string]interface{}  "member"
// @Failure      404  {object}  map[string]interface{}  "Member not found"
// @Router       /api/v1/members/{id} [get]
// GetHandler returns one member of the caller's organization
// GET /api/v1/members/:id
func (h *MemberHandlers) GetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := currentMember(c)
		if actor == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		target := h.loadSameOrgMember(c, actor)
		if target == nil {
			return
		}

		c.JSON(http.StatusOK, gin.H{"member": memberJSON(target)})
	}
}

// @Summary      Update a member profile
// @Description  Updates display name and facility assignment. Members may edit their own profile; editing others requires owner or admin.
// @Tags         Members
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id  path  string  true  "Member ID"
// @Success      200  {object}  map[string]interface{}  "member"
// @Failure      403  {object}  map[string]interface{}  "Not your profile"
// @Router       /api/v1/members/{id} [put]
// UpdateProfileHandler updates a member's display name and facility
// PUT /api/v1/members/:id
func (h *MemberHandlers) UpdateProfileHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := currentMember(c)
		if actor == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		target := h.loadSameOrgMember(c, actor)
		if target == nil {
			return
		}

		if target.ID != actor.ID && !actor.Role.CanManageMembers() {
			c.JSON(http.StatusForbidden, gin.H{"error": "Only owner or admin may edit other members"})
			return
		}

		var req struct {
			DisplayName string  `json:"display_name"`
			FacilityID  *string `json:"facility_id"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		if req.DisplayName != "" {
			target.DisplayName = req.DisplayName
		}
		if req.FacilityID != nil {
			// Facility assignment is admin-only even on your own profile
			if !actor.Role.CanManageMembers() {
				c.JSON(http.StatusForbidden, gin.H{"error": "Facility assignment requires owner or admin role"})
				return
			}
			target.FacilityID = req.FacilityID
		}

		if err := h.memberRepo.UpdateProfile(c.Request.Context(), target); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update member"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"member": memberJSON(target)})
	}
}

// @Summary      Change a member's role
// @Description  Owner or admin only; the role gate runs in middleware.
// @Tags         Members
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id  path  string  true  "Member ID"
// @Success      200  {object}  map[string]interface{}  "member"
// @Failure      400  {object}  map[string]interface{}  "Invalid role"
// @Router       /api/v1/members/{id}/role [put]
// UpdateRoleHandler changes a member's role
// PUT /api/v1/members/:id/role
func (h *MemberHandlers) UpdateRoleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := currentMember(c)
		if actor == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		target := h.loadSameOrgMember(c, actor)
		if target == nil {
			return
		}

		var req struct {
			Role string `json:"role" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "role is required"})
			return
		}

		role := models.Role(req.Role)
		if !role.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid role: %s", req.Role)})
			return
		}

		if err := h.memberRepo.UpdateRole(c.Request.Context(), target.ID, role); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update role"})
			return
		}

		target.Role = role
		c.JSON(http.StatusOK, gin.H{"member": memberJSON(target)})
	}
}

// sanitizeFilename keeps the base name only and replaces characters that
// don't belong in a storage key.
func sanitizeFilename(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// @Summary      Upload a member avatar
// @Description  Accepts a multipart image, stores it under the member's avatar prefix, patches the row, and best-effort deletes the previous object.
// @Tags         Members
// @Security     Bearer
// @Accept       multipart/form-data
// @Produce      json
// @Param        id    path      string  true  "Member ID"
// @Param        file  formData  file    true  "Avatar image"
// @Success      200  {object}  map[string]interface{}  "member"
// @Failure      400  {object}  map[string]interface{}  "Missing or oversized file"
// @Router       /api/v1/members/{id}/avatar [post]
// UploadAvatarHandler stores a new avatar for a member
// POST /api/v1/members/:id/avatar
func (h *MemberHandlers) UploadAvatarHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := currentMember(c)
		if actor == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		target := h.loadSameOrgMember(c, actor)
		if target == nil {
			return
		}

		if target.ID != actor.ID && !actor.Role.CanManageMembers() {
			c.JSON(http.StatusForbidden, gin.H{"error": "Only owner or admin may change other members' avatars"})
			return
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Avatar file is required"})
			return
		}
		if fileHeader.Size > maxAvatarBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Avatar exceeds the 5 MiB limit"})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read upload"})
			return
		}
		defer file.Close()

		avatarPath := fmt.Sprintf("orgs/%s/members/%s/avatar_%d_%s",
			target.OrgID, target.ID, time.Now().Unix(), sanitizeFilename(fileHeader.Filename))

		if _, err := h.backend.Upload(c.Request.Context(), avatarPath, file, fileHeader.Size); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store avatar"})
			return
		}

		photoURL, err := h.backend.GetURL(c.Request.Context(), avatarPath, avatarURLTTL)
		if err != nil {
			// The path is stored either way; the URL can be re-resolved later
			photoURL = ""
		}

		previousPath := target.AvatarPath
		if err := h.memberRepo.UpdateAvatar(c.Request.Context(), target.ID, avatarPath, photoURL); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update member"})
			return
		}

		// Best-effort cleanup of the replaced object
		if previousPath != nil && *previousPath != "" && *previousPath != avatarPath {
			if err := h.backend.Delete(c.Request.Context(), *previousPath); err != nil {
				slog.Warn("failed to delete previous avatar", "path", *previousPath, "error", err)
			}
		}

		target.AvatarPath = &avatarPath
		if photoURL != "" {
			target.PhotoURL = &photoURL
		}
		c.JSON(http.StatusOK, gin.H{"member": memberJSON(target)})
	}
}
