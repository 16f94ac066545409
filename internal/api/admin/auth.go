// auth.go implements HTTP handlers for password login, token refresh, and the
// current-member profile endpoint.
package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TakashiSato01/licope-lab/internal/auth"
	"github.com/TakashiSato01/licope-lab/internal/config"
	"github.com/TakashiSato01/licope-lab/internal/db/models"
	"github.com/TakashiSato01/licope-lab/internal/db/repositories"
)

// AuthHandlers handles authentication-related endpoints
type AuthHandlers struct {
	cfg        *config.Config
	memberRepo *repositories.MemberRepository
	orgRepo    *repositories.OrganizationRepository
}

// NewAuthHandlers creates a new AuthHandlers instance
func NewAuthHandlers(cfg *config.Config, memberRepo *repositories.MemberRepository, orgRepo *repositories.OrganizationRepository) *AuthHandlers {
	return &AuthHandlers{
		cfg:        cfg,
		memberRepo: memberRepo,
		orgRepo:    orgRepo,
	}
}

// loginRequest is the POST /auth/login body. Org is the organization's
// URL-safe slug; it is only required when the same email exists in more
// than one organization.
type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Org      string `json:"org"`
}

// memberJSON renders the member profile shape shared by login, refresh, and me.
// The password hash never leaves the handler layer.
func memberJSON(m *models.Member) gin.H {
	return gin.H{
		"id":           m.ID,
		"org_id":       m.OrgID,
		"email":        m.Email,
		"display_name": m.DisplayName,
		"role":         m.Role,
		"facility_id":  m.FacilityID,
		"photo_url":    m.PhotoURL,
		"created_at":   m.CreatedAt,
		"updated_at":   m.UpdatedAt,
	}
}

// @Summary      Password login
// @Description  Authenticate with email and password. Returns a JWT session token and the member profile. When the email exists in more than one organization the org slug must be supplied.
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        body  body  object  true  "email, password, optional org slug"
// @Success      200  {object}  map[string]interface{}  "token, expires_in, member"
// @Failure      400  {object}  map[string]interface{}  "Malformed request body"
// @Failure      401  {object}  map[string]interface{}  "Invalid credentials"
// @Failure      409  {object}  map[string]interface{}  "Email exists in multiple organizations"
// @Router       /api/v1/auth/login [post]
// LoginHandler authenticates a member with email + password
// POST /api/v1/auth/login
func (h *AuthHandlers) LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
			return
		}

		var member *models.Member
		if req.Org != "" {
			org, err := h.orgRepo.GetByName(c.Request.Context(), req.Org)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up organization"})
				return
			}
			if org == nil {
				// Same response as a bad password so org slugs cannot be enumerated
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
				return
			}
			member, err = h.memberRepo.GetByEmail(c.Request.Context(), org.ID, req.Email)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up member"})
				return
			}
		} else {
			matches, err := h.memberRepo.FindByEmail(c.Request.Context(), req.Email)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up member"})
				return
			}
			if len(matches) > 1 {
				c.JSON(http.StatusConflict, gin.H{
					"error": "This email belongs to more than one organization; supply the org slug",
				})
				return
			}
			if len(matches) == 1 {
				member = matches[0]
			}
		}

		if member == nil || !auth.VerifyPassword(req.Password, member.PasswordHash) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}

		token, err := auth.GenerateJWT(member.ID, member.OrgID, member.Email, string(member.Role), h.cfg.Auth.SessionTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token":      token,
			"expires_in": int(h.cfg.Auth.SessionTTL.Seconds()),
			"member":     memberJSON(member),
		})
	}
}

// @Summary      Refresh JWT token
// @Description  Exchange an existing valid JWT for a fresh one with extended expiration. The embedded role is re-read from the database.
// @Tags         Authentication
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "token, expires_in"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Router       /api/v1/auth/refresh [post]
// RefreshHandler refreshes an existing JWT token
// POST /api/v1/auth/refresh
func (h *AuthHandlers) RefreshHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		member := currentMember(c)
		if member == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		token, err := auth.GenerateJWT(member.ID, member.OrgID, member.Email, string(member.Role), h.cfg.Auth.SessionTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token":      token,
			"expires_in": int(h.cfg.Auth.SessionTTL.Seconds()),
		})
	}
}

// @Summary      Get current member
// @Description  Returns the authenticated member's profile as loaded by the auth middleware.
// @Tags         Authentication
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "member"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Router       /api/v1/auth/me [get]
// MeHandler returns the current authenticated member's profile
// GET /api/v1/auth/me
func (h *AuthHandlers) MeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		member := currentMember(c)
		if member == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"member": memberJSON(member)})
	}
}

// currentMember pulls the member loaded by AuthMiddleware out of the context.
func currentMember(c *gin.Context) *models.Member {
	v, exists := c.Get("member")
	if !exists {
		return nil
	}
	m, ok := v.(*models.Member)
	if !ok {
		return nil
	}
	return m
}
