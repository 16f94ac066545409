// Package middleware provides Gin HTTP middleware for authentication, authorization,
// rate limiting, security headers, and audit logging.
//
// Middleware ordering matters and is enforced in router.go:
//
//	Security → RateLimit → Auth → Role gate → Audit → Handler
//
// Security headers run first so they appear on all responses including errors.
// Rate limiting runs before auth to block brute-force attacks before any DB work.
// Auth populates the member identity and role; role gates read from that context.
// Audit logging runs after the role gate so only successfully authorized mutations
// are recorded as successful actions.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TakashiSato01/licope-lab/internal/auth"
	"github.com/TakashiSato01/licope-lab/internal/config"
	"github.com/TakashiSato01/licope-lab/internal/db/repositories"
)

// AuthMiddleware validates the session token on every request and loads the
// member record so downstream handlers see fresh role and profile data even if
// the token carries a stale role claim.
func AuthMiddleware(cfg *config.Config, memberRepo *repositories.MemberRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Missing authorization header",
			})
			return
		}

		token, err := auth.ExtractBearerToken(authHeader)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": err.Error(),
			})
			return
		}

		claims, err := auth.ValidateJWT(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired session token",
			})
			return
		}

		member, err := memberRepo.GetByID(c.Request.Context(), claims.MemberID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load member",
			})
			return
		}

		if member == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Member not found",
			})
			return
		}

		// The org claim must match the member's current org. Tokens survive
		// re-invitations only if the membership stayed in the same tenant.
		if member.OrgID != claims.OrgID {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Session no longer valid for this organization",
			})
			return
		}

		c.Set("member", member)
		c.Set("member_id", member.ID)
		c.Set("org_id", member.OrgID)
		c.Set("role", member.Role)

		c.Next()
	}
}

// OptionalAuthMiddleware - same as AuthMiddleware but doesn't abort if no auth.
// Used on public routes where a signed-in member gets extra response fields.
func OptionalAuthMiddleware(cfg *config.Config, memberRepo *repositories.MemberRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		token, err := auth.ExtractBearerToken(authHeader)
		if err != nil {
			c.Next()
			return
		}

		if claims, err := auth.ValidateJWT(token); err == nil {
			member, err := memberRepo.GetByID(c.Request.Context(), claims.MemberID)
			if err == nil && member != nil && member.OrgID == claims.OrgID {
				c.Set("member", member)
				c.Set("member_id", member.ID)
				c.Set("org_id", member.OrgID)
				c.Set("role", member.Role)
			}
		}

		// Continue regardless of auth status
		c.Next()
	}
}
