// Package middleware (rbac.go) implements role-based authorization middleware.
//
// Roles are checked at request time against the member row loaded by
// AuthMiddleware rather than trusting the role claim embedded in the JWT. This
// is a deliberate design choice: when a member's role is changed, the change
// takes effect immediately on their next request without needing to invalidate
// or reissue their token. Trusting the JWT claim would require token rotation
// on every role change, which is operationally expensive and error-prone.

package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TakashiSato01/licope-lab/internal/db/models"
)

// memberRole pulls the current member's role out of the Gin context.
// Returns ("", false) when AuthMiddleware did not run or did not authenticate.
func memberRole(c *gin.Context) (models.Role, bool) {
	roleVal, exists := c.Get("role")
	if !exists {
		return "", false
	}
	role, ok := roleVal.(models.Role)
	return role, ok
}

// requireRoleCheck wraps a role predicate into a Gin handler that responds 403
// when the predicate fails.
func requireRoleCheck(allowed func(models.Role) bool, detail string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := memberRole(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Insufficient permissions",
			})
			return
		}

		if !allowed(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "Insufficient role",
				"details": detail,
			})
			return
		}

		c.Next()
	}
}

// RequirePublisher allows roles that may publish or update job postings.
func RequirePublisher() gin.HandlerFunc {
	return requireRoleCheck(models.Role.CanPublish, "Publishing requires owner, admin, or editor role")
}

// RequireModerator allows roles that may approve or unapprove Licolog posts.
func RequireModerator() gin.HandlerFunc {
	return requireRoleCheck(models.Role.CanModerate, "Moderation requires owner or admin role")
}

// RequireMemberManager allows roles that may invite members and change roles.
func RequireMemberManager() gin.HandlerFunc {
	return requireRoleCheck(models.Role.CanManageMembers, "Member management requires owner or admin role")
}

// RequirePoster allows roles that may create Licolog posts and news.
func RequirePoster() gin.HandlerFunc {
	return requireRoleCheck(models.Role.CanPost, "Posting requires a staff role or above")
}

// RequireOrgAccess verifies the :org_id path parameter matches the
// authenticated member's organization. Every tenant-scoped admin route mounts
// this so a valid session for one org can never read or mutate another org's
// data, regardless of what role the member holds.
func RequireOrgAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgVal, exists := c.Get("org_id")
		if !exists {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Member not authenticated",
			})
			return
		}

		memberOrgID, ok := orgVal.(string)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Invalid organization ID format",
			})
			return
		}

		pathOrgID := c.Param("org_id")
		if pathOrgID != "" && pathOrgID != memberOrgID {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Not a member of this organization",
			})
			return
		}

		c.Next()
	}
}
