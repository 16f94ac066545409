// Package licolog implements the HTTP surface for staff micro-posts: creating
// posts, listing them by status, and the moderation queue operations backed by
// internal/moderation.
package licolog

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/TakashiSato01/licope-lab/internal/db/models"
	"github.com/TakashiSato01/licope-lab/internal/db/repositories"
	"github.com/TakashiSato01/licope-lab/internal/moderation"
)

const defaultListLimit = 50
const maxListLimit = 200

// Handlers handles Licolog post and moderation endpoints
type Handlers struct {
	repo       *repositories.LicologRepository
	moderation *moderation.Service
}

// NewHandlers creates a new Handlers instance
func NewHandlers(repo *repositories.LicologRepository, svc *moderation.Service) *Handlers {
	return &Handlers{repo: repo, moderation: svc}
}

func currentMember(c *gin.Context) *models.Member {
	v, ok := c.Get("member")
	if !ok {
		return nil
	}
	m, ok := v.(*models.Member)
	if !ok {
		return nil
	}
	return m
}

func postJSON(p *models.LicologPost) gin.H {
	return gin.H{
		"id":          p.ID,
		"org_id":      p.OrgID,
		"body":        p.Body,
		"facility_id": p.FacilityID,
		"author_id":   p.AuthorID,
		"status":      p.Status,
		"media":       p.Media,
		"created_at":  p.CreatedAt,
		"updated_at":  p.UpdatedAt,
	}
}

func eventJSON(e *models.LicologEvent) gin.H {
	return gin.H{
		"id":         e.ID,
		"org_id":     e.OrgID,
		"type":       e.Type,
		"post_id":    e.PostID,
		"actor_id":   e.ActorID,
		"created_at": e.CreatedAt,
	}
}

func parseLimit(c *gin.Context) int {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit)))
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	return limit
}

func writeModerationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, moderation.ErrNotSignedIn):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
	case errors.Is(err, moderation.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Moderation requires owner or admin role"})
	case errors.Is(err, repositories.ErrPostNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Moderation action failed"})
	}
}

// createPostRequest carries a new micro-post. Internal posts skip the public
// moderation queue entirely.
type createPostRequest struct {
	Body       string            `json:"body" binding:"required"`
	FacilityID *string           `json:"facility_id"`
	Media      []models.MediaRef `json:"media"`
	Internal   bool              `json:"internal"`
}

// @Summary      Create a Licolog post
// @Description  Creates a staff micro-post. Posts start pending unless marked internal.
// @Tags         Licolog
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Success      201  {object}  map[string]interface{}  "post"
// @Router       /api/v1/licolog/posts [post]
// CreatePostHandler creates a micro-post
// POST /api/v1/licolog/posts
func (h *Handlers) CreatePostHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		member := currentMember(c)
		if member == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		var req createPostRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if strings.TrimSpace(req.Body) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "body is required"})
			return
		}

		status := models.PostStatusPending
		if req.Internal {
			status = models.PostStatusInternal
		}

		p := &models.LicologPost{
			OrgID:      member.OrgID,
			Body:       req.Body,
			FacilityID: req.FacilityID,
			AuthorID:   &member.ID,
			Status:     status,
			Media:      req.Media,
		}
		if err := h.repo.CreatePost(c.Request.Context(), p); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create post"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"post": postJSON(p)})
	}
}

// ListPostsHandler lists micro-posts, optionally filtered by status
// GET /api/v1/licolog/posts?status=&limit=
func (h *Handlers) ListPostsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		member := currentMember(c)
		if member == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		var status *models.PostStatus
		if raw := c.Query("status"); raw != "" {
			s := models.PostStatus(raw)
			if !s.Valid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status"})
				return
			}
			status = &s
		}

		posts, err := h.repo.ListPosts(c.Request.Context(), member.OrgID, status, parseLimit(c))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list posts"})
			return
		}

		out := make([]gin.H, 0, len(posts))
		for _, p := range posts {
			out = append(out, postJSON(p))
		}
		c.JSON(http.StatusOK, gin.H{"posts": out})
	}
}

// ListPendingHandler lists the moderation queue
// GET /api/v1/licolog/pending
func (h *Handlers) ListPendingHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		member := currentMember(c)
		if member == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		posts, err := h.moderation.ListPending(c.Request.Context(), member.OrgID, parseLimit(c))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list pending posts"})
			return
		}

		out := make([]gin.H, 0, len(posts))
		for _, p := range posts {
			out = append(out, postJSON(p))
		}
		c.JSON(http.StatusOK, gin.H{"posts": out})
	}
}

type approveRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

// @Summary      Approve posts
// @Description  Approves a batch of pending posts in one transaction and appends one event per post.
// @Tags         Licolog
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "approved count"
// @Failure      403  {object}  map[string]interface{}  "Insufficient role"
// @Router       /api/v1/licolog/approve [post]
// ApproveHandler approves a batch of posts
// POST /api/v1/licolog/approve
func (h *Handlers) ApproveHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		member := currentMember(c)

		var req approveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		orgID := ""
		if member != nil {
			orgID = member.OrgID
		}
		if err := h.moderation.ApproveMany(c.Request.Context(), member, orgID, req.IDs); err != nil {
			writeModerationError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"approved": len(req.IDs)})
	}
}

// UnapproveHandler sends an approved post back to pending
// POST /api/v1/licolog/posts/:id/unapprove
func (h *Handlers) UnapproveHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		member := currentMember(c)

		orgID := ""
		if member != nil {
			orgID = member.OrgID
		}
		if err := h.moderation.Unapprove(c.Request.Context(), member, orgID, c.Param("id")); err != nil {
			writeModerationError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"unapproved": true})
	}
}

// ListEventsHandler lists the moderation event trail, newest first
// GET /api/v1/licolog/events?limit=
func (h *Handlers) ListEventsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		member := currentMember(c)
		if member == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		events, err := h.moderation.ListEvents(c.Request.Context(), member.OrgID, parseLimit(c))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list events"})
			return
		}

		out := make([]gin.H, 0, len(events))
		for _, e := range events {
			out = append(out, eventJSON(e))
		}
		c.JSON(http.StatusOK, gin.H{"events": out})
	}
}
