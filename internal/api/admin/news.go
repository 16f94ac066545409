package admin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/TakashiSato01/licope-lab/internal/db/models"
	"github.com/TakashiSato01/licope-lab/internal/db/repositories"
)

// NewsHandlers handles organization news posts
type NewsHandlers struct {
	newsRepo *repositories.NewsRepository
}

// NewNewsHandlers creates a new NewsHandlers instance
func NewNewsHandlers(newsRepo *repositories.NewsRepository) *NewsHandlers {
	return &NewsHandlers{newsRepo: newsRepo}
}

func newsJSON(n *models.NewsPost) gin.H {
	return gin.H{
		"id":         n.ID,
		"org_id":     n.OrgID,
		"title":      n.Title,
		"body":       n.Body,
		"published":  n.Published,
		"created_by": n.CreatedBy,
		"created_at": n.CreatedAt,
		"updated_at": n.UpdatedAt,
	}
}

type newsRequest struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	Published bool   `json:"published"`
}

// ListHandler lists the organization's news posts, drafts included
// GET /api/v1/news
func (h *NewsHandlers) ListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		member := currentMember(c)
		if member == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		posts, err := h.newsRepo.List(c.Request.Context(), member.OrgID, false)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list news"})
			return
		}

		out := make([]gin.H, 0, len(posts))
		for _, n := range posts {
			out = append(out, newsJSON(n))
		}
		c.JSON(http.StatusOK, gin.H{"news": out})
	}
}

// GetHandler returns one news post
// GET /api/v1/news/:id
func (h *NewsHandlers) GetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		member := currentMember(c)
		if member == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		n, err := h.newsRepo.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get news post"})
			return
		}
		if n == nil || n.OrgID != member.OrgID {
			c.JSON(http.StatusNotFound, gin.H{"error": "News post not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"post": newsJSON(n)})
	}
}

// CreateHandler creates a news post
// POST /api/v1/news
func (h *NewsHandlers) CreateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		member := currentMember(c)
		if member == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		var req newsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if strings.TrimSpace(req.Title) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
			return
		}

		n := &models.NewsPost{
			OrgID:     member.OrgID,
			Title:     req.Title,
			Body:      req.Body,
			Published: req.Published,
			CreatedBy: &member.ID,
		}
		if err := h.newsRepo.Create(c.Request.Context(), n); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create news post"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"post": newsJSON(n)})
	}
}

// UpdateHandler updates a news post
// PUT /api/v1/news/:id
func (h *NewsHandlers) UpdateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		member := currentMember(c)
		if member == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		n, err := h.newsRepo.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get news post"})
			return
		}
		if n == nil || n.OrgID != member.OrgID {
			c.JSON(http.StatusNotFound, gin.H{"error": "News post not found"})
			return
		}

		var req newsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if strings.TrimSpace(req.Title) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
			return
		}

		n.Title = req.Title
		n.Body = req.Body
		n.Published = req.Published
		if err := h.newsRepo.Update(c.Request.Context(), n); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update news post"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"post": newsJSON(n)})
	}
}

// DeleteHandler deletes a news post
// DELETE /api/v1/news/:id
func (h *NewsHandlers) DeleteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		member := currentMember(c)
		if member == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		n, err := h.newsRepo.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get news post"})
			return
		}
		if n == nil || n.OrgID != member.OrgID {
			c.JSON(http.StatusNotFound, gin.H{"error": "News post not found"})
			return
		}

		if err := h.newsRepo.Delete(c.Request.Context(), n.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete news post"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"deleted": true})
	}
}
