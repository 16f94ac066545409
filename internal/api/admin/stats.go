// stats.go implements handlers for aggregating and serving dashboard statistics.
package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TakashiSato01/licope-lab/internal/db/models"
	"github.com/TakashiSato01/licope-lab/internal/db/repositories"
)

// StatsHandlers handles dashboard statistics requests
type StatsHandlers struct {
	jobRepo     *repositories.JobRepository
	viewRepo    *repositories.JobViewRepository
	licologRepo *repositories.LicologRepository
	appRepo     *repositories.ApplicationRepository
}

// NewStatsHandlers creates a new StatsHandlers instance
func NewStatsHandlers(
	jobRepo *repositories.JobRepository,
	viewRepo *repositories.JobViewRepository,
	licologRepo *repositories.LicologRepository,
	appRepo *repositories.ApplicationRepository,
) *StatsHandlers {
	return &StatsHandlers{
		jobRepo:     jobRepo,
		viewRepo:    viewRepo,
		licologRepo: licologRepo,
		appRepo:     appRepo,
	}
}

// dashboardDayCount is one bucket of the daily view series.
type dashboardDayCount struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

// DashboardStats is the response shape for the dashboard endpoint.
type DashboardStats struct {
	Drafts        int                 `json:"drafts"`
	PublishedJobs int                 `json:"published_jobs"`
	PendingPosts  int                 `json:"pending_posts"`
	Applications  int                 `json:"applications"`
	TotalViews    int64               `json:"total_views"`
	DailyViews    []dashboardDayCount `json:"daily_views"`
}

// dashboardSeriesDays bounds the daily view series returned to the dashboard.
const dashboardSeriesDays = 30

// @Summary      Dashboard statistics
// @Description  Returns draft, publication, moderation, and application counts plus a 30-day daily view series for the signed-in organization.
// @Tags         Stats
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  DashboardStats
// @Router       /api/v1/stats/dashboard [get]
// DashboardHandler returns dashboard statistics
// GET /api/v1/stats/dashboard
func (h *StatsHandlers) DashboardHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		member := currentMember(c)
		if member == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}
		ctx := c.Request.Context()
		orgID := member.OrgID

		drafts, err := h.jobRepo.CountDrafts(ctx, orgID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count drafts"})
			return
		}
		published, err := h.jobRepo.CountPublicJobs(ctx, orgID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count published jobs"})
			return
		}
		pendingPosts, err := h.licologRepo.CountByStatus(ctx, orgID, models.PostStatusPending)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count pending posts"})
			return
		}
		applications, err := h.appRepo.Count(ctx, orgID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count applications"})
			return
		}
		totalViews, err := h.viewRepo.TotalViews(ctx, orgID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to total views"})
			return
		}
		series, err := h.viewRepo.DailySeries(ctx, orgID, dashboardSeriesDays)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load view series"})
			return
		}

		daily := make([]dashboardDayCount, 0, len(series))
		for _, d := range series {
			daily = append(daily, dashboardDayCount{Day: d.DayKey, Count: d.Count})
		}

		c.JSON(http.StatusOK, DashboardStats{
			Drafts:        drafts,
			PublishedJobs: published,
			PendingPosts:  pendingPosts,
			Applications:  applications,
			TotalViews:    totalViews,
			DailyViews:    daily,
		})
	}
}
