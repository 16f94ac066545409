// Package api wires together all HTTP routes for the Licope backend.
//
// Route grouping philosophy:
//   - Public pages (/p/) and the public API (/api/v1/public/, /api/v1/track/)
//     are intentionally unauthenticated. Published job pages must load without
//     credentials, and applicants never have accounts.
//   - Staff routes (/api/v1/) always require authentication; the dashboard is
//     a multi-tenant surface and every handler is scoped to the signed-in
//     member's organization.
package api

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/TakashiSato01/licope-lab/internal/api/admin"
	"github.com/TakashiSato01/licope-lab/internal/api/licolog"
	"github.com/TakashiSato01/licope-lab/internal/api/public"
	"github.com/TakashiSato01/licope-lab/internal/apply"
	"github.com/TakashiSato01/licope-lab/internal/audit"
	"github.com/TakashiSato01/licope-lab/internal/config"
	"github.com/TakashiSato01/licope-lab/internal/db/repositories"
	"github.com/TakashiSato01/licope-lab/internal/jobs"
	"github.com/TakashiSato01/licope-lab/internal/middleware"
	"github.com/TakashiSato01/licope-lab/internal/moderation"
	"github.com/TakashiSato01/licope-lab/internal/publish"
	"github.com/TakashiSato01/licope-lab/internal/safego"
	"github.com/TakashiSato01/licope-lab/internal/storage"

	// Import storage backends to register them
	_ "github.com/TakashiSato01/licope-lab/internal/storage/azure"
	_ "github.com/TakashiSato01/licope-lab/internal/storage/gcs"
	_ "github.com/TakashiSato01/licope-lab/internal/storage/local"
	_ "github.com/TakashiSato01/licope-lab/internal/storage/s3"
)

// BackgroundServices holds references to background jobs and resources that must
// be stopped during graceful shutdown. The caller (cmd/server) is responsible for
// calling Shutdown() when the process receives a termination signal.
type BackgroundServices struct {
	appNotifier      *jobs.ApplicationNotifier
	retentionSweeper *jobs.ViewRetentionSweeper
	rateLimiters     []*middleware.RateLimiter
	auditShipper     audit.Shipper
	redisClient      *redis.Client
}

// Shutdown stops all background goroutines. It should be called after the HTTP
// server has been shut down so that in-flight requests are drained first.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	if bg.appNotifier != nil {
		bg.appNotifier.Stop()
	}
	if bg.retentionSweeper != nil {
		bg.retentionSweeper.Stop()
	}
	for _, rl := range bg.rateLimiters {
		rl.Stop()
	}
	if bg.auditShipper != nil {
		if err := bg.auditShipper.Close(); err != nil {
			slog.Error("failed to close audit shipper", "error", err)
		}
	}
	if bg.redisClient != nil {
		if err := bg.redisClient.Close(); err != nil {
			slog.Error("failed to close redis client", "error", err)
		}
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, db *sql.DB) (*gin.Engine, *BackgroundServices) {
	router := gin.New()

	// Initialize storage backend
	storageBackend, err := storage.NewStorage(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage backend: %v", err)
	}
	log.Printf("Initialized storage backend: %s", cfg.Storage.DefaultBackend)

	// Initialize repositories
	memberRepo := repositories.NewMemberRepository(db)
	orgRepo := repositories.NewOrganizationRepository(db)
	facilityRepo := repositories.NewFacilityRepository(db)
	jobRepo := repositories.NewJobRepository(db)
	newsRepo := repositories.NewNewsRepository(db)
	appRepo := repositories.NewApplicationRepository(db)
	auditRepo := repositories.NewAuditRepository(db)

	// Wrap *sql.DB with sqlx for the view and licolog repositories
	sqlxDB := sqlx.NewDb(db, "postgres")
	viewRepo := repositories.NewJobViewRepository(sqlxDB)
	licologRepo := repositories.NewLicologRepository(sqlxDB)

	// Domain services
	publisher := publish.NewPublisher(jobRepo, storageBackend)
	moderationSvc := moderation.NewService(licologRepo)
	applySvc := apply.NewService(appRepo)

	// Start the application notifier outbox loop
	appNotifier := jobs.NewApplicationNotifier(appRepo, jobRepo, &cfg.Notifications)
	safego.Go(func() { appNotifier.Start(context.Background()) })
	log.Println("Application notifier started")

	// Start the raw view retention sweeper
	retentionSweeper := jobs.NewViewRetentionSweeper(viewRepo, &cfg.Tracking)
	safego.Go(func() { retentionSweeper.Start(context.Background()) })
	log.Println("View retention sweeper started")

	// Optional file shipper for audit entries alongside the audit_logs table
	var auditShipper audit.Shipper
	auditMW := middleware.AuditMiddleware(auditRepo)
	if cfg.Audit.FilePath != "" {
		fileShipper, shipErr := audit.NewFileShipper(&audit.FileConfig{
			Path:       cfg.Audit.FilePath,
			MaxSizeMB:  cfg.Audit.FileMaxSizeMB,
			MaxBackups: cfg.Audit.FileMaxBackups,
		})
		if shipErr != nil {
			log.Fatalf("Failed to open audit log file: %v", shipErr)
		}
		auditShipper = fileShipper
		auditMW = middleware.AuditMiddlewareWithShipper(auditRepo, fileShipper, &cfg.Audit)
	}

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(LoggerMiddleware(cfg))
	router.Use(CORSMiddleware(cfg))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// Readiness check endpoint (includes storage backend probe)
	router.GET("/ready", readinessHandler(db, storageBackend))

	// API version
	router.GET("/version", versionHandler())

	// Initialize handlers
	authHandlers := admin.NewAuthHandlers(cfg, memberRepo, orgRepo)
	orgHandlers := admin.NewOrganizationHandlers(orgRepo)
	memberHandlers := admin.NewMemberHandlers(cfg, memberRepo, storageBackend)
	facilityHandlers := admin.NewFacilityHandlers(facilityRepo)
	jobHandlers := admin.NewJobHandlers(jobRepo, publisher)
	applicationHandlers := admin.NewApplicationHandlers(appRepo)
	newsHandlers := admin.NewNewsHandlers(newsRepo)
	statsHandlers := admin.NewStatsHandlers(jobRepo, viewRepo, licologRepo, appRepo)
	licologHandlers := licolog.NewHandlers(licologRepo, moderationSvc)
	publicHandlers := public.NewHandlers(jobRepo, viewRepo, newsRepo, storageBackend, applySvc)

	// Initialize rate limiters
	authRateLimiter := middleware.NewRateLimiter(middleware.AuthRateLimitConfig())
	generalRateLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimitConfig())
	publicRateLimiter := middleware.NewRateLimiter(middleware.PublicRateLimitConfig())

	// When Redis is configured, the public surface switches to the shared
	// Redis limiter so all instances enforce one limit per client IP.
	var redisClient *redis.Client
	publicRateLimit := middleware.RateLimitMiddleware(publicRateLimiter)
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rpm := cfg.Security.RateLimiting.RequestsPerMinute
		burst := cfg.Security.RateLimiting.Burst
		if rpm <= 0 {
			rpm = 120
		}
		if burst <= 0 {
			burst = 30
		}
		publicRateLimit = middleware.NewRedisRateLimiter(redisClient, rpm, burst).Middleware()
		log.Printf("Public rate limiting backed by Redis at %s", cfg.Redis.Addr)
	}

	// Published job pages. Optional auth only attributes the view to a
	// signed-in member previewing their own page; anonymous is the normal case.
	publicPages := router.Group("/p")
	publicPages.Use(middleware.OptionalAuthMiddleware(cfg, memberRepo))
	publicPages.Use(publicRateLimit)
	{
		publicPages.GET("/:org_id/jobs/:pub_id", publicHandlers.SnapshotHandler())
		publicPages.GET("/:org_id/jobs/:pub_id/thumbnail", publicHandlers.ThumbnailHandler())
	}

	// File serving endpoint for local storage with ServeDirectly enabled
	router.GET("/v1/files/*filepath", public.ServeFileHandler(storageBackend))

	apiV1 := router.Group("/api/v1")
	{
		// Login (no auth required, but strictly rate limited)
		authGroup := apiV1.Group("/auth")
		authGroup.Use(middleware.RateLimitMiddleware(authRateLimiter))
		{
			authGroup.POST("/login", authHandlers.LoginHandler())
		}

		// Public API for applicants and the page beacon
		publicAPI := apiV1.Group("")
		publicAPI.Use(middleware.OptionalAuthMiddleware(cfg, memberRepo))
		publicAPI.Use(publicRateLimit)
		{
			publicAPI.POST("/public/:org_id/applications/validate", publicHandlers.ValidateApplicationHandler())
			publicAPI.POST("/public/:org_id/applications", publicHandlers.SubmitApplicationHandler())
			publicAPI.POST("/track/view", publicHandlers.TrackViewHandler())
			publicAPI.GET("/public/:org_id/news", publicHandlers.PublicNewsHandler())
		}

		// Authenticated staff endpoints
		authenticatedGroup := apiV1.Group("")
		authenticatedGroup.Use(middleware.AuthMiddleware(cfg, memberRepo))
		authenticatedGroup.Use(middleware.RateLimitMiddleware(generalRateLimiter))
		authenticatedGroup.Use(auditMW) // Audit all authenticated actions
		{
			// Session endpoints
			authenticatedGroup.POST("/auth/refresh", authHandlers.RefreshHandler())
			authenticatedGroup.GET("/auth/me", authHandlers.MeHandler())

			// Organization profile
			authenticatedGroup.GET("/org", orgHandlers.GetHandler())
			authenticatedGroup.PUT("/org", orgHandlers.UpdateHandler())

			// Members. Invites and role changes require owner/admin; profile
			// updates enforce self-or-manager inside the handler.
			membersGroup := authenticatedGroup.Group("/members")
			{
				membersGroup.GET("", memberHandlers.ListHandler())
				membersGroup.GET("/:id", memberHandlers.GetHandler())
				membersGroup.PUT("/:id", memberHandlers.UpdateProfileHandler())
				membersGroup.POST("/:id/avatar", memberHandlers.UploadAvatarHandler())

				membersGroup.POST("", middleware.RequireMemberManager(), memberHandlers.InviteHandler())
				membersGroup.PUT("/:id/role", middleware.RequireMemberManager(), memberHandlers.UpdateRoleHandler())
			}

			// Facilities. Writes require owner/admin.
			facilitiesGroup := authenticatedGroup.Group("/facilities")
			{
				facilitiesGroup.GET("", facilityHandlers.ListHandler())
				facilitiesGroup.GET("/:id", facilityHandlers.GetHandler())

				facilitiesGroup.POST("", middleware.RequireMemberManager(), facilityHandlers.CreateHandler())
				facilitiesGroup.PUT("/:id", middleware.RequireMemberManager(), facilityHandlers.UpdateHandler())
				facilitiesGroup.DELETE("/:id", middleware.RequireMemberManager(), facilityHandlers.DeleteHandler())
			}

			// Job drafts and publishing
			jobsGroup := authenticatedGroup.Group("/jobs")
			{
				jobsGroup.GET("", jobHandlers.ListDraftsHandler())
				jobsGroup.GET("/:id", jobHandlers.GetDraftHandler())
				jobsGroup.POST("", middleware.RequirePublisher(), jobHandlers.CreateDraftHandler())
				jobsGroup.PUT("/:id", middleware.RequirePublisher(), jobHandlers.UpdateDraftHandler())
				jobsGroup.DELETE("/:id", middleware.RequirePublisher(), jobHandlers.DeleteDraftHandler())
				jobsGroup.POST("/:id/publish", middleware.RequirePublisher(), jobHandlers.PublishHandler())
			}
			authenticatedGroup.GET("/public-jobs", jobHandlers.ListPublicJobsHandler())
			authenticatedGroup.PUT("/public-jobs/:pub_id", middleware.RequirePublisher(), jobHandlers.UpdatePublicJobHandler())

			// Licolog micro-posts and moderation
			licologGroup := authenticatedGroup.Group("/licolog")
			{
				licologGroup.POST("/posts", middleware.RequirePoster(), licologHandlers.CreatePostHandler())
				licologGroup.GET("/posts", licologHandlers.ListPostsHandler())
				licologGroup.GET("/events", licologHandlers.ListEventsHandler())

				licologGroup.GET("/pending", middleware.RequireModerator(), licologHandlers.ListPendingHandler())
				licologGroup.POST("/approve", middleware.RequireModerator(), licologHandlers.ApproveHandler())
				licologGroup.POST("/posts/:id/unapprove", middleware.RequireModerator(), licologHandlers.UnapproveHandler())
			}

			// Application inbox
			applicationsGroup := authenticatedGroup.Group("/applications")
			{
				applicationsGroup.GET("", applicationHandlers.ListHandler())
				applicationsGroup.PUT("/:id/status", applicationHandlers.UpdateStatusHandler())
			}

			// News posts. Writes require owner/admin/editor.
			newsGroup := authenticatedGroup.Group("/news")
			{
				newsGroup.GET("", newsHandlers.ListHandler())
				newsGroup.GET("/:id", newsHandlers.GetHandler())
				newsGroup.POST("", middleware.RequirePublisher(), newsHandlers.CreateHandler())
				newsGroup.PUT("/:id", middleware.RequirePublisher(), newsHandlers.UpdateHandler())
				newsGroup.DELETE("/:id", middleware.RequirePublisher(), newsHandlers.DeleteHandler())
			}

			// Dashboard stats
			authenticatedGroup.GET("/stats/dashboard", statsHandlers.DashboardHandler())
		}
	}

	bg := &BackgroundServices{
		appNotifier:      appNotifier,
		retentionSweeper: retentionSweeper,
		rateLimiters:     []*middleware.RateLimiter{authRateLimiter, generalRateLimiter, publicRateLimiter},
		auditShipper:     auditShipper,
		redisClient:      redisClient,
	}

	return router, bg
}

// @Summary      Health check
// @Description  Returns the health status of the service, including database connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status: healthy, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "status: unhealthy, error: database connection failed"
// @Router       /health [get]
// healthCheckHandler returns the health status of the service
func healthCheckHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check database connection
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      Readiness check
// @Description  Returns whether the service is ready to accept traffic. Checks database and storage connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "ready: true, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "ready: false, error: database not ready"
// @Router       /ready [get]
// readinessHandler returns the readiness status of the service.
// Unlike the liveness probe (/health), this also checks the storage backend so
// that a Kubernetes readiness gate fails when uploads/downloads would error.
func readinessHandler(db *sql.DB, storageBackend storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}

		// Check database connection
		if err := db.Ping(); err != nil {
			checks["database"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "database not ready",
			})
			return
		}
		checks["database"] = "healthy"

		// Check storage backend with a known-absent sentinel path. Exists()
		// exercises authentication and network connectivity without creating
		// any state.
		if _, err := storageBackend.Exists(c.Request.Context(), ".readiness-probe"); err != nil {
			checks["storage"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "storage backend not ready",
			})
			return
		}
		checks["storage"] = "healthy"

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      API version
// @Description  Returns the current API version.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "version, api_version"
// @Router       /version [get]
// versionHandler returns the API version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     "0.1.0",
			"api_version": "v1",
		})
	}
}

// LoggerMiddleware provides structured logging
func LoggerMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		// Log the request
		if cfg.Logging.Format == "json" {
			logJSON(c, latency, path, query)
		} else {
			logText(c, latency, path, query)
		}
	}
}

// logJSON logs a request as a JSON-structured slog record.
func logJSON(c *gin.Context, latency time.Duration, path, query string) {
	requestID, _ := c.Get(middleware.RequestIDKey)
	slog.LogAttrs(
		c.Request.Context(),
		slog.LevelInfo,
		"http request",
		slog.String("method", c.Request.Method),
		slog.String("path", path),
		slog.String("query", query),
		slog.Int("status", c.Writer.Status()),
		slog.Int("size", c.Writer.Size()),
		slog.Duration("latency", latency),
		slog.String("ip", c.ClientIP()),
		slog.String("request_id", requestIDString(requestID)),
		slog.String("user_agent", c.Request.UserAgent()),
	)
}

func requestIDString(v interface{}) string {
	s, _ := v.(string)
	return s
}

// logText logs a request as a human-readable slog text record.
func logText(c *gin.Context, latency time.Duration, path, query string) {
	// reuse the same structured output; slog will emit text format when the global
	// handler is a TextHandler (configured in telemetry.SetupLogger).
	logJSON(c, latency, path, query)
}

// CORSMiddleware handles CORS
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// Check if origin is allowed
		allowed := false
		for _, allowedOrigin := range cfg.Security.CORS.AllowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			if origin == "" {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
			}
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
			c.Header("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
