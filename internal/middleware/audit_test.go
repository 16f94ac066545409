package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/TakashiSato01/licope-lab/internal/audit"
)

// captureShipper collects audit log entries via a buffered channel.
type captureShipper struct {
	ch chan *audit.LogEntry
}

func newCaptureShipper(buf int) *captureShipper {
	return &captureShipper{ch: make(chan *audit.LogEntry, buf)}
}

func (s *captureShipper) Ship(_ context.Context, e *audit.LogEntry) error {
	s.ch <- e
	return nil
}

func (s *captureShipper) Close() error { return nil }

// waitForEntry blocks until an entry arrives or the timeout fires.
func (s *captureShipper) waitForEntry(t *testing.T, timeout time.Duration) *audit.LogEntry {
	t.Helper()
	select {
	case e := <-s.ch:
		return e
	case <-time.After(timeout):
		t.Fatal("timed out waiting for audit log entry")
		return nil
	}
}

// ---------------------------------------------------------------------------
// AuditMiddlewareWithShipper — early-exit / skip paths
// ---------------------------------------------------------------------------

func TestAuditMiddleware_OptionsSkipped(t *testing.T) {
	cs := newCaptureShipper(1)
	r := gin.New()
	r.Use(AuditMiddlewareWithShipper(nil, cs, nil))
	r.OPTIONS("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodOptions, "/", nil)
	r.ServeHTTP(w, req)

	select {
	case <-cs.ch:
		t.Error("shipper called for OPTIONS request, want no shipping")
	case <-time.After(100 * time.Millisecond):
		// good — nothing shipped
	}
}

func TestAuditMiddleware_GetSkippedWithNilConfig(t *testing.T) {
	cs := newCaptureShipper(1)
	r := gin.New()
	r.Use(AuditMiddlewareWithShipper(nil, cs, nil))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	r.ServeHTTP(w, req)

	select {
	case <-cs.ch:
		t.Error("shipper called for GET with nil config, want no shipping")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestAuditMiddleware_FailedPostSkippedWithNilConfig(t *testing.T) {
	cs := newCaptureShipper(1)
	r := gin.New()
	r.Use(AuditMiddlewareWithShipper(nil, cs, nil))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusBadRequest) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/", nil)
	r.ServeHTTP(w, req)

	select {
	case <-cs.ch:
		t.Error("shipper called for failed POST with nil config, want no shipping")
	case <-time.After(100 * time.Millisecond):
	}
}

// ---------------------------------------------------------------------------
// AuditMiddlewareWithShipper — shipping path
// ---------------------------------------------------------------------------

func TestAuditMiddleware_SuccessfulWriteShipped(t *testing.T) {
	cs := newCaptureShipper(1)
	r := gin.New()
	r.Use(AuditMiddlewareWithShipper(nil, cs, nil))
	r.POST("/api/v1/jobs/pub-1/publish", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/jobs/pub-1/publish", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	r.ServeHTTP(w, req)

	entry := cs.waitForEntry(t, 500*time.Millisecond)
	if entry.ResourceType != "job" {
		t.Errorf("ResourceType = %q, want job", entry.ResourceType)
	}
	if entry.Action != "job.publish" {
		t.Errorf("Action = %q, want job.publish", entry.Action)
	}
}

func TestAuditMiddleware_NilShipperAndRepo_NoPanic(t *testing.T) {
	r := gin.New()
	r.Use(AuditMiddlewareWithShipper(nil, nil, nil))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/", nil)
	r.ServeHTTP(w, req)

	time.Sleep(50 * time.Millisecond) // let goroutine complete
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestAuditMiddleware_ResourceTypeDetection(t *testing.T) {
	paths := []struct {
		path    string
		wantRes string
	}{
		{"/api/v1/jobs/draft-1", "job"},
		{"/api/v1/licolog/post-1/unapprove", "licolog_post"},
		{"/api/v1/applications/app-1", "application"},
		{"/api/v1/members/member-1", "member"},
		{"/api/v1/facilities/fac-1", "facility"},
		{"/api/v1/news/news-1", "news"},
		{"/api/v1/orgs/org-1", "organization"},
		{"/other/z", ""},
	}

	for _, tt := range paths {
		t.Run(tt.path, func(t *testing.T) {
			cs := newCaptureShipper(1)
			r := gin.New()
			r.Use(AuditMiddlewareWithShipper(nil, cs, nil))
			r.POST(tt.path, func(c *gin.Context) { c.Status(http.StatusOK) })

			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodPost, tt.path, nil)
			r.ServeHTTP(w, req)

			entry := cs.waitForEntry(t, 500*time.Millisecond)
			if entry.ResourceType != tt.wantRes {
				t.Errorf("path %q: ResourceType = %q, want %q", tt.path, entry.ResourceType, tt.wantRes)
			}
		})
	}
}

func TestAuditMiddleware_ActionNames(t *testing.T) {
	actions := []struct {
		method string
		path   string
		want   string
	}{
		{http.MethodPost, "/api/v1/jobs/pub-1/publish", "job.publish"},
		{http.MethodPost, "/api/v1/licolog/approve", "licolog.approve"},
		{http.MethodPost, "/api/v1/licolog/post-1/unapprove", "licolog.unapprove"},
		{http.MethodPost, "/api/v1/members", "member.invite"},
		{http.MethodPut, "/api/v1/members/member-1/role", "member.role_change"},
		{http.MethodDelete, "/api/v1/news/news-1", "DELETE /api/v1/news/news-1"},
	}

	for _, tt := range actions {
		t.Run(tt.want, func(t *testing.T) {
			cs := newCaptureShipper(1)
			r := gin.New()
			r.Use(AuditMiddlewareWithShipper(nil, cs, nil))
			r.Handle(tt.method, tt.path, func(c *gin.Context) { c.Status(http.StatusOK) })

			w := httptest.NewRecorder()
			req, _ := http.NewRequest(tt.method, tt.path, nil)
			r.ServeHTTP(w, req)

			entry := cs.waitForEntry(t, 500*time.Millisecond)
			if entry.Action != tt.want {
				t.Errorf("%s %s: Action = %q, want %q", tt.method, tt.path, entry.Action, tt.want)
			}
		})
	}
}

func TestAuditMiddleware_ContextValuesExtracted(t *testing.T) {
	cs := newCaptureShipper(1)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("member_id", "member-42")
		c.Set("org_id", "org-99")
		c.Next()
	})
	r.Use(AuditMiddlewareWithShipper(nil, cs, nil))
	r.POST("/api/v1/facilities", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/facilities", nil)
	r.ServeHTTP(w, req)

	entry := cs.waitForEntry(t, 500*time.Millisecond)
	if entry.MemberID != "member-42" {
		t.Errorf("MemberID = %q, want member-42", entry.MemberID)
	}
	if entry.OrgID != "org-99" {
		t.Errorf("OrgID = %q, want org-99", entry.OrgID)
	}
}

func TestAuditMiddleware_BackwardCompat(t *testing.T) {
	// AuditMiddleware(nil) should not panic
	r := gin.New()
	r.Use(AuditMiddleware(nil))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/", nil)
	r.ServeHTTP(w, req)

	time.Sleep(50 * time.Millisecond)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}
