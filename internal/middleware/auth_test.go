package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"

	"github.com/TakashiSato01/licope-lab/internal/auth"
	"github.com/TakashiSato01/licope-lab/internal/db/repositories"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var memberCols = []string{
	"id", "org_id", "email", "password_hash", "display_name", "role",
	"facility_id", "photo_url", "avatar_path", "created_at", "updated_at",
}

func sampleMemberRow(mock sqlmock.Sqlmock, id, orgID, role string) *sqlmock.Rows {
	return sqlmock.NewRows(memberCols).AddRow(
		id, orgID, "test@example.com", "$2a$04$hash", "Test Member", role,
		nil, nil, nil, time.Now(), time.Now(),
	)
}

func newTestMemberRepo(t *testing.T) (*repositories.MemberRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return repositories.NewMemberRepository(db), mock
}

func generateTestJWT(t *testing.T, memberID, orgID, role string) string {
	t.Helper()
	token, err := auth.GenerateJWT(memberID, orgID, "test@example.com", role, time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	return token
}

// newAuthRouter builds a router with AuthMiddleware using a nil repo.
// A nil repo is safe for early-exit paths that abort before any repo call.
func newAuthRouter() *gin.Engine {
	r := gin.New()
	r.Use(AuthMiddleware(nil, nil))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

// newOptionalAuthRouter builds a router with OptionalAuthMiddleware using a nil repo.
func newOptionalAuthRouter() *gin.Engine {
	r := gin.New()
	r.Use(OptionalAuthMiddleware(nil, nil))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func doAuthRequest(r *gin.Engine, authHeader string) int {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	r.ServeHTTP(w, req)
	return w.Code
}

// ---------------------------------------------------------------------------
// AuthMiddleware — early-exit paths (no repository calls needed)
// ---------------------------------------------------------------------------

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	if code := doAuthRequest(newAuthRouter(), ""); code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", code)
	}
}

func TestAuthMiddleware_NonBearerPrefix(t *testing.T) {
	if code := doAuthRequest(newAuthRouter(), "Basic dXNlcjpwYXNz"); code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", code)
	}
}

func TestAuthMiddleware_EmptyToken(t *testing.T) {
	// "Bearer " with only whitespace → trimmed to empty → 401
	if code := doAuthRequest(newAuthRouter(), "Bearer   "); code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", code)
	}
}

func TestAuthMiddleware_GarbageToken(t *testing.T) {
	if code := doAuthRequest(newAuthRouter(), "Bearer not.a.jwt"); code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", code)
	}
}

// ---------------------------------------------------------------------------
// AuthMiddleware — session token paths with mocked member repo
// ---------------------------------------------------------------------------

func newAuthRouterWithRepo(t *testing.T) (sqlmock.Sqlmock, *gin.Engine) {
	t.Helper()
	repo, mock := newTestMemberRepo(t)

	r := gin.New()
	r.Use(AuthMiddleware(nil, repo))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	return mock, r
}

func TestAuthMiddleware_ValidMember(t *testing.T) {
	mock, r := newAuthRouterWithRepo(t)

	token := generateTestJWT(t, "member-1", "org-1", "admin")

	mock.ExpectQuery("SELECT.*FROM members WHERE id").
		WillReturnRows(sampleMemberRow(mock, "member-1", "org-1", "admin"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200: valid member session", w.Code)
	}
}

func TestAuthMiddleware_MemberNotFound(t *testing.T) {
	mock, r := newAuthRouterWithRepo(t)

	token := generateTestJWT(t, "nonexistent-member", "org-1", "staff")

	// GetByID returns nil (no rows = member not found)
	mock.ExpectQuery("SELECT.*FROM members WHERE id").
		WillReturnRows(sqlmock.NewRows(memberCols))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401: member not found", w.Code)
	}
}

func TestAuthMiddleware_DBError(t *testing.T) {
	mock, r := newAuthRouterWithRepo(t)

	token := generateTestJWT(t, "member-1", "org-1", "staff")

	mock.ExpectQuery("SELECT.*FROM members WHERE id").
		WillReturnError(errors.New("db error"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500: DB error loading member", w.Code)
	}
}

func TestAuthMiddleware_OrgMismatch(t *testing.T) {
	mock, r := newAuthRouterWithRepo(t)

	// Token carries org-1 but the member row now belongs to org-2
	token := generateTestJWT(t, "member-1", "org-1", "admin")

	mock.ExpectQuery("SELECT.*FROM members WHERE id").
		WillReturnRows(sampleMemberRow(mock, "member-1", "org-2", "admin"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401: token org no longer matches member org", w.Code)
	}
}

func TestAuthMiddleware_SetsContextFromDBNotToken(t *testing.T) {
	repo, mock := newTestMemberRepo(t)

	// Token claims "staff" but the member row says "admin": the fresher DB role wins.
	token := generateTestJWT(t, "member-1", "org-1", "staff")

	mock.ExpectQuery("SELECT.*FROM members WHERE id").
		WillReturnRows(sampleMemberRow(mock, "member-1", "org-1", "admin"))

	var seenRole string
	r := gin.New()
	r.Use(AuthMiddleware(nil, repo))
	r.GET("/", func(c *gin.Context) {
		role, _ := memberRole(c)
		seenRole = string(role)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if seenRole != "admin" {
		t.Errorf("role in context = %q, want %q (loaded from DB, not token claim)", seenRole, "admin")
	}
}

// ---------------------------------------------------------------------------
// OptionalAuthMiddleware — must always return 200 regardless of auth status
// ---------------------------------------------------------------------------

func TestOptionalAuthMiddleware_MissingHeader(t *testing.T) {
	if code := doAuthRequest(newOptionalAuthRouter(), ""); code != http.StatusOK {
		t.Errorf("status = %d, want 200 (optional auth passes through)", code)
	}
}

func TestOptionalAuthMiddleware_NonBearerPrefix(t *testing.T) {
	if code := doAuthRequest(newOptionalAuthRouter(), "Basic dXNlcjpwYXNz"); code != http.StatusOK {
		t.Errorf("status = %d, want 200 (optional auth passes through)", code)
	}
}

func TestOptionalAuthMiddleware_EmptyToken(t *testing.T) {
	if code := doAuthRequest(newOptionalAuthRouter(), "Bearer   "); code != http.StatusOK {
		t.Errorf("status = %d, want 200 (optional auth passes through)", code)
	}
}

func TestOptionalAuthMiddleware_GarbageToken(t *testing.T) {
	if code := doAuthRequest(newOptionalAuthRouter(), "Bearer not.a.jwt"); code != http.StatusOK {
		t.Errorf("status = %d, want 200 (optional auth passes through)", code)
	}
}

func TestOptionalAuthMiddleware_ValidToken_SetsMember(t *testing.T) {
	repo, mock := newTestMemberRepo(t)

	r := gin.New()
	r.Use(OptionalAuthMiddleware(nil, repo))
	var authed bool
	r.GET("/", func(c *gin.Context) {
		_, authed = c.Get("member_id")
		c.Status(http.StatusOK)
	})

	token := generateTestJWT(t, "member-1", "org-1", "viewer")

	mock.ExpectQuery("SELECT.*FROM members WHERE id").
		WillReturnRows(sampleMemberRow(mock, "member-1", "org-1", "viewer"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !authed {
		t.Error("member_id not set in context for valid optional auth")
	}
}

func TestOptionalAuthMiddleware_MemberNotFound_PassesThrough(t *testing.T) {
	repo, mock := newTestMemberRepo(t)

	r := gin.New()
	r.Use(OptionalAuthMiddleware(nil, repo))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	token := generateTestJWT(t, "nonexistent-member", "org-1", "staff")

	// Member not found — optional middleware continues without aborting
	mock.ExpectQuery("SELECT.*FROM members WHERE id").
		WillReturnRows(sqlmock.NewRows(memberCols))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 (member not found should not abort)", w.Code)
	}
}
