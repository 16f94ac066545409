package admin

import (
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TakashiSato01/licope-lab/internal/db/models"
	"github.com/TakashiSato01/licope-lab/internal/db/repositories"
)

func newStatsRouter(t *testing.T) (sqlmock.Sqlmock, *gin.Engine) {
	t.Helper()
	db, mock := newMockDB(t)
	sqlxDB := sqlx.NewDb(db, "postgres")

	h := NewStatsHandlers(
		repositories.NewJobRepository(db),
		repositories.NewJobViewRepository(sqlxDB),
		repositories.NewLicologRepository(sqlxDB),
		repositories.NewApplicationRepository(db),
	)

	r := gin.New()
	r.Use(asMember(sampleMember(models.RoleStaff)))
	r.GET("/stats/dashboard", h.DashboardHandler())
	return mock, r
}

func TestDashboard_AggregatesCounters(t *testing.T) {
	mock, r := newStatsRouter(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM job_drafts`).
		WithArgs(sampleOrgID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM public_jobs`).
		WithArgs(sampleOrgID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM licolog_posts`).
		WithArgs(sampleOrgID, "pending").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM applications`).
		WithArgs(sampleOrgID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(count\), 0\) FROM job_view_daily`).
		WithArgs(sampleOrgID).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(120))

	mock.ExpectQuery(`SELECT org_id, day_key, count.*FROM job_view_daily`).
		WithArgs(sampleOrgID, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"org_id", "day_key", "count"}).
			AddRow(sampleOrgID, "2026-08-30", 80).
			AddRow(sampleOrgID, "2026-08-29", 40))

	w := doJSON(t, r, http.MethodGet, "/stats/dashboard", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeJSON(t, w)
	assert.EqualValues(t, 3, resp["drafts"])
	assert.EqualValues(t, 2, resp["published_jobs"])
	assert.EqualValues(t, 5, resp["pending_posts"])
	assert.EqualValues(t, 7, resp["applications"])
	assert.EqualValues(t, 120, resp["total_views"])

	daily, ok := resp["daily_views"].([]interface{})
	require.True(t, ok)
	require.Len(t, daily, 2)

	first := daily[0].(map[string]interface{})
	assert.Equal(t, "2026-08-30", first["day"])
	assert.EqualValues(t, 80, first["count"])
}

func TestDashboard_EmptyOrg(t *testing.T) {
	mock, r := newStatsRouter(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM job_drafts`).
		WithArgs(sampleOrgID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM public_jobs`).
		WithArgs(sampleOrgID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM licolog_posts`).
		WithArgs(sampleOrgID, "pending").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM applications`).
		WithArgs(sampleOrgID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(count\), 0\) FROM job_view_daily`).
		WithArgs(sampleOrgID).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(0))
	mock.ExpectQuery(`SELECT org_id, day_key, count.*FROM job_view_daily`).
		WithArgs(sampleOrgID, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"org_id", "day_key", "count"}))

	w := doJSON(t, r, http.MethodGet, "/stats/dashboard", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeJSON(t, w)
	assert.EqualValues(t, 0, resp["total_views"])

	// An org with no traffic still gets a well-formed empty series
	daily, ok := resp["daily_views"].([]interface{})
	require.True(t, ok)
	assert.Len(t, daily, 0)
}

func TestDashboard_NotAuthenticated(t *testing.T) {
	db, _ := newMockDB(t)
	sqlxDB := sqlx.NewDb(db, "postgres")
	h := NewStatsHandlers(
		repositories.NewJobRepository(db),
		repositories.NewJobViewRepository(sqlxDB),
		repositories.NewLicologRepository(sqlxDB),
		repositories.NewApplicationRepository(db),
	)

	r := gin.New()
	r.GET("/stats/dashboard", h.DashboardHandler())

	w := doJSON(t, r, http.MethodGet, "/stats/dashboard", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
