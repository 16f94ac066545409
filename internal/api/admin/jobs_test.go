package admin

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TakashiSato01/licope-lab/internal/db/models"
	"github.com/TakashiSato01/licope-lab/internal/db/repositories"
	"github.com/TakashiSato01/licope-lab/internal/publish"
)

func newJobRouter(t *testing.T, actor *models.Member, store *mockStorage) (sqlmock.Sqlmock, *gin.Engine) {
	t.Helper()
	db, mock := newMockDB(t)

	if store == nil {
		store = newMockStorage()
	}
	jobRepo := repositories.NewJobRepository(db)
	h := NewJobHandlers(jobRepo, publish.NewPublisher(jobRepo, store))

	r := gin.New()
	r.Use(asMember(actor))
	r.GET("/jobs", h.ListDraftsHandler())
	r.POST("/jobs", h.CreateDraftHandler())
	r.GET("/jobs/:id", h.GetDraftHandler())
	r.PUT("/jobs/:id", h.UpdateDraftHandler())
	r.DELETE("/jobs/:id", h.DeleteDraftHandler())
	r.POST("/jobs/:id/publish", h.PublishHandler())
	r.GET("/public-jobs", h.ListPublicJobsHandler())
	r.PUT("/public-jobs/:pub_id", h.UpdatePublicJobHandler())
	return mock, r
}

// ---- draft CRUD -------------------------------------------------------------

func TestCreateDraft_Success(t *testing.T) {
	mock, r := newJobRouter(t, sampleMember(models.RoleEditor), nil)

	mock.ExpectQuery(`INSERT INTO job_drafts`).
		WithArgs(sampleOrgID, "Care Worker", "250,000 JPY", "", "", "", "", "", "", "", "", sampleMemberID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(sampleDraftID, time.Now(), time.Now()))

	w := doJSON(t, r, http.MethodPost, "/jobs", gin.H{
		"title": "Care Worker",
		"wage":  "250,000 JPY",
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	draft, ok := decodeJSON(t, w)["draft"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, sampleDraftID, draft["id"])
	assert.Equal(t, sampleMemberID, draft["created_by"])
}

func TestCreateDraft_TitleRequired(t *testing.T) {
	_, r := newJobRouter(t, sampleMember(models.RoleEditor), nil)

	w := doJSON(t, r, http.MethodPost, "/jobs", gin.H{"title": "   "})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "title is required", decodeJSON(t, w)["error"])
}

func TestGetDraft_CrossOrgLooksLikeNotFound(t *testing.T) {
	mock, r := newJobRouter(t, sampleMember(models.RoleEditor), nil)

	mock.ExpectQuery(`SELECT.*FROM job_drafts WHERE id`).
		WithArgs(sampleDraftID).
		WillReturnRows(sampleDraftRow(otherOrgID))

	w := doJSON(t, r, http.MethodGet, "/jobs/"+sampleDraftID, nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Draft not found", decodeJSON(t, w)["error"])
}

func TestUpdateDraft_Success(t *testing.T) {
	mock, r := newJobRouter(t, sampleMember(models.RoleEditor), nil)

	mock.ExpectQuery(`SELECT.*FROM job_drafts WHERE id`).
		WithArgs(sampleDraftID).
		WillReturnRows(sampleDraftRow(sampleOrgID))

	mock.ExpectExec(`UPDATE job_drafts`).
		WithArgs(sampleDraftID, "Senior Care Worker", "", "", "", "", "", "", "", "", "").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := doJSON(t, r, http.MethodPut, "/jobs/"+sampleDraftID, gin.H{
		"title": "Senior Care Worker",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	draft, ok := decodeJSON(t, w)["draft"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Senior Care Worker", draft["title"])
}

func TestDeleteDraft_Success(t *testing.T) {
	mock, r := newJobRouter(t, sampleMember(models.RoleEditor), nil)

	mock.ExpectQuery(`SELECT.*FROM job_drafts WHERE id`).
		WithArgs(sampleDraftID).
		WillReturnRows(sampleDraftRow(sampleOrgID))

	mock.ExpectExec(`DELETE FROM job_drafts`).
		WithArgs(sampleDraftID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := doJSON(t, r, http.MethodDelete, "/jobs/"+sampleDraftID, nil)

	assert.Equal(t, http.StatusOK, w.Code)
}

// ---- publish ----------------------------------------------------------------

func TestPublish_Success(t *testing.T) {
	store := newMockStorage()
	mock, r := newJobRouter(t, sampleMember(models.RoleEditor), store)

	mock.ExpectQuery(`SELECT.*FROM job_drafts WHERE id`).
		WithArgs(sampleDraftID).
		WillReturnRows(sampleDraftRow(sampleOrgID))

	mock.ExpectQuery(`INSERT INTO public_jobs`).
		WithArgs(sqlmock.AnyArg(), sampleOrgID, "Care Worker", sqlmock.AnyArg(), nil, nil, sampleMemberID).
		WillReturnRows(sqlmock.NewRows([]string{"published_at", "updated_at"}).
			AddRow(time.Now(), time.Now()))

	w := doJSON(t, r, http.MethodPost, "/jobs/"+sampleDraftID+"/publish", nil)

	assert.Equal(t, http.StatusCreated, w.Code)
	resp := decodeJSON(t, w)
	publicPath, _ := resp["public_path"].(string)
	assert.Contains(t, publicPath, "/p/"+sampleOrgID+"/jobs/")

	// The snapshot blob landed in storage and carries the draft content
	require.Len(t, store.uploads, 1)
	for path, data := range store.uploads {
		assert.Contains(t, path, "public/orgs/"+sampleOrgID+"/jobs/")

		var snapshot map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &snapshot))
		assert.Equal(t, "Care Worker", snapshot["title"])
	}
}

func TestPublish_ViewerForbidden(t *testing.T) {
	mock, r := newJobRouter(t, sampleMember(models.RoleViewer), nil)

	mock.ExpectQuery(`SELECT.*FROM job_drafts WHERE id`).
		WithArgs(sampleDraftID).
		WillReturnRows(sampleDraftRow(sampleOrgID))

	w := doJSON(t, r, http.MethodPost, "/jobs/"+sampleDraftID+"/publish", nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPublish_StaffForbidden(t *testing.T) {
	mock, r := newJobRouter(t, sampleMember(models.RoleStaff), nil)

	mock.ExpectQuery(`SELECT.*FROM job_drafts WHERE id`).
		WithArgs(sampleDraftID).
		WillReturnRows(sampleDraftRow(sampleOrgID))

	w := doJSON(t, r, http.MethodPost, "/jobs/"+sampleDraftID+"/publish", nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPublish_DraftNotFound(t *testing.T) {
	mock, r := newJobRouter(t, sampleMember(models.RoleEditor), nil)

	mock.ExpectQuery(`SELECT.*FROM job_drafts WHERE id`).
		WithArgs(sampleDraftID).
		WillReturnRows(sqlmock.NewRows(draftCols))

	w := doJSON(t, r, http.MethodPost, "/jobs/"+sampleDraftID+"/publish", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// ---- published jobs ---------------------------------------------------------

func samplePublicJobRow() *sqlmock.Rows {
	storagePath := publish.SnapshotPath(sampleOrgID, samplePubID)
	publishedBy := sampleMemberID
	return sqlmock.NewRows(publicJobCols).AddRow(
		samplePubID, sampleOrgID, "Care Worker", storagePath, nil, nil,
		&publishedBy, time.Now(), nil, time.Now(),
	)
}

func TestListPublicJobs_Success(t *testing.T) {
	mock, r := newJobRouter(t, sampleMember(models.RoleViewer), nil)

	mock.ExpectQuery(`SELECT.*FROM public_jobs WHERE org_id`).
		WithArgs(sampleOrgID).
		WillReturnRows(samplePublicJobRow())

	w := doJSON(t, r, http.MethodGet, "/public-jobs", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	jobsList, ok := decodeJSON(t, w)["jobs"].([]interface{})
	require.True(t, ok)
	require.Len(t, jobsList, 1)

	job := jobsList[0].(map[string]interface{})
	assert.Equal(t, publish.PublicPath(sampleOrgID, samplePubID), job["public_path"])
}

func TestUpdatePublicJob_RewritesSnapshotInPlace(t *testing.T) {
	store := newMockStorage()
	mock, r := newJobRouter(t, sampleMember(models.RoleAdmin), store)

	mock.ExpectQuery(`SELECT.*FROM public_jobs WHERE org_id.*id`).
		WithArgs(sampleOrgID, samplePubID).
		WillReturnRows(samplePublicJobRow())

	mock.ExpectExec(`UPDATE public_jobs`).
		WithArgs(sampleOrgID, samplePubID, "Night Shift Care Worker",
			publish.SnapshotPath(sampleOrgID, samplePubID), nil, nil, sampleMemberID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := doJSON(t, r, http.MethodPut, "/public-jobs/"+samplePubID, gin.H{
		"title": "Night Shift Care Worker",
	})

	assert.Equal(t, http.StatusOK, w.Code)

	// Same storage path, fresh content
	data, ok := store.uploads[publish.SnapshotPath(sampleOrgID, samplePubID)]
	require.True(t, ok)

	var snapshot map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &snapshot))
	assert.Equal(t, "Night Shift Care Worker", snapshot["title"])
}

func TestUpdatePublicJob_NotFound(t *testing.T) {
	mock, r := newJobRouter(t, sampleMember(models.RoleAdmin), nil)

	mock.ExpectQuery(`SELECT.*FROM public_jobs WHERE org_id.*id`).
		WithArgs(sampleOrgID, samplePubID).
		WillReturnRows(sqlmock.NewRows(publicJobCols))

	w := doJSON(t, r, http.MethodPut, "/public-jobs/"+samplePubID, gin.H{
		"title": "Anything",
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// ---- optionalThumbnail -------------------------------------------------------

func TestOptionalThumbnail_ReturnsFileForClosing(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("thumbnail", "thumb.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/jobs/x/publish", &buf)
	c.Request.Header.Set("Content-Type", mw.FormDataContentType())

	thumb, file, err := optionalThumbnail(c)
	require.NoError(t, err)
	require.NotNil(t, thumb)
	require.NotNil(t, file)

	data, err := io.ReadAll(thumb.Reader)
	require.NoError(t, err)
	assert.Equal(t, "png bytes", string(data))
	assert.NoError(t, file.Close())
}

func TestOptionalThumbnail_NonMultipartHasNone(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/jobs/x/publish", strings.NewReader(`{}`))
	c.Request.Header.Set("Content-Type", "application/json")

	thumb, file, err := optionalThumbnail(c)
	require.NoError(t, err)
	assert.Nil(t, thumb)
	assert.Nil(t, file)
}
