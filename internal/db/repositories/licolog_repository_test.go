package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/TakashiSato01/licope-lab/internal/db/models"
)

// ---------------------------------------------------------------------------
// Column definitions
// ---------------------------------------------------------------------------

var licologPostCols = []string{
	"id", "org_id", "body", "facility_id", "author_id", "status", "media",
	"created_at", "updated_at",
}
var licologEventCols = []string{"id", "org_id", "type", "post_id", "actor_id", "created_at"}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newLicologRepo(t *testing.T) (*LicologRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewLicologRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func samplePostRow() *sqlmock.Rows {
	return sqlmock.NewRows(licologPostCols).
		AddRow("post-1", "org-1", "Lunch went well today", "FC-100", "member-1",
			"pending", []byte(`[]`), time.Now(), time.Now())
}

// ---------------------------------------------------------------------------
// GetPost / CreatePost
// ---------------------------------------------------------------------------

func TestGetPost_Found(t *testing.T) {
	repo, mock := newLicologRepo(t)
	mock.ExpectQuery("SELECT.*FROM licolog_posts WHERE id").
		WithArgs("post-1").
		WillReturnRows(samplePostRow())

	post, err := repo.GetPost(context.Background(), "post-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if post == nil {
		t.Fatal("expected post, got nil")
	}
	if post.Status != models.PostStatusPending {
		t.Errorf("Status = %s, want pending", post.Status)
	}
}

func TestGetPost_NotFound(t *testing.T) {
	repo, mock := newLicologRepo(t)
	mock.ExpectQuery("SELECT.*FROM licolog_posts WHERE id").
		WillReturnRows(sqlmock.NewRows(licologPostCols))

	post, err := repo.GetPost(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if post != nil {
		t.Error("expected nil, got non-nil")
	}
}

func TestCreatePost_DefaultsToPending(t *testing.T) {
	repo, mock := newLicologRepo(t)
	mock.ExpectQuery("INSERT INTO licolog_posts").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow("post-1", time.Now(), time.Now()))

	post := &models.LicologPost{OrgID: "org-1", Body: "hello"}
	if err := repo.CreatePost(context.Background(), post); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if post.Status != models.PostStatusPending {
		t.Errorf("Status = %s, want pending", post.Status)
	}
}

func TestCreatePost_RejectsUnknownStatus(t *testing.T) {
	repo, _ := newLicologRepo(t)

	post := &models.LicologPost{OrgID: "org-1", Body: "hello", Status: "published"}
	if err := repo.CreatePost(context.Background(), post); err == nil {
		t.Error("expected error for unknown status, got nil")
	}
}

// ---------------------------------------------------------------------------
// ApproveMany
// ---------------------------------------------------------------------------

func TestApproveMany_EmptyIsNoOp(t *testing.T) {
	repo, mock := newLicologRepo(t)
	// No ExpectBegin: an empty batch must not touch the database.

	if err := repo.ApproveMany(context.Background(), "org-1", nil, "mod-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected database activity: %v", err)
	}
}

func TestApproveMany_UpdatesAndAppendsEventPerID(t *testing.T) {
	repo, mock := newLicologRepo(t)
	mock.ExpectBegin()
	for range []int{0, 1} {
		mock.ExpectExec("UPDATE licolog_posts SET status").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO licolog_events").
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	err := repo.ApproveMany(context.Background(), "org-1", []string{"post-1", "post-2"}, "mod-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestApproveMany_RollsBackOnEventFailure(t *testing.T) {
	repo, mock := newLicologRepo(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE licolog_posts SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO licolog_events").
		WillReturnError(errDB)
	mock.ExpectRollback()

	err := repo.ApproveMany(context.Background(), "org-1", []string{"post-1"}, "mod-1")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestApproveMany_UnmatchedIDFailsBatchWithoutEvent(t *testing.T) {
	repo, mock := newLicologRepo(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE licolog_posts SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO licolog_events").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Second id matches no row in the org (nonexistent or cross-tenant).
	// No event insert follows and the whole batch rolls back.
	mock.ExpectExec("UPDATE licolog_posts SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.ApproveMany(context.Background(), "org-1", []string{"post-1", "other-org-post"}, "mod-1")
	if !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("err = %v, want ErrPostNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Unapprove
// ---------------------------------------------------------------------------

func TestUnapprove_UnmatchedIDWritesNoEvent(t *testing.T) {
	repo, mock := newLicologRepo(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE licolog_posts SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Unapprove(context.Background(), "org-1", "missing-post", "mod-1")
	if !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("err = %v, want ErrPostNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestUnapprove_Success(t *testing.T) {
	repo, mock := newLicologRepo(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE licolog_posts SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO licolog_events").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.Unapprove(context.Background(), "org-1", "post-1", "mod-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// ---------------------------------------------------------------------------
// ListPosts / ListEvents
// ---------------------------------------------------------------------------

func TestListPosts_FilterByStatus(t *testing.T) {
	repo, mock := newLicologRepo(t)
	mock.ExpectQuery("SELECT.*FROM licolog_posts WHERE org_id.*AND status").
		WithArgs("org-1", "pending").
		WillReturnRows(samplePostRow())

	status := models.PostStatusPending
	posts, err := repo.ListPosts(context.Background(), "org-1", &status, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(posts) != 1 {
		t.Errorf("len(posts) = %d, want 1", len(posts))
	}
}

func TestListPosts_RejectsUnknownStatus(t *testing.T) {
	repo, _ := newLicologRepo(t)

	bad := models.PostStatus("published")
	if _, err := repo.ListPosts(context.Background(), "org-1", &bad, 0); err == nil {
		t.Error("expected error for unknown status, got nil")
	}
}

func TestListEvents_Success(t *testing.T) {
	repo, mock := newLicologRepo(t)
	mock.ExpectQuery("SELECT.*FROM licolog_events.*ORDER BY created_at DESC").
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows(licologEventCols).
			AddRow("ev-1", "org-1", "licolog_approved", "post-1", "mod-1", time.Now()))

	events, err := repo.ListEvents(context.Background(), "org-1", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	if events[0].Type != models.EventLicologApproved {
		t.Errorf("Type = %s, want licolog_approved", events[0].Type)
	}
}
