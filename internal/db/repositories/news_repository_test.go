package repositories

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/TakashiSato01/licope-lab/internal/db/models"
)

var newsCols = []string{
	"id", "org_id", "title", "body", "published", "created_by", "created_at", "updated_at",
}

func newNewsRepo(t *testing.T) (*NewsRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewNewsRepository(db), mock
}

func sampleNewsRow(published bool) *sqlmock.Rows {
	return sqlmock.NewRows(newsCols).AddRow(
		"news-1", "org-1", "Summer festival", "We are hosting a festival.",
		published, strPtr("member-1"), time.Now(), time.Now(),
	)
}

func TestNewsGetByID_Found(t *testing.T) {
	repo, mock := newNewsRepo(t)
	mock.ExpectQuery("SELECT.*FROM news_posts WHERE id").
		WithArgs("news-1").
		WillReturnRows(sampleNewsRow(true))

	n, err := repo.GetByID(context.Background(), "news-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n == nil || n.Title != "Summer festival" {
		t.Fatalf("post = %+v, want Summer festival", n)
	}
}

func TestNewsCreate_Success(t *testing.T) {
	repo, mock := newNewsRepo(t)
	mock.ExpectQuery("INSERT INTO news_posts").
		WithArgs("org-1", "Summer festival", "We are hosting a festival.", false, strPtr("member-1")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow("news-1", time.Now(), time.Now()))

	n := &models.NewsPost{
		OrgID:     "org-1",
		Title:     "Summer festival",
		Body:      "We are hosting a festival.",
		CreatedBy: strPtr("member-1"),
	}
	if err := repo.Create(context.Background(), n); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.ID != "news-1" {
		t.Errorf("ID = %s, want news-1", n.ID)
	}
}

func TestNewsUpdate_Success(t *testing.T) {
	repo, mock := newNewsRepo(t)
	mock.ExpectExec("UPDATE news_posts").
		WithArgs("news-1", "Summer festival", "Rescheduled.", true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n := &models.NewsPost{ID: "news-1", Title: "Summer festival", Body: "Rescheduled.", Published: true}
	if err := repo.Update(context.Background(), n); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewsDelete_Success(t *testing.T) {
	repo, mock := newNewsRepo(t)
	mock.ExpectExec("DELETE FROM news_posts").
		WithArgs("news-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Delete(context.Background(), "news-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewsList_All(t *testing.T) {
	repo, mock := newNewsRepo(t)
	mock.ExpectQuery("SELECT.*FROM news_posts WHERE org_id").
		WithArgs("org-1").
		WillReturnRows(sampleNewsRow(false))

	posts, err := repo.List(context.Background(), "org-1", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(posts) != 1 {
		t.Errorf("len(posts) = %d, want 1", len(posts))
	}
}

func TestNewsList_PublishedOnly(t *testing.T) {
	repo, mock := newNewsRepo(t)
	mock.ExpectQuery("SELECT.*FROM news_posts WHERE org_id.*published = TRUE").
		WithArgs("org-1").
		WillReturnRows(sampleNewsRow(true))

	posts, err := repo.List(context.Background(), "org-1", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(posts) != 1 {
		t.Errorf("len(posts) = %d, want 1", len(posts))
	}
	if !posts[0].Published {
		t.Error("expected published post")
	}
}
