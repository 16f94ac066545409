package repositories

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/TakashiSato01/licope-lab/internal/db/models"
)

var applicationCols = []string{
	"id", "org_id", "job_pub_id", "name", "contact", "message", "status",
	"notified_at", "created_at", "updated_at",
}

func newApplicationRepo(t *testing.T) (*ApplicationRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewApplicationRepository(db), mock
}

func sampleApplicationRow() *sqlmock.Rows {
	return sqlmock.NewRows(applicationCols).
		AddRow("app-1", "org-1", "pub-1", "Hanako Yamada", "hanako@example.com",
			"I would like to apply", "pending", nil, time.Now(), time.Now())
}

func TestApplicationCreate_StartsPending(t *testing.T) {
	repo, mock := newApplicationRepo(t)
	mock.ExpectQuery("INSERT INTO applications").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow("app-1", time.Now(), time.Now()))

	app := &models.Application{
		OrgID:    "org-1",
		JobPubID: "pub-1",
		Name:     "Hanako Yamada",
		Contact:  "090-1234-5678",
		Status:   models.ApplicationDone, // caller-supplied status must be ignored
	}
	if err := repo.Create(context.Background(), app); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if app.Status != models.ApplicationPending {
		t.Errorf("Status = %s, want pending", app.Status)
	}
	if app.ID != "app-1" {
		t.Errorf("ID = %s, want app-1", app.ID)
	}
}

func TestApplicationUpdateStatus_RejectsUnknown(t *testing.T) {
	repo, _ := newApplicationRepo(t)

	if err := repo.UpdateStatus(context.Background(), "app-1", "archived"); err == nil {
		t.Error("expected error for unknown status, got nil")
	}
}

func TestApplicationUpdateStatus_Success(t *testing.T) {
	repo, mock := newApplicationRepo(t)
	mock.ExpectExec("UPDATE applications SET status").
		WithArgs("app-1", "review").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateStatus(context.Background(), "app-1", models.ApplicationReview); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestApplicationList_Success(t *testing.T) {
	repo, mock := newApplicationRepo(t)
	mock.ExpectQuery("SELECT.*FROM applications.*ORDER BY created_at DESC").
		WithArgs("org-1", 20, 0).
		WillReturnRows(sampleApplicationRow())

	apps, err := repo.List(context.Background(), "org-1", 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(apps) != 1 {
		t.Fatalf("len(apps) = %d, want 1", len(apps))
	}
	if apps[0].Contact != "hanako@example.com" {
		t.Errorf("Contact = %s, want hanako@example.com", apps[0].Contact)
	}
}

func TestApplicationListUnnotified_Success(t *testing.T) {
	repo, mock := newApplicationRepo(t)
	mock.ExpectQuery("SELECT.*FROM applications.*WHERE notified_at IS NULL").
		WithArgs(50).
		WillReturnRows(sampleApplicationRow())

	apps, err := repo.ListUnnotified(context.Background(), 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(apps) != 1 {
		t.Errorf("len(apps) = %d, want 1", len(apps))
	}
}

func TestApplicationMarkNotified_Success(t *testing.T) {
	repo, mock := newApplicationRepo(t)
	mock.ExpectExec("UPDATE applications SET notified_at").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkNotified(context.Background(), "app-1", time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
