package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/TakashiSato01/licope-lab/internal/config"
	"github.com/TakashiSato01/licope-lab/internal/db/repositories"
)

func newViewRepoForSweeper(t *testing.T) (*repositories.JobViewRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New (job_view): %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return repositories.NewJobViewRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func TestNewViewRetentionSweeper_Defaults(t *testing.T) {
	s := NewViewRetentionSweeper(nil, &config.TrackingConfig{})
	if s.retention != 90*24*time.Hour {
		t.Errorf("retention = %v, want 90 days", s.retention)
	}
	if s.interval != 24*time.Hour {
		t.Errorf("interval = %v, want 24h", s.interval)
	}
}

func TestNewViewRetentionSweeper_CustomSettings(t *testing.T) {
	s := NewViewRetentionSweeper(nil, &config.TrackingConfig{
		RawViewRetentionDays: 30,
		SweepIntervalHours:   6,
	})
	if s.retention != 30*24*time.Hour {
		t.Errorf("retention = %v, want 30 days", s.retention)
	}
	if s.interval != 6*time.Hour {
		t.Errorf("interval = %v, want 6h", s.interval)
	}
}

func TestViewRetentionSweeper_RunSweep_DeletesOldRows(t *testing.T) {
	viewRepo, mock := newViewRepoForSweeper(t)
	s := NewViewRetentionSweeper(viewRepo, &config.TrackingConfig{RawViewRetentionDays: 90})

	mock.ExpectExec("DELETE FROM job_views WHERE viewed_at").
		WillReturnResult(sqlmock.NewResult(0, 1234))

	s.runSweep(context.Background())

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestViewRetentionSweeper_RunSweep_DBError(t *testing.T) {
	viewRepo, mock := newViewRepoForSweeper(t)
	s := NewViewRetentionSweeper(viewRepo, &config.TrackingConfig{})

	mock.ExpectExec("DELETE FROM job_views WHERE viewed_at").
		WillReturnError(errors.New("db connection lost"))

	// Should log and return without panicking
	s.runSweep(context.Background())
}

func TestViewRetentionSweeper_StopExitsLoop(t *testing.T) {
	viewRepo, mock := newViewRepoForSweeper(t)
	s := NewViewRetentionSweeper(viewRepo, &config.TrackingConfig{})

	mock.ExpectExec("DELETE FROM job_views WHERE viewed_at").
		WillReturnResult(sqlmock.NewResult(0, 0))

	done := make(chan struct{})
	go func() {
		s.Start(context.Background())
		close(done)
	}()

	// Give the initial sweep a moment, then stop.
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("Start did not return after Stop")
	}
}
