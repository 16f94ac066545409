// view_retention.go implements the ViewRetentionSweeper background job, which
// periodically deletes raw job_views rows older than the configured retention
// window. The aggregated daily counters are untouched, so historical stats
// survive the sweep.
package jobs

import (
	"context"
	"log"
	"time"

	"github.com/TakashiSato01/licope-lab/internal/config"
	"github.com/TakashiSato01/licope-lab/internal/db/repositories"
)

// ViewRetentionSweeper deletes raw view rows past their retention window.
type ViewRetentionSweeper struct {
	viewRepo  *repositories.JobViewRepository
	retention time.Duration
	interval  time.Duration
	stopChan  chan struct{}
}

// NewViewRetentionSweeper creates a new ViewRetentionSweeper.
// Retention and interval come from the tracking config (defaults 90 days, 24h).
func NewViewRetentionSweeper(viewRepo *repositories.JobViewRepository, cfg *config.TrackingConfig) *ViewRetentionSweeper {
	days := cfg.RawViewRetentionDays
	if days <= 0 {
		days = 90
	}
	hours := cfg.SweepIntervalHours
	if hours <= 0 {
		hours = 24
	}
	return &ViewRetentionSweeper{
		viewRepo:  viewRepo,
		retention: time.Duration(days) * 24 * time.Hour,
		interval:  time.Duration(hours) * time.Hour,
		stopChan:  make(chan struct{}),
	}
}

// Start begins the background sweep loop.
// It runs an initial sweep immediately, then repeats on the configured interval.
// The loop exits when ctx is cancelled or Stop() is called.
func (s *ViewRetentionSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("View retention sweeper started (retention: %v, sweep interval: %v)",
		s.retention, s.interval)

	s.runSweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.runSweep(ctx)
		case <-s.stopChan:
			log.Println("View retention sweeper stopped")
			return
		case <-ctx.Done():
			log.Println("View retention sweeper context cancelled")
			return
		}
	}
}

// Stop signals the background loop to exit.
func (s *ViewRetentionSweeper) Stop() {
	close(s.stopChan)
}

func (s *ViewRetentionSweeper) runSweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.retention)
	deleted, err := s.viewRepo.DeleteRawViewsBefore(ctx, cutoff)
	if err != nil {
		log.Printf("View retention sweeper: delete failed: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("View retention sweeper: deleted %d raw view row(s) older than %s",
			deleted, cutoff.UTC().Format(time.RFC3339))
	}
}
