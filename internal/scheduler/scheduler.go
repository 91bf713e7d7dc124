// Package scheduler runs the recurring background jobs of the exchange,
// currently the end-of-day snapshot run.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/fundshare/exchange-backend/internal/service"
)

// Scheduler owns the cron runner and the jobs registered on it.
type Scheduler struct {
	cron      *cron.Cron
	snapshots *service.SnapshotService
}

// New creates a scheduler with the daily snapshot job registered on the
// given cron spec. Jobs run in UTC.
func New(snapshots *service.SnapshotService, snapshotSpec string) (*Scheduler, error) {
	s := &Scheduler{
		cron:      cron.New(cron.WithLocation(time.UTC)),
		snapshots: snapshots,
	}

	if _, err := s.cron.AddFunc(snapshotSpec, s.runDailySnapshots); err != nil {
		return nil, err
	}

	return s, nil
}

// Start launches the cron runner in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Println("Scheduler started")
}

// Stop stops the cron runner and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Scheduler stopped")
}

func (s *Scheduler) runDailySnapshots() {
	ctx := context.Background()
	date := time.Now().UTC().Truncate(24 * time.Hour)
	log.Printf("Running scheduled snapshot for %s", date.Format("2006-01-02"))

	result, err := s.snapshots.CreateDailySnapshots(ctx, date)
	if err != nil {
		log.Printf("Scheduled snapshot run failed: %v", err)
		return
	}

	log.Printf("Snapshot run complete: %d created, %d skipped, %d failed, %s distributed",
		result.SnapshotsCreated, result.AccountsSkipped, result.AccountsFailed,
		result.TotalProfitDistributed.String())
}
