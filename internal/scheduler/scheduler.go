// Package scheduler rebuilds configured years on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"market-reconcile/internal/model"
)

// YearBuilder is the part of ingest.Builder the scheduler drives.
type YearBuilder interface {
	BuildYear(ctx context.Context, year int) (model.PriceSeries, error)
}

// Scheduler manages the rebuild cron task.
type Scheduler struct {
	Cron    *cron.Cron
	Builder YearBuilder
	// Years to rebuild; empty means the current year in Location.
	Years    []int
	Location *time.Location
	Ctx      context.Context

	now func() time.Time
}

// NewScheduler creates a new Scheduler. Overlapping runs are skipped.
func NewScheduler(ctx context.Context, b YearBuilder, years []int, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		Builder:  b,
		Years:    years,
		Location: loc,
		Ctx:      ctx,
		now:      time.Now,
	}
}

// Register adds the rebuild task under a standard 5-field cron spec.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.rebuildTask); err != nil {
		return fmt.Errorf("register rebuild task: %w", err)
	}
	log.Printf("[Scheduler] Rebuild registered: %q years=%v", spec, s.targetYears())
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[Scheduler] started")
}

// Stop stops the cron scheduler and waits for a running rebuild to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[Scheduler] stopped")
}

// RunNow rebuilds every target year in order and joins the failures.
func (s *Scheduler) RunNow() error {
	var errs []error
	for _, y := range s.targetYears() {
		if err := s.Ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		series, err := s.Builder.BuildYear(s.Ctx, y)
		if err != nil {
			log.Printf("[Scheduler] Rebuild of %d failed: %v", y, err)
			errs = append(errs, fmt.Errorf("year %d: %w", y, err))
			continue
		}
		log.Printf("[Scheduler] Rebuilt %d (%d points)", y, series.Len())
	}
	return errors.Join(errs...)
}

func (s *Scheduler) rebuildTask() {
	log.Println("[Scheduler] running rebuild task")
	_ = s.RunNow()
}

func (s *Scheduler) targetYears() []int {
	if len(s.Years) > 0 {
		return s.Years
	}
	return []int{s.now().In(s.Location).Year()}
}
