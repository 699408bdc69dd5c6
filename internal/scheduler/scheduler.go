// Package scheduler fires the daily auto-sync at its configured local
// time.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"archivarr/internal/contracts"
	"archivarr/internal/domain/consts"
	"archivarr/internal/domain/errs"
	"archivarr/internal/jobs"
	"archivarr/internal/logging"
)

// autoSyncFilter is the fixed time filter for scheduled runs.
const autoSyncFilter = consts.TimeFilterWeek

// Scheduler ticks once a minute and starts the configured sync when
// the local clock matches the configured HH:MM, no job is running and
// nothing fired yet today.
type Scheduler struct {
	store   contracts.Store
	manager *jobs.Manager

	mu            sync.Mutex
	lastFiredDate string // "2006-01-02" local
	lastRun       time.Time
}

// New returns a scheduler over the given manager.
func New(store contracts.Store, manager *jobs.Manager) *Scheduler {
	return &Scheduler{
		store:   store,
		manager: manager,
	}
}

// Run blocks until ctx ends, evaluating the schedule once per minute.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(consts.SchedulerTickInterval)
	defer ticker.Stop()

	logging.I("Auto-sync scheduler running")
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.tick(now)
		}
	}
}

// LastRun returns when the scheduler last fired, zero if never.
func (s *Scheduler) LastRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

// NextRunTime computes the next scheduled fire time, zero when
// auto-sync is disabled or unconfigured.
func (s *Scheduler) NextRunTime(now time.Time) time.Time {
	cfg, err := s.store.ConfigStore().Get()
	if err != nil {
		logging.E("Failed to load sync config for schedule: %v", err)
		return time.Time{}
	}
	if !cfg.AutoSyncEnabled || cfg.AutoSyncTime == "" {
		return time.Time{}
	}
	at, err := time.ParseInLocation("15:04", cfg.AutoSyncTime, now.Location())
	if err != nil {
		logging.E("Invalid auto-sync time %q: %v", cfg.AutoSyncTime, err)
		return time.Time{}
	}

	next := time.Date(now.Year(), now.Month(), now.Day(), at.Hour(), at.Minute(), 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// ******************************** Private ********************************

func (s *Scheduler) tick(now time.Time) {
	cfg, err := s.store.ConfigStore().Get()
	if err != nil {
		logging.E("Scheduler failed to load sync config: %v", err)
		return
	}
	if !cfg.AutoSyncEnabled || cfg.AutoSyncTime == "" {
		return
	}
	if now.Format("15:04") != cfg.AutoSyncTime {
		return
	}

	today := now.Format("2006-01-02")

	s.mu.Lock()
	if s.lastFiredDate == today {
		s.mu.Unlock()
		return
	}
	// Mark before starting so repeated ticks inside the matching
	// minute stay idempotent even if the start fails fast.
	s.lastFiredDate = today
	s.lastRun = now
	s.mu.Unlock()

	if s.manager.Running() {
		logging.W("Skipping auto-sync: a job is already running")
		return
	}

	channels, err := s.store.ChannelStore().GetAll()
	if err != nil {
		logging.E("Scheduler failed to list channels: %v", err)
		return
	}
	if len(channels) == 0 {
		logging.D(1, "Auto-sync matched but no channels are configured")
		return
	}

	// Channels sync sequentially; the single-job invariant rules out
	// overlap, so each run is awaited before the next begins.
	go func() {
		for _, ch := range channels {
			job, err := s.manager.Start(cfg.AutoSyncType, ch.ID, autoSyncFilter)
			if err != nil {
				if errors.Is(err, errs.ErrJobConflict) {
					logging.W("Auto-sync for channel %d skipped: %v", ch.ID, err)
					return
				}
				logging.E("Auto-sync failed to start for channel %d: %v", ch.ID, err)
				continue
			}
			logging.I("Auto-sync started job %d for channel %q", job.ID, ch.Title)
			s.manager.Wait()
		}
	}()
}
