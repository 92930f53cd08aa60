// Package scheduler runs periodic scrape refreshes on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quaestus/internal/common"
	"github.com/ternarybob/quaestus/internal/services/scraper"
)

// Service schedules recurring scrape runs.
type Service struct {
	config  *common.SchedulerConfig
	scraper *scraper.Service
	cron    *cron.Cron
	logger  arbor.ILogger

	// warm runs after each scheduled scrape (cache warm of market views)
	warm func()

	mu      sync.Mutex
	running bool
	lastRun *time.Time
	entryID cron.EntryID
}

// OnComplete registers a callback invoked after each scheduled scrape run.
func (s *Service) OnComplete(fn func()) {
	s.warm = fn
}

// NewService creates a new scheduler service.
func NewService(config *common.SchedulerConfig, scraperService *scraper.Service, logger arbor.ILogger) *Service {
	return &Service{
		config:  config,
		scraper: scraperService,
		cron:    cron.New(cron.WithSeconds()),
		logger:  logger,
	}
}

// Start registers the configured schedule and begins the cron loop. It is a
// no-op when the scheduler is disabled.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.config.Enabled {
		s.logger.Info().Msg("Scheduler disabled, periodic scrapes will not run")
		return nil
	}
	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	entryID, err := s.cron.AddFunc(s.config.Schedule, s.runScheduledScrape)
	if err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.config.Schedule, err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.running = true

	s.logger.Info().Str("schedule", s.config.Schedule).Msg("Scheduler started")
	return nil
}

// Stop halts the cron loop, waiting for a running job to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
	s.logger.Info().Msg("Scheduler stopped")
}

// NextRun returns the next scheduled run time, or nil when not running.
func (s *Service) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	entry := s.cron.Entry(s.entryID)
	if entry.Next.IsZero() {
		return nil
	}
	next := entry.Next
	return &next
}

// LastRun returns when the last scheduled scrape started.
func (s *Service) LastRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

// runScheduledScrape refreshes all symbols already present in the store.
// The scraper's own run lock rejects overlap with a manual run.
func (s *Service) runScheduledScrape() {
	now := time.Now()
	s.mu.Lock()
	s.lastRun = &now
	s.mu.Unlock()

	s.logger.Info().Msg("Scheduled scrape starting")

	status, err := s.scraper.RunStoredSymbols(context.Background())
	if err != nil {
		s.logger.Warn().Err(err).Msg("Scheduled scrape did not run")
		return
	}
	s.logger.Info().
		Int("added", status.Added).
		Int("skipped", status.Skipped).
		Int("failed", status.Failed).
		Msg("Scheduled scrape finished")

	if s.warm != nil {
		s.warm()
	}
}
