package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"dealscout/config"
	"dealscout/scraper"
)

// Scheduler drives full pipeline cycles on a cron expression or a fixed
// interval. Cron takes precedence when both are configured.
type Scheduler struct {
	cfg          *config.Config
	orchestrator *scraper.Orchestrator
	cron         *cron.Cron
	ticker       *time.Ticker
	stopCh       chan struct{}
}

func New(cfg *config.Config, orchestrator *scraper.Orchestrator) *Scheduler {
	return &Scheduler{
		cfg:          cfg,
		orchestrator: orchestrator,
		cron:         cron.New(),
		stopCh:       make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.Scheduler.Cron != "" {
		log.Printf("scheduler: cron %q", s.cfg.Scheduler.Cron)
		_, err := s.cron.AddFunc(s.cfg.Scheduler.Cron, func() {
			s.runCycle(ctx)
		})
		if err != nil {
			return fmt.Errorf("scheduler: invalid cron expression: %w", err)
		}
		s.cron.Start()
		return nil
	}

	if s.cfg.Scheduler.Interval > 0 {
		log.Printf("scheduler: interval %s", s.cfg.Scheduler.Interval)
		s.ticker = time.NewTicker(s.cfg.Scheduler.Interval)
		go func() {
			for {
				select {
				case <-s.ticker.C:
					s.runCycle(ctx)
				case <-s.stopCh:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
		return nil
	}

	return fmt.Errorf("scheduler: neither SCRAPE_CRON nor SCRAPE_INTERVAL is configured")
}

func (s *Scheduler) runCycle(ctx context.Context) {
	if err := s.orchestrator.RunCycle(ctx); err != nil {
		log.Printf("scheduler: cycle failed: %v", err)
	}
}

// TriggerNow runs one cycle outside the schedule.
func (s *Scheduler) TriggerNow(ctx context.Context) error {
	return s.orchestrator.RunCycle(ctx)
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stopCh)
}
