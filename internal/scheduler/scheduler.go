package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"fibrodiario-backend/internal/device/usecase"
	"fibrodiario-backend/internal/dispatch"
)

// runTimeout bounds one dispatch run; thousands of tokens fit comfortably in
// tens of seconds.
const runTimeout = 2 * time.Minute

// Entry binds a category to the local hour its notification targets.
type Entry struct {
	Category dispatch.Category
	Hour     int
}

// Scheduler is the in-process trigger: an hourly tick runs every scheduled
// category against the dispatch service, and a daily sweep evicts stale
// tokens. Deployments using Cloud Scheduler + Pub/Sub instead simply leave
// it disabled.
type Scheduler struct {
	cron      *cron.Cron
	service   *dispatch.Service
	lifecycle *usecase.LifecycleManager
	entries   []Entry
	log       *zap.Logger
	now       func() time.Time
}

func New(service *dispatch.Service, lifecycle *usecase.LifecycleManager, entries []Entry, log *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		service:   service,
		lifecycle: lifecycle,
		entries:   entries,
		log:       log,
		now:       time.Now,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 * * * *", s.runHourly); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("30 3 * * *", s.runStaleSweep); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("dispatch scheduler started", zap.Int("entries", len(s.entries)))
	return nil
}

// Stop waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runHourly() {
	now := s.now()
	for _, entry := range s.entries {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		if _, err := s.service.Run(ctx, entry.Category, entry.Hour, now); err != nil {
			// The next hourly tick retries naturally.
			s.log.Error("scheduled dispatch failed",
				zap.String("category", string(entry.Category)),
				zap.Int("target_hour", entry.Hour),
				zap.Error(err))
		}
		cancel()
	}
}

func (s *Scheduler) runStaleSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()
	if _, err := s.lifecycle.EvictStale(ctx); err != nil {
		s.log.Error("stale token sweep failed", zap.Error(err))
	}
}
