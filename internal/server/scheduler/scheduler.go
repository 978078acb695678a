// Package scheduler runs the purge job on a fixed interval. Runs never
// overlap: gocron keeps one job instance per process and a Locker extends
// that across replicas.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/drivekeeper/internal/logging"
	"github.com/dmitrijs2005/drivekeeper/internal/server/models"
	"github.com/go-co-op/gocron"
)

// ErrLocked is returned by RunNow when another run holds the purge lock.
var ErrLocked = errors.New("purge already running")

// Runner performs one purge pass.
type Runner interface {
	Run(ctx context.Context) (*models.PurgeStats, error)
}

// newScheduler builds a UTC scheduler that runs one job at a time.
var newScheduler = func() *gocron.Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SetMaxConcurrentJobs(1, gocron.WaitMode)
	return s
}

type PurgeScheduler struct {
	runner   Runner
	locker   Locker
	interval time.Duration
	timeout  time.Duration
	log      logging.Logger

	mu     sync.Mutex
	sched  *gocron.Scheduler
	cancel context.CancelFunc
}

func New(runner Runner, locker Locker, interval, timeout time.Duration, log logging.Logger) *PurgeScheduler {
	if locker == nil {
		locker = &LocalLocker{}
	}
	if timeout <= 0 || timeout > interval {
		timeout = interval
	}
	return &PurgeScheduler{
		runner:   runner,
		locker:   locker,
		interval: interval,
		timeout:  timeout,
		log:      log.With("module", "scheduler"),
	}
}

// Start schedules the purge every interval, beginning immediately. Jobs are
// bound to ctx and stop when it is cancelled or Stop is called.
func (s *PurgeScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sched != nil {
		return errors.New("scheduler already started")
	}

	sched := newScheduler()
	jobCtx, cancel := context.WithCancel(ctx)

	_, err := sched.Every(s.interval).Tag("purge").SingletonMode().Do(func() {
		if _, err := s.RunNow(jobCtx); err != nil && !errors.Is(err, ErrLocked) && jobCtx.Err() == nil {
			s.log.Error(jobCtx, "scheduled purge failed", "error", err)
		}
	})
	if err != nil {
		cancel()
		return fmt.Errorf("error creating purge job: %w", err)
	}

	s.sched, s.cancel = sched, cancel
	s.log.Info(ctx, "starting scheduler", "interval", s.interval.String())
	sched.StartAsync()
	return nil
}

// Stop cancels any running purge and stops scheduling new ones.
func (s *PurgeScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sched == nil {
		return
	}
	s.cancel()
	s.sched.Stop()
	s.sched = nil
	s.log.Info(context.Background(), "scheduler stopped")
}

// RunNow performs one purge under the lock, bounded by the run timeout.
func (s *PurgeScheduler) RunNow(ctx context.Context) (*models.PurgeStats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	release, ok, err := s.locker.TryLock(ctx, s.timeout+time.Minute)
	if err != nil {
		return nil, fmt.Errorf("acquire purge lock: %w", err)
	}
	if !ok {
		s.log.Debug(ctx, "purge lock held elsewhere, skipping run")
		return nil, ErrLocked
	}
	defer func() {
		if err := release(context.Background()); err != nil {
			s.log.Warn(ctx, "release purge lock", "error", err)
		}
	}()

	return s.runner.Run(ctx)
}
