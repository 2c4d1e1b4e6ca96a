package service

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Refresher is the slice of RateCache the scheduler drives
type Refresher interface {
	RefreshAll(ctx context.Context, force bool) (UpdateResult, error)
	Status() CacheStatus
	LastRefresh() time.Time
}

// SchedulerCallbacks are invoked around each refresh cycle. All fields are
// optional. OnStart runs inline before the cycle's fetch; OnComplete and
// OnError are handed off to their own goroutine so a slow consumer cannot
// stall the ticker. Within one cycle OnStart always precedes the other two.
type SchedulerCallbacks struct {
	OnStart    func()
	OnComplete func(UpdateResult)
	OnError    func(errors []string)
}

// SchedulerStatus is the external view of the scheduler loop.
type SchedulerStatus struct {
	IsRunning             bool        `json:"is_running"`
	NextRun               time.Time   `json:"next_run"`
	UpdateIntervalMinutes float64     `json:"update_interval_minutes"`
	LastUpdate            time.Time   `json:"last_update"`
	CacheStatus           CacheStatus `json:"cache_status"`
}

// Scheduler refreshes the cache at a fixed interval. Start and Stop are
// idempotent; a failed cycle is reported through callbacks and the loop
// keeps running.
type Scheduler struct {
	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	nextRun  time.Time
	interval time.Duration

	refresher Refresher
	callbacks SchedulerCallbacks
	logger    *slog.Logger
}

func NewScheduler(refresher Refresher, interval time.Duration, callbacks SchedulerCallbacks, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		refresher: refresher,
		interval:  interval,
		callbacks: callbacks,
		logger:    logger,
	}
}

// Start launches the refresh loop. Calling Start on a running scheduler is
// a no-op. When immediate is set, one cycle runs before the first tick.
func (s *Scheduler) Start(ctx context.Context, immediate bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.logger.Warn("scheduler already running")
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.nextRun = time.Now().Add(s.interval)

	s.wg.Add(1)
	go s.loop(loopCtx, immediate)
	s.logger.Info("scheduler started", "interval", s.interval, "immediate", immediate)
}

// Stop cancels the loop and waits for the in-flight cycle to finish.
// Calling Stop on a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, immediate bool) {
	defer s.wg.Done()

	if immediate {
		s.runCycle(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCycle(ctx)
			s.mu.Lock()
			s.nextRun = time.Now().Add(s.interval)
			s.mu.Unlock()
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	if cb := s.callbacks.OnStart; cb != nil {
		cb()
	}

	result, err := s.refresher.RefreshAll(ctx, false)
	if err != nil {
		s.logger.Error("refresh cycle failed", "error", err)
		if cb := s.callbacks.OnError; cb != nil {
			go cb([]string{err.Error()})
		}
		return
	}

	if !result.Success {
		if cb := s.callbacks.OnError; cb != nil {
			errs := result.Errors
			go cb(errs)
		}
		return
	}

	if cb := s.callbacks.OnComplete; cb != nil {
		go cb(result)
	}
}

// Status reports the loop state along with cache freshness counts
func (s *Scheduler) Status() SchedulerStatus {
	s.mu.Lock()
	running := s.running
	nextRun := s.nextRun
	s.mu.Unlock()

	st := SchedulerStatus{
		IsRunning:             running,
		UpdateIntervalMinutes: s.interval.Minutes(),
		LastUpdate:            s.refresher.LastRefresh(),
		CacheStatus:           s.refresher.Status(),
	}
	if running {
		st.NextRun = nextRun
	}
	return st
}
