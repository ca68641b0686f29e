package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"hilofarm/internal/collector"
	"hilofarm/internal/config"
	"hilofarm/internal/performance"
	"hilofarm/internal/risk"
	"hilofarm/internal/session"
	"hilofarm/internal/strategy"
)

// Scheduler orchestrates the main farming loop: collect, play a session,
// cool down, repeat.
type Scheduler struct {
	game      session.Game
	collector *collector.Collector
	recorder  session.Recorder
	riskMgr   *risk.Manager
	tracker   *performance.Tracker
	reports   *performance.ReportCache
	cfg       *config.Config

	mu       sync.RWMutex
	current  *session.Session
	sessions int
}

// New creates a new Scheduler with all dependencies. coll and reports may be nil.
func New(
	game session.Game,
	coll *collector.Collector,
	recorder session.Recorder,
	riskMgr *risk.Manager,
	tracker *performance.Tracker,
	reports *performance.ReportCache,
	cfg *config.Config,
) *Scheduler {
	return &Scheduler{
		game:      game,
		collector: coll,
		recorder:  recorder,
		riskMgr:   riskMgr,
		tracker:   tracker,
		reports:   reports,
		cfg:       cfg,
	}
}

// Run plays sessions until MaxSessions is reached or ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	sched := s.cfg.Schedule
	slog.Info("scheduler starting",
		"strategy", s.cfg.Betting.Strategy,
		"cooldown", sched.Cooldown.Duration,
		"performance_interval", sched.PerformanceInterval.Duration,
		"max_sessions", sched.MaxSessions,
	)

	var wg sync.WaitGroup
	if sched.PerformanceInterval.Duration > 0 {
		perfCtx, stop := context.WithCancel(ctx)
		defer func() {
			stop()
			wg.Wait()
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.reportLoop(perfCtx, sched.PerformanceInterval.Duration)
		}()
	}

	for sched.MaxSessions == 0 || s.Sessions() < sched.MaxSessions {
		if ctx.Err() != nil {
			slog.Info("scheduler shutting down")
			return ctx.Err()
		}

		s.runCollection(ctx)
		s.runSession(ctx)

		if !sleep(ctx, sched.Cooldown.Duration) {
			slog.Info("scheduler shutting down")
			return ctx.Err()
		}
	}

	slog.Info("session limit reached", "sessions", s.Sessions())
	s.runPerformanceReport(ctx)
	return nil
}

// Current returns a snapshot of the latest session, if any has started.
func (s *Scheduler) Current() (session.Snapshot, bool) {
	s.mu.RLock()
	cur := s.current
	s.mu.RUnlock()
	if cur == nil {
		return session.Snapshot{}, false
	}
	return cur.Snapshot(), true
}

// Sessions is the number of sessions played so far.
func (s *Scheduler) Sessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions
}

func (s *Scheduler) runCollection(ctx context.Context) {
	if s.collector == nil {
		return
	}
	if _, err := s.collector.Collect(ctx); err != nil {
		slog.Error("collection failed", "error", err)
	}
}

func (s *Scheduler) runSession(ctx context.Context) {
	s.riskMgr.Reset()
	sess := session.New(s.game, strategy.New(s.cfg), s.recorder, s.riskMgr, s.cfg.Betting)
	if s.collector != nil {
		sess.WithTicketCollector(s.collector)
	}

	s.mu.Lock()
	s.current = sess
	s.sessions++
	s.mu.Unlock()

	_, err := sess.Run(ctx)
	switch {
	case err == nil:
	case errors.Is(err, session.ErrBusted), errors.Is(err, risk.ErrHalted):
		slog.Info("session stopped", "session", sess.ID(), "reason", err)
	case errors.Is(err, context.Canceled):
	default:
		slog.Error("session failed", "session", sess.ID(), "error", err)
	}

	if s.reports != nil {
		s.reports.Invalidate()
	}
}

func (s *Scheduler) reportLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runPerformanceReport(ctx)
		}
	}
}

func (s *Scheduler) runPerformanceReport(ctx context.Context) {
	report, err := s.tracker.Generate(ctx)
	if err != nil {
		slog.Error("performance report failed", "error", err)
		return
	}
	performance.LogReport(report)
}

// sleep waits for d and reports whether ctx is still live.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
