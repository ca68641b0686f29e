package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"hilofarm/internal/collector"
	"hilofarm/internal/config"
	"hilofarm/internal/db"
	"hilofarm/internal/game"
	"hilofarm/internal/journal"
	"hilofarm/internal/performance"
	"hilofarm/internal/risk"
)

func newTestScheduler(t *testing.T, cfg *config.Config) (*Scheduler, *sql.DB) {
	t.Helper()
	database, err := db.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close() })
	if err := db.Migrate(database); err != nil {
		t.Fatal(err)
	}

	sim := game.NewSimulator(cfg.Simulator)
	rec := journal.NewRecorder(database)
	tracker := performance.NewTracker(database)
	s := New(
		sim,
		collector.NewCollector(sim, sim, rec, cfg.Collector),
		rec,
		risk.NewManager(cfg.Risk),
		tracker,
		performance.NewReportCache(tracker, time.Minute),
		cfg,
	)
	return s, database
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Betting.MaxRounds = 5
	cfg.Schedule.Cooldown = config.Duration{}
	cfg.Schedule.PerformanceInterval = config.Duration{}
	cfg.Schedule.MaxSessions = 2
	return cfg
}

func TestRun_PlaysUpToMaxSessions(t *testing.T) {
	s, database := newTestScheduler(t, testConfig())

	if _, ok := s.Current(); ok {
		t.Error("expected no current session before Run")
	}
	if err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.Sessions() != 2 {
		t.Errorf("expected 2 sessions, got %d", s.Sessions())
	}

	var sessions, collects int
	if err := database.QueryRow(`SELECT COUNT(*) FROM sessions WHERE ended_at IS NOT NULL`).Scan(&sessions); err != nil {
		t.Fatal(err)
	}
	if err := database.QueryRow(`SELECT COUNT(*) FROM events WHERE type = 'collect'`).Scan(&collects); err != nil {
		t.Fatal(err)
	}
	if sessions != 2 || collects != 2 {
		t.Errorf("expected 2 closed sessions and 2 collections, got %d and %d", sessions, collects)
	}

	// Both sessions poll for tickets every round; the hourly interval allows one claim.
	var ticketClaims int
	if err := database.QueryRow(`SELECT COUNT(*) FROM events WHERE type = 'collect_tickets'`).Scan(&ticketClaims); err != nil {
		t.Fatal(err)
	}
	if ticketClaims != 1 {
		t.Errorf("expected 1 ticket claim, got %d", ticketClaims)
	}

	snap, ok := s.Current()
	if !ok || snap.Running || snap.Strategy != config.StrategyParoli {
		t.Errorf("unexpected final snapshot %+v", snap)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.Schedule.MaxSessions = 0
	cfg.Schedule.Cooldown = config.Duration{Duration: time.Hour}
	s, _ := newTestScheduler(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.After(5 * time.Second)
	for s.Sessions() == 0 {
		select {
		case <-deadline:
			t.Fatal("no session started")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestSleep(t *testing.T) {
	if !sleep(context.Background(), 0) {
		t.Error("zero sleep on live context should succeed")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if sleep(ctx, time.Hour) {
		t.Error("sleep should return false once cancelled")
	}
}
