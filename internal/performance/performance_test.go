package performance

import (
	"context"
	"database/sql"
	"math"
	"testing"
	"time"

	"hilofarm/internal/db"
	"hilofarm/internal/journal"
	"hilofarm/internal/strategy"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close() })
	if err := db.Migrate(database); err != nil {
		t.Fatal(err)
	}
	return database
}

type testRound struct {
	bet    float64
	result strategy.Result
	before float64
	after  float64
}

func seedSession(t *testing.T, rec *journal.Recorder, id, strat string, start float64, rounds []testRound, reason string) {
	t.Helper()
	ctx := context.Background()
	if err := rec.StartSession(ctx, id, strat, 10, start); err != nil {
		t.Fatal(err)
	}
	for i, rd := range rounds {
		err := rec.RecordRound(ctx, journal.Round{
			SessionID:     id,
			No:            i + 1,
			Strategy:      strat,
			Bet:           rd.bet,
			Result:        rd.result,
			BalanceBefore: rd.before,
			BalanceAfter:  rd.after,
			PlayedAt:      time.Date(2026, 3, 1, 12, 0, i, 0, time.UTC),
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	if err := rec.EndSession(ctx, id, rounds[len(rounds)-1].after, reason); err != nil {
		t.Fatal(err)
	}
}

func seed(t *testing.T, database *sql.DB) {
	rec := journal.NewRecorder(database)
	seedSession(t, rec, "a", "paroli", 100, []testRound{
		{10, strategy.Win, 100, 110},
		{20, strategy.Loss, 110, 90},
		{10, strategy.Loss, 90, 80},
	}, "max_rounds")
	seedSession(t, rec, "b", "martingale", 70, []testRound{
		{10, strategy.Loss, 70, 60},
		{20, strategy.Loss, 60, 40},
		{40, strategy.Loss, 40, 0},
	}, "busted")
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestGenerate_Overall(t *testing.T) {
	database := newTestDB(t)
	seed(t, database)

	r, err := NewTracker(database).Generate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if r.Sessions != 2 || r.BustedSessions != 1 {
		t.Errorf("expected 2 sessions with 1 busted, got %d/%d", r.Sessions, r.BustedSessions)
	}
	if r.TotalRounds != 6 || r.Wins != 1 || r.Losses != 5 {
		t.Errorf("unexpected counts: %d rounds, %d wins, %d losses", r.TotalRounds, r.Wins, r.Losses)
	}
	if r.TotalWagered != 110 || r.TotalPnL != -90 {
		t.Errorf("expected wagered 110 and pnl -90, got %v and %v", r.TotalWagered, r.TotalPnL)
	}
	if !approx(r.ROI, -90.0/110.0) {
		t.Errorf("unexpected roi %v", r.ROI)
	}
	if r.PeakBalance != 110 {
		t.Errorf("expected peak 110, got %v", r.PeakBalance)
	}
	// Session b went from 70 to 0.
	if r.MaxDrawdown != 1 {
		t.Errorf("expected max drawdown 1, got %v", r.MaxDrawdown)
	}
	if r.LongestLossStreak != 3 {
		t.Errorf("expected longest loss streak 3, got %d", r.LongestLossStreak)
	}
}

func TestGenerate_StrategyStats(t *testing.T) {
	database := newTestDB(t)
	seed(t, database)

	r, err := NewTracker(database).Generate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	p, ok := r.StrategyStats["paroli"]
	if !ok {
		t.Fatal("missing paroli stats")
	}
	if p.Rounds != 3 || p.Wagered != 40 || p.PnL != -20 || p.MaxBet != 20 {
		t.Errorf("unexpected paroli stats %+v", p)
	}
	if !approx(p.WinRate, 1.0/3.0) {
		t.Errorf("expected paroli win rate 1/3, got %v", p.WinRate)
	}
	m := r.StrategyStats["martingale"]
	if m.WinRate != 0 || m.PnL != -70 || m.MaxBet != 40 {
		t.Errorf("unexpected martingale stats %+v", m)
	}
}

func TestGenerate_Empty(t *testing.T) {
	r, err := NewTracker(newTestDB(t)).Generate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if r.TotalRounds != 0 || r.WinRate != 0 || r.ROI != 0 || len(r.StrategyStats) != 0 {
		t.Errorf("expected empty report, got %+v", r)
	}
}

func TestReportCache_ServesUntilInvalidated(t *testing.T) {
	database := newTestDB(t)
	seed(t, database)
	cache := NewReportCache(NewTracker(database), time.Hour)
	ctx := context.Background()

	first, err := cache.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}

	rec := journal.NewRecorder(database)
	seedSession(t, rec, "c", "fractional", 100, []testRound{{25, strategy.Win, 100, 125}}, "max_rounds")

	cached, err := cache.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if cached != first {
		t.Error("expected cached report within ttl")
	}

	cache.Invalidate()
	fresh, err := cache.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if fresh.TotalRounds != 7 {
		t.Errorf("expected 7 rounds after invalidate, got %d", fresh.TotalRounds)
	}
}

func TestReportCache_Expires(t *testing.T) {
	database := newTestDB(t)
	cache := NewReportCache(NewTracker(database), 0)
	ctx := context.Background()

	if _, err := cache.Get(ctx); err != nil {
		t.Fatal(err)
	}
	seed(t, database)
	time.Sleep(time.Millisecond)
	r, err := cache.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if r.TotalRounds != 6 {
		t.Errorf("expected expired cache to regenerate, got %d rounds", r.TotalRounds)
	}
}
