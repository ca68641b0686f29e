package performance

import (
	"context"
	"database/sql"
	"fmt"
	"math"
)

// Tracker computes performance metrics from the journal tables.
type Tracker struct {
	db *sql.DB
}

func NewTracker(db *sql.DB) *Tracker {
	return &Tracker{db: db}
}

// Report contains all performance metrics.
type Report struct {
	Sessions          int                      `json:"sessions"`
	BustedSessions    int                      `json:"busted_sessions"`
	TotalRounds       int                      `json:"total_rounds"`
	Wins              int                      `json:"wins"`
	Losses            int                      `json:"losses"`
	WinRate           float64                  `json:"win_rate"`
	TotalWagered      float64                  `json:"total_wagered"`
	TotalPnL          float64                  `json:"total_pnl"`
	ROI               float64                  `json:"roi"`
	PeakBalance       float64                  `json:"peak_balance"`
	MaxDrawdown       float64                  `json:"max_drawdown"`
	LongestLossStreak int                      `json:"longest_loss_streak"`
	StrategyStats     map[string]StrategyStats `json:"strategies"`
}

// StrategyStats contains per-strategy performance.
type StrategyStats struct {
	Rounds  int     `json:"rounds"`
	Wagered float64 `json:"wagered"`
	PnL     float64 `json:"pnl"`
	ROI     float64 `json:"roi"`
	WinRate float64 `json:"win_rate"`
	MaxBet  float64 `json:"max_bet"`
}

// Generate computes the full performance report.
func (t *Tracker) Generate(ctx context.Context) (*Report, error) {
	r := &Report{
		StrategyStats: make(map[string]StrategyStats),
	}

	if err := t.computeOverall(ctx, r); err != nil {
		return nil, fmt.Errorf("computing overall stats: %w", err)
	}
	if err := t.computeStrategyStats(ctx, r); err != nil {
		return nil, fmt.Errorf("computing strategy stats: %w", err)
	}
	if err := t.computeDrawdown(ctx, r); err != nil {
		return nil, fmt.Errorf("computing drawdown: %w", err)
	}

	return r, nil
}

func (t *Tracker) computeOverall(ctx context.Context, r *Report) error {
	row := t.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN result = 'win' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(bet), 0),
		       COALESCE(SUM(balance_after - balance_before), 0)
		FROM rounds`)
	if err := row.Scan(&r.TotalRounds, &r.Wins, &r.TotalWagered, &r.TotalPnL); err != nil {
		return err
	}
	r.Losses = r.TotalRounds - r.Wins

	if r.TotalWagered > 0 {
		r.ROI = r.TotalPnL / r.TotalWagered
	}
	if r.TotalRounds > 0 {
		r.WinRate = float64(r.Wins) / float64(r.TotalRounds)
	}

	row = t.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN stop_reason = 'busted' THEN 1 ELSE 0 END), 0)
		FROM sessions`)
	return row.Scan(&r.Sessions, &r.BustedSessions)
}

func (t *Tracker) computeStrategyStats(ctx context.Context, r *Report) error {
	rows, err := t.db.QueryContext(ctx, `
		SELECT strategy, COUNT(*), COALESCE(SUM(bet), 0),
		       COALESCE(SUM(balance_after - balance_before), 0),
		       COALESCE(SUM(CASE WHEN result = 'win' THEN 1 ELSE 0 END), 0),
		       COALESCE(MAX(bet), 0)
		FROM rounds GROUP BY strategy`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var stats StrategyStats
		var wins int
		if err := rows.Scan(&name, &stats.Rounds, &stats.Wagered, &stats.PnL, &wins, &stats.MaxBet); err != nil {
			return err
		}
		if stats.Wagered > 0 {
			stats.ROI = stats.PnL / stats.Wagered
		}
		if stats.Rounds > 0 {
			stats.WinRate = float64(wins) / float64(stats.Rounds)
		}
		r.StrategyStats[name] = stats
	}
	return rows.Err()
}

// computeDrawdown walks every round in order. Peak and loss streak restart
// with each session since refills between sessions are not profit.
func (t *Tracker) computeDrawdown(ctx context.Context, r *Report) error {
	rows, err := t.db.QueryContext(ctx, `
		SELECT r.session_id, s.start_balance, r.result, r.balance_after
		FROM rounds r JOIN sessions s ON s.id = r.session_id
		ORDER BY r.id ASC`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var (
		session     string
		peak        float64
		maxDD       float64
		overallPeak float64
		streak      int
	)
	for rows.Next() {
		var id, result string
		var start, value float64
		if err := rows.Scan(&id, &start, &result, &value); err != nil {
			return err
		}
		if id != session {
			session = id
			peak = start
			streak = 0
		}

		if value > peak {
			peak = value
		}
		if peak > overallPeak {
			overallPeak = peak
		}
		if peak > 0 {
			dd := (peak - value) / peak
			maxDD = math.Max(maxDD, dd)
		}

		if result == "loss" {
			streak++
			if streak > r.LongestLossStreak {
				r.LongestLossStreak = streak
			}
		} else {
			streak = 0
		}
	}
	r.PeakBalance = overallPeak
	r.MaxDrawdown = maxDD
	return rows.Err()
}
