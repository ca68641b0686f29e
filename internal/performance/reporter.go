package performance

import (
	"log/slog"
)

// LogReport logs the performance report as structured JSON.
func LogReport(r *Report) {
	slog.Info("=== PERFORMANCE REPORT ===",
		"sessions", r.Sessions,
		"busted_sessions", r.BustedSessions,
		"total_rounds", r.TotalRounds,
		"wins", r.Wins,
		"losses", r.Losses,
		"win_rate", r.WinRate,
		"total_wagered", r.TotalWagered,
		"total_pnl", r.TotalPnL,
		"roi", r.ROI,
		"peak_balance", r.PeakBalance,
		"max_drawdown", r.MaxDrawdown,
		"longest_loss_streak", r.LongestLossStreak,
	)

	for name, stats := range r.StrategyStats {
		slog.Info("strategy performance",
			"strategy", name,
			"rounds", stats.Rounds,
			"wagered", stats.Wagered,
			"pnl", stats.PnL,
			"roi", stats.ROI,
			"win_rate", stats.WinRate,
			"max_bet", stats.MaxBet,
		)
	}
}
