package backtest

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"hilofarm/internal/config"
	"hilofarm/internal/journal"
	"hilofarm/internal/strategy"
)

const dateLayout = "2006-01-02"

// Runner replays recorded win/loss sequences through every strategy to
// compare how each would have sized the same rounds.
type Runner struct {
	db           *sql.DB
	betting      config.BettingConfig
	strategyCfg  config.StrategyConfig
	startBalance float64
	payout       float64
}

func NewRunner(db *sql.DB, cfg *config.Config, startBalance float64) *Runner {
	return &Runner{
		db:           db,
		betting:      cfg.Betting,
		strategyCfg:  cfg.Strategy,
		startBalance: startBalance,
		payout:       cfg.Simulator.Payout,
	}
}

// Result is one strategy's outcome over a replayed sequence.
type Result struct {
	Strategy     string
	Rounds       int
	Wins         int
	FinalBalance float64
	PeakBalance  float64
	MaxDrawdown  float64
	Busted       bool
}

// Run executes the backtest over the given date range. Both dates are
// inclusive; empty strings default to the last year.
func (r *Runner) Run(ctx context.Context, fromStr, toStr string) ([]Result, error) {
	from, to, err := parseDateRange(fromStr, toStr)
	if err != nil {
		return nil, err
	}

	slog.Info("backtest starting", "from", from.Format(dateLayout), "to", to.Format(dateLayout), "balance", r.startBalance)

	outcomes, err := r.loadOutcomes(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("loading outcomes: %w", err)
	}
	if len(outcomes) == 0 {
		return nil, fmt.Errorf("no rounds found in range %s to %s", from.Format(dateLayout), to.Format(dateLayout))
	}

	slog.Info("loaded outcomes", "count", len(outcomes))

	results := make([]Result, 0, len(strategy.Names()))
	for _, name := range strategy.Names() {
		strat := strategy.FromName(name, r.betting.BaseBet, r.strategyCfg)
		res := Replay(strat, outcomes, r.startBalance, r.payout, r.betting)
		results = append(results, res)

		slog.Info("=== BACKTEST RESULTS ===",
			"period", fmt.Sprintf("%s to %s", from.Format(dateLayout), to.Format(dateLayout)),
			"strategy", res.Strategy,
			"rounds_played", res.Rounds,
			"rounds_available", len(outcomes),
			"wins", res.Wins,
			"starting_balance", r.startBalance,
			"final_balance", res.FinalBalance,
			"peak_balance", res.PeakBalance,
			"max_drawdown", res.MaxDrawdown,
			"busted", res.Busted,
		)
	}
	return results, nil
}

// Replay plays outcomes in order against a paper balance, sizing each stake
// the way a live session does: the first stake is the base bet capped to the
// balance, stakes never exceed the balance, and next bets above the ceiling
// fall back to the base bet.
func Replay(strat strategy.Strategy, outcomes []strategy.Result, startBalance, payout float64, betting config.BettingConfig) Result {
	res := Result{Strategy: strat.Name(), PeakBalance: startBalance}

	balance := decimal.NewFromFloat(startBalance)
	mult := decimal.NewFromFloat(payout)
	bet := betting.BaseBet
	if startBalance <= bet {
		bet = startBalance
	}

	for _, outcome := range outcomes {
		if !balance.IsPositive() || bet <= 0 {
			break
		}
		stake := decimal.NewFromFloat(bet)
		if stake.GreaterThan(balance) {
			stake = balance
		}

		balance = balance.Sub(stake)
		if outcome == strategy.Win {
			balance = balance.Add(stake.Mul(mult))
			res.Wins++
		}
		res.Rounds++

		after := balance.InexactFloat64()
		if after > res.PeakBalance {
			res.PeakBalance = after
		}
		if res.PeakBalance > 0 {
			if dd := (res.PeakBalance - after) / res.PeakBalance; dd > res.MaxDrawdown {
				res.MaxDrawdown = dd
			}
		}

		next, err := strat.RecordResult(outcome, stake.InexactFloat64(), after)
		if err != nil {
			slog.Warn("strategy rejected replayed round", "strategy", res.Strategy, "round", res.Rounds, "error", err)
			break
		}
		if betting.MaxBet > 0 && next > betting.MaxBet {
			next = betting.BaseBet
		}
		bet = next
	}

	res.FinalBalance = balance.InexactFloat64()
	res.Busted = !balance.IsPositive()
	return res
}

func parseDateRange(fromStr, toStr string) (time.Time, time.Time, error) {
	var from, to time.Time

	if fromStr == "" {
		from = time.Now().UTC().AddDate(-1, 0, 0) // Default: 1 year ago.
	} else {
		var err error
		from, err = time.Parse(dateLayout, fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parsing from date: %w", err)
		}
	}

	if toStr == "" {
		to = time.Now().UTC()
	} else {
		var err error
		to, err = time.Parse(dateLayout, toStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parsing to date: %w", err)
		}
	}

	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("to date %s is before from date %s", to.Format(dateLayout), from.Format(dateLayout))
	}
	return from, to, nil
}

func (r *Runner) loadOutcomes(ctx context.Context, from, to time.Time) ([]strategy.Result, error) {
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)

	rows, err := r.db.QueryContext(ctx, `
		SELECT result FROM rounds
		WHERE played_at >= ? AND played_at < ?
		ORDER BY played_at, id`,
		start.Format(journal.TimeLayout),
		end.Format(journal.TimeLayout),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []strategy.Result
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		res, err := strategy.ParseResult(s)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, res)
	}
	return outcomes, rows.Err()
}
