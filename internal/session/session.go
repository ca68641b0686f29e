package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"hilofarm/internal/config"
	"hilofarm/internal/journal"
	"hilofarm/internal/strategy"
)

// ErrBusted is returned when the balance can no longer cover a bet.
var ErrBusted = errors.New("balance exhausted")

// Game is the table the session plays on. PlaceBet stakes amount; allIn is
// set when the stake is the whole balance so a browser driver can use the
// table's "All" control instead of typing the amount.
// A browser driver must use "All" only when allIn is set, never for large
// stakes that leave part of the balance on the table.
type Game interface {
	Balance(ctx context.Context) (float64, error)
	PlaceBet(ctx context.Context, amount float64, allIn bool) error
	AwaitRound(ctx context.Context) error
}

// Replenisher is implemented by games that hand out free balance between
// sessions. Collect returns the amount credited, not the new balance.
type Replenisher interface {
	Collect(ctx context.Context) (float64, error)
}

// TicketSource is implemented by games with a periodic ticket reward.
// ClaimTickets returns how many tickets were credited.
type TicketSource interface {
	ClaimTickets(ctx context.Context) (int, error)
}

// TicketCollector is polled once per round; it decides itself whether a
// claim is due.
type TicketCollector interface {
	CollectTickets(ctx context.Context) (bool, error)
}

// Recorder persists what happens during a session.
type Recorder interface {
	StartSession(ctx context.Context, id, strategyName string, baseBet, startBalance float64) error
	RecordRound(ctx context.Context, rd journal.Round) error
	RecordEvent(ctx context.Context, sessionID, eventType, details string) error
	EndSession(ctx context.Context, id string, endBalance float64, reason string) error
}

// Guard decides whether another round may be played at balance.
type Guard interface {
	Check(balance float64) error
}

// Stop reasons stored with the session.
const (
	StopBusted      = "busted"
	StopHalted      = "halted"
	StopMaxRounds   = "max_rounds"
	StopCanceled    = "canceled"
	StopPlaceFailed = "place_failed"
	StopError       = "error"
)

// Summary describes a finished session.
type Summary struct {
	ID           string
	Strategy     string
	Rounds       int
	Wins         int
	StartBalance float64
	EndBalance   float64
	PeakBalance  float64
	Reason       string
}

// Snapshot is a point-in-time view of a running session.
type Snapshot struct {
	ID         string    `json:"id"`
	Strategy   string    `json:"strategy"`
	Running    bool      `json:"running"`
	Rounds     int       `json:"rounds"`
	Wins       int       `json:"wins"`
	Balance    float64   `json:"balance"`
	CurrentBet float64   `json:"current_bet"`
	NextBet    float64   `json:"next_bet"`
	LastResult string    `json:"last_result,omitempty"`
	StartedAt  time.Time `json:"started_at"`
}

// Session owns one strategy instance and drives it one round at a time.
// The mutex only guards the observable state read by Snapshot; Run itself
// must not be called concurrently.
type Session struct {
	id       string
	game     Game
	strategy strategy.Strategy
	recorder Recorder
	guard    Guard
	tickets  TicketCollector
	cfg      config.BettingConfig

	mu         sync.Mutex
	running    bool
	rounds     int
	wins       int
	balance    float64
	peak       float64
	nextBet    float64
	lastResult strategy.Result
	startedAt  time.Time
}

// New creates a session. guard may be nil.
func New(game Game, strat strategy.Strategy, recorder Recorder, guard Guard, cfg config.BettingConfig) *Session {
	return &Session{
		id:       uuid.NewString(),
		game:     game,
		strategy: strat,
		recorder: recorder,
		guard:    guard,
		cfg:      cfg,
	}
}

// WithTicketCollector makes the session poll c before every bet.
func (s *Session) WithTicketCollector(c TicketCollector) *Session {
	s.tickets = c
	return s
}

func (s *Session) ID() string { return s.id }

// Snapshot is safe to call while Run is in progress.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:         s.id,
		Strategy:   s.strategy.Name(),
		Running:    s.running,
		Rounds:     s.rounds,
		Wins:       s.wins,
		Balance:    s.balance,
		CurrentBet: s.strategy.CurrentBet(),
		NextBet:    s.nextBet,
		StartedAt:  s.startedAt,
	}
	if s.lastResult != 0 {
		snap.LastResult = s.lastResult.String()
	}
	return snap
}

// Run plays rounds until the balance is gone, the guard halts play,
// MaxRounds is reached, placement keeps failing, or ctx is cancelled.
// A summary is returned in every case that got past the initial balance read.
func (s *Session) Run(ctx context.Context) (Summary, error) {
	balance, err := s.game.Balance(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("reading starting balance: %w", err)
	}

	s.mu.Lock()
	s.running = true
	s.balance = balance
	s.peak = balance
	s.startedAt = time.Now()
	s.mu.Unlock()

	sum := Summary{ID: s.id, Strategy: s.strategy.Name(), StartBalance: balance}

	if err := s.recorder.StartSession(ctx, s.id, sum.Strategy, s.cfg.BaseBet, balance); err != nil {
		slog.Warn("failed to record session start", "session", s.id, "error", err)
	}
	slog.Info("session starting", "session", s.id, "strategy", sum.Strategy, "balance", balance)

	reason, runErr := s.loop(ctx, balance)

	s.mu.Lock()
	s.running = false
	sum.Rounds = s.rounds
	sum.Wins = s.wins
	sum.EndBalance = s.balance
	sum.PeakBalance = s.peak
	s.mu.Unlock()
	sum.Reason = reason

	// The session row is closed even when ctx is already done.
	if err := s.recorder.EndSession(context.WithoutCancel(ctx), s.id, sum.EndBalance, reason); err != nil {
		slog.Warn("failed to record session end", "session", s.id, "error", err)
	}

	slog.Info("session finished",
		"session", s.id,
		"strategy", sum.Strategy,
		"reason", reason,
		"rounds", sum.Rounds,
		"wins", sum.Wins,
		"start_balance", sum.StartBalance,
		"end_balance", sum.EndBalance,
		"peak_balance", sum.PeakBalance,
	)
	return sum, runErr
}

func (s *Session) loop(ctx context.Context, balance float64) (string, error) {
	bet := s.cfg.BaseBet
	if balance <= bet {
		bet = balance
	}
	s.mu.Lock()
	s.nextBet = bet
	s.mu.Unlock()
	failures := 0

	for {
		if ctx.Err() != nil {
			return StopCanceled, ctx.Err()
		}
		if s.cfg.MaxRounds > 0 && s.rounds >= s.cfg.MaxRounds {
			return StopMaxRounds, nil
		}
		if balance <= 0 || bet <= 0 {
			return StopBusted, ErrBusted
		}
		if s.guard != nil {
			if err := s.guard.Check(balance); err != nil {
				return StopHalted, err
			}
		}

		if s.tickets != nil {
			if _, err := s.tickets.CollectTickets(ctx); err != nil {
				slog.Warn("ticket collection failed", "session", s.id, "error", err)
			}
		}

		// Resets to the base bet are not clamped by the strategies; the
		// table cannot take more than the balance, so stake what is left.
		stake := bet
		if stake > balance {
			slog.Warn("bet exceeds balance, staking balance", "session", s.id, "bet", bet, "balance", balance)
			stake = balance
		}
		allIn := stake == balance

		if err := s.game.PlaceBet(ctx, stake, allIn); err != nil {
			if ctx.Err() != nil {
				return StopCanceled, ctx.Err()
			}
			failures++
			slog.Warn("placing bet failed",
				"session", s.id,
				"stake", stake,
				"consecutive_failures", failures,
				"error", err,
			)
			s.event(ctx, "place_failed", err.Error())
			if failures >= s.cfg.MaxPlaceFailures {
				return StopPlaceFailed, fmt.Errorf("placing bet: %w", err)
			}
			continue
		}
		failures = 0

		if err := s.game.AwaitRound(ctx); err != nil {
			if ctx.Err() != nil {
				return StopCanceled, ctx.Err()
			}
			return StopError, fmt.Errorf("waiting for round: %w", err)
		}

		after, err := s.game.Balance(ctx)
		if err != nil {
			return StopError, fmt.Errorf("reading balance: %w", err)
		}

		next, err := s.step(ctx, stake, balance, after)
		if err != nil {
			return StopError, err
		}
		balance, bet = after, next
	}
}

// step feeds one resolved round to the strategy and journals it.
func (s *Session) step(ctx context.Context, stake, before, after float64) (float64, error) {
	result := strategy.Win
	if after < before {
		result = strategy.Loss
	}

	s.mu.Lock()
	next, err := s.strategy.RecordResult(result, stake, after)
	if err != nil {
		s.mu.Unlock()
		return 0, fmt.Errorf("recording result: %w", err)
	}
	if s.cfg.MaxBet > 0 && next > s.cfg.MaxBet {
		slog.Info("next bet above ceiling, falling back to base bet",
			"session", s.id, "next_bet", next, "ceiling", s.cfg.MaxBet)
		next = s.cfg.BaseBet
	}
	s.rounds++
	if result == strategy.Win {
		s.wins++
	}
	s.balance = after
	if after > s.peak {
		s.peak = after
	}
	s.lastResult = result
	s.nextBet = next
	roundNo := s.rounds
	s.mu.Unlock()

	slog.Debug("round resolved",
		"session", s.id,
		"round", roundNo,
		"stake", stake,
		"result", result.String(),
		"balance", after,
		"next_bet", next,
	)

	if err := s.recorder.RecordRound(ctx, journal.Round{
		SessionID:     s.id,
		No:            roundNo,
		Strategy:      s.strategy.Name(),
		Bet:           stake,
		Result:        result,
		BalanceBefore: before,
		BalanceAfter:  after,
		NextBet:       next,
	}); err != nil {
		slog.Warn("failed to record round", "session", s.id, "round", roundNo, "error", err)
	}
	return next, nil
}

func (s *Session) event(ctx context.Context, eventType, details string) {
	if err := s.recorder.RecordEvent(ctx, s.id, eventType, details); err != nil {
		slog.Warn("failed to record event", "session", s.id, "type", eventType, "error", err)
	}
}
