package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"hilofarm/internal/config"
)

var (
	ErrInsufficientBalance = errors.New("bet exceeds balance")
	ErrNoBetPlaced         = errors.New("no bet placed")
)

// Simulator is a paper hi-lo table. A winning bet returns stake * payout,
// a losing one forfeits the stake. Balances are kept as decimals so long
// runs do not accumulate float drift.
type Simulator struct {
	mu      sync.Mutex
	rng     *rand.Rand
	winProb float64
	payout  decimal.Decimal
	refill  decimal.Decimal
	delay   time.Duration

	balance decimal.Decimal
	pending *decimal.Decimal
	rounds  int

	ticketsPerClaim int
	tickets         int
}

func NewSimulator(cfg config.SimulatorConfig) *Simulator {
	return &Simulator{
		rng:     rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		winProb: cfg.WinProbability,
		payout:  decimal.NewFromFloat(cfg.Payout),
		refill:  decimal.NewFromFloat(cfg.Refill),
		delay:   cfg.RoundDelay.Duration,
		balance: decimal.NewFromFloat(cfg.StartBalance),

		ticketsPerClaim: cfg.TicketsPerClaim,
	}
}

func (s *Simulator) Balance(_ context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance.InexactFloat64(), nil
}

// PlaceBet stakes amount, or the whole balance when allIn is set. The stake
// leaves the balance immediately, as it does on the real table.
func (s *Simulator) PlaceBet(_ context.Context, amount float64, allIn bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stake := decimal.NewFromFloat(amount)
	if allIn {
		stake = s.balance
	}
	if stake.IsNegative() || stake.IsZero() {
		return fmt.Errorf("stake %s must be positive", stake)
	}
	if stake.GreaterThan(s.balance) {
		return fmt.Errorf("stake %s, balance %s: %w", stake, s.balance, ErrInsufficientBalance)
	}
	s.balance = s.balance.Sub(stake)
	s.pending = &stake
	return nil
}

// AwaitRound resolves the pending bet.
func (s *Simulator) AwaitRound(ctx context.Context) error {
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.delay):
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return ErrNoBetPlaced
	}
	stake := *s.pending
	s.pending = nil
	s.rounds++

	won := s.rng.Float64() < s.winProb
	if won {
		s.balance = s.balance.Add(stake.Mul(s.payout))
	}
	slog.Debug("simulated round", "round", s.rounds, "stake", stake.String(), "won", won, "balance", s.balance.String())
	return nil
}

// Collect tops the balance up by the configured refill, like claiming the
// site's free coins between sessions, and returns the amount credited.
func (s *Simulator) Collect(_ context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balance = s.balance.Add(s.refill)
	return s.refill.InexactFloat64(), nil
}

// ClaimTickets credits the configured tickets per claim. Tickets are a
// separate reward and never touch the balance.
func (s *Simulator) ClaimTickets(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets += s.ticketsPerClaim
	return s.ticketsPerClaim, nil
}

// Tickets is the number of tickets claimed so far.
func (s *Simulator) Tickets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tickets
}
