package risk

import (
	"errors"
	"fmt"
	"log/slog"

	"hilofarm/internal/config"
)

// ErrHalted is returned by Check when a bankroll rule stops play.
var ErrHalted = errors.New("play halted")

// Manager enforces bankroll limits around a betting session. It never sizes
// bets; that is the strategy's job. A zero limit disables its rule.
type Manager struct {
	cfg         config.RiskConfig
	peakBalance float64
}

func NewManager(cfg config.RiskConfig) *Manager {
	return &Manager{cfg: cfg}
}

// Check records balance and reports whether another round may be played.
func (m *Manager) Check(balance float64) error {
	if balance <= 0 {
		return fmt.Errorf("no balance: %w", ErrHalted)
	}

	if balance > m.peakBalance {
		m.peakBalance = balance
	}

	if m.cfg.TargetBalance > 0 && balance >= m.cfg.TargetBalance {
		slog.Info("target balance reached", "balance", balance, "target", m.cfg.TargetBalance)
		return fmt.Errorf("target balance %v reached: %w", m.cfg.TargetBalance, ErrHalted)
	}

	if m.cfg.StopBalance > 0 && balance <= m.cfg.StopBalance {
		slog.Warn("stop balance reached", "balance", balance, "stop", m.cfg.StopBalance)
		return fmt.Errorf("stop balance %v reached: %w", m.cfg.StopBalance, ErrHalted)
	}

	if m.cfg.MaxDrawdownPct > 0 && m.peakBalance > 0 {
		drawdown := (m.peakBalance - balance) / m.peakBalance
		if drawdown >= m.cfg.MaxDrawdownPct {
			slog.Warn("max drawdown exceeded",
				"drawdown", drawdown,
				"limit", m.cfg.MaxDrawdownPct,
				"peak", m.peakBalance,
			)
			return fmt.Errorf("drawdown %.2f exceeds %.2f: %w", drawdown, m.cfg.MaxDrawdownPct, ErrHalted)
		}
	}

	return nil
}

// PeakBalance is the highest balance seen by Check.
func (m *Manager) PeakBalance() float64 {
	return m.peakBalance
}

// Reset forgets the peak, for a fresh session.
func (m *Manager) Reset() {
	m.peakBalance = 0
}
