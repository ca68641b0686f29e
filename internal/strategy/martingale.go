package strategy

import "hilofarm/internal/config"

// Martingale is a negative progression: the stake is multiplied after every
// loss to recover it, and reset to the base bet after a win.
type Martingale struct {
	baseBet    float64
	multiplier float64
	currentBet float64
}

func NewMartingale(baseBet float64, cfg config.MartingaleConfig) *Martingale {
	return &Martingale{
		baseBet:    baseBet,
		multiplier: cfg.Multiplier,
		currentBet: baseBet,
	}
}

func (m *Martingale) Name() string        { return config.StrategyMartingale }
func (m *Martingale) CurrentBet() float64 { return m.currentBet }

func (m *Martingale) RecordResult(result Result, placedBet, balanceAfter float64) (float64, error) {
	if err := validate(result, placedBet, balanceAfter); err != nil {
		return 0, err
	}

	if result == Loss {
		m.currentBet, _ = allIn(placedBet*m.multiplier, balanceAfter)
		return m.currentBet, nil
	}

	// The win branch is not clamped to the balance; only an empty one stops it.
	m.currentBet = m.baseBet
	if balanceAfter == 0 {
		m.currentBet = 0
	}
	return m.currentBet, nil
}
