package strategy

import "hilofarm/internal/config"

// Paroli is a positive progression: the stake grows after each win until
// TargetStreak consecutive wins, then profits are banked by resetting to the
// base bet. Any loss resets.
type Paroli struct {
	baseBet      float64
	multiplier   float64
	targetStreak int

	winStreak  int
	currentBet float64
}

func NewParoli(baseBet float64, cfg config.ParoliConfig) *Paroli {
	return &Paroli{
		baseBet:      baseBet,
		multiplier:   cfg.Multiplier,
		targetStreak: cfg.TargetStreak,
		currentBet:   baseBet,
	}
}

func (p *Paroli) Name() string        { return config.StrategyParoli }
func (p *Paroli) CurrentBet() float64 { return p.currentBet }
func (p *Paroli) WinStreak() int      { return p.winStreak }

func (p *Paroli) RecordResult(result Result, placedBet, balanceAfter float64) (float64, error) {
	if err := validate(result, placedBet, balanceAfter); err != nil {
		return 0, err
	}

	if result == Loss {
		// Not clamped to the balance, same as Martingale's win branch.
		p.winStreak = 0
		p.currentBet = p.reset(balanceAfter)
		return p.currentBet, nil
	}

	p.winStreak++
	if p.winStreak >= p.targetStreak {
		p.winStreak = 0
		p.currentBet = p.reset(balanceAfter)
		return p.currentBet, nil
	}

	bet, capped := allIn(placedBet*p.multiplier, balanceAfter)
	if capped && balanceAfter == 0 {
		p.winStreak = 0
	}
	p.currentBet = bet
	return p.currentBet, nil
}

func (p *Paroli) reset(balance float64) float64 {
	if balance == 0 {
		return 0
	}
	return p.baseBet
}
