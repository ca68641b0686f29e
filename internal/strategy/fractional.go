package strategy

import (
	"math"

	"hilofarm/internal/config"
)

// Fractional wagers a fraction of the current balance, chosen by balance tier:
// a flat fraction below the small threshold, a fraction sliding linearly from
// MediumMaxFraction down to MediumFraction across the medium band, and a flat
// HighFraction at or above the medium threshold. The previous result and stake
// are ignored; compounding comes from the balance itself.
//
// This is a tiering heuristic, not a Kelly optimizer.
type Fractional struct {
	cfg        config.FractionalConfig
	minBet     float64
	currentBet float64
}

// NewFractional builds the strategy. baseBet is used as the minimum bet when
// cfg.MinBet is unset.
func NewFractional(baseBet float64, cfg config.FractionalConfig) *Fractional {
	minBet := baseBet
	if cfg.MinBet != nil {
		minBet = *cfg.MinBet
	}
	return &Fractional{
		cfg:        cfg,
		minBet:     minBet,
		currentBet: minBet,
	}
}

func (f *Fractional) Name() string        { return config.StrategyFractional }
func (f *Fractional) CurrentBet() float64 { return f.currentBet }

func (f *Fractional) RecordResult(result Result, placedBet, balanceAfter float64) (float64, error) {
	if err := validate(result, placedBet, balanceAfter); err != nil {
		return 0, err
	}
	b := balanceAfter
	f.currentBet = f.clampAndRound(b*f.Fraction(b), b)
	return f.currentBet, nil
}

// Fraction returns the share of balance b to wager, before clamping.
func (f *Fractional) Fraction(b float64) float64 {
	c := f.cfg
	switch {
	case b <= 0:
		return 0
	case b < c.SmallThreshold:
		return c.SmallFraction
	case b < c.MediumThreshold:
		t := (b - c.SmallThreshold) / (c.MediumThreshold - c.SmallThreshold)
		return c.MediumMaxFraction + (c.MediumFraction-c.MediumMaxFraction)*t
	default:
		return c.HighFraction
	}
}

// clampAndRound is the single choke point every tier goes through: cap to the
// balance and the optional max bet, lift to the min bet (or everything that is
// left when the balance is below it), then round to a whole amount.
func (f *Fractional) clampAndRound(amount, balance float64) float64 {
	if balance <= 0 {
		return 0
	}

	amount = math.Min(amount, balance)
	if f.cfg.MaxBet != nil {
		amount = math.Min(amount, *f.cfg.MaxBet)
	}

	if amount < f.minBet {
		if balance < f.minBet {
			amount = balance
		} else {
			amount = f.minBet
		}
	}

	bet := math.Round(amount)
	// Rounding a fractional balance up must not overshoot it.
	if bet > balance {
		bet = math.Floor(balance)
	}
	return bet
}
