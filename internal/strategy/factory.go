package strategy

import "hilofarm/internal/config"

// New builds the strategy named by cfg.Betting.Strategy. Unknown or empty
// names fall back to Paroli.
func New(cfg *config.Config) Strategy {
	return FromName(cfg.Betting.Strategy, cfg.Betting.BaseBet, cfg.Strategy)
}

// FromName builds one configured strategy. baseBet is the base stake for the
// progressions and the fallback minimum bet for Fractional. Zero-valued
// parameters take their documented defaults, each one independently.
func FromName(name string, baseBet float64, cfg config.StrategyConfig) Strategy {
	cfg = withDefaults(cfg)

	n, _ := config.NormalizeStrategyName(name)
	switch n {
	case config.StrategyMartingale:
		return NewMartingale(baseBet, cfg.Martingale)
	case config.StrategyFractional:
		return NewFractional(baseBet, cfg.Fractional)
	default:
		return NewParoli(baseBet, cfg.Paroli)
	}
}

// Names lists every strategy the factory can build.
func Names() []string {
	return []string{config.StrategyMartingale, config.StrategyParoli, config.StrategyFractional}
}

func withDefaults(cfg config.StrategyConfig) config.StrategyConfig {
	if cfg.Martingale.Multiplier == 0 {
		cfg.Martingale.Multiplier = 2
	}
	if cfg.Paroli.Multiplier == 0 {
		cfg.Paroli.Multiplier = 2
	}
	if cfg.Paroli.TargetStreak == 0 {
		cfg.Paroli.TargetStreak = 3
	}

	f := &cfg.Fractional
	def := config.DefaultFractional()
	if f.SmallThreshold == 0 {
		f.SmallThreshold = def.SmallThreshold
	}
	if f.MediumThreshold == 0 {
		f.MediumThreshold = def.MediumThreshold
	}
	if f.SmallFraction == 0 {
		f.SmallFraction = def.SmallFraction
	}
	if f.MediumFraction == 0 {
		f.MediumFraction = def.MediumFraction
	}
	if f.MediumMaxFraction == 0 {
		f.MediumMaxFraction = def.MediumMaxFraction
	}
	if f.HighFraction == 0 {
		f.HighFraction = def.HighFraction
	}
	return cfg
}
