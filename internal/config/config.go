package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Strategy names understood by the factory.
const (
	StrategyMartingale = "martingale"
	StrategyParoli     = "paroli"
	StrategyFractional = "fractional"
)

type Config struct {
	General   GeneralConfig   `toml:"general"`
	Betting   BettingConfig   `toml:"betting"`
	Strategy  StrategyConfig  `toml:"strategy"`
	Risk      RiskConfig      `toml:"risk"`
	Simulator SimulatorConfig `toml:"simulator"`
	Schedule  ScheduleConfig  `toml:"schedule"`
	Collector CollectorConfig `toml:"collector"`
	Server    ServerConfig    `toml:"server"`
}

type GeneralConfig struct {
	DBPath   string `toml:"db_path"`
	LogLevel string `toml:"log_level"`
	EnvFile  string `toml:"env_file"`
}

type BettingConfig struct {
	Strategy         string  `toml:"strategy"`
	BaseBet          float64 `toml:"base_bet"`
	MaxBet           float64 `toml:"max_bet"`            // next bets above this fall back to base_bet; 0 = no ceiling
	MaxRounds        int     `toml:"max_rounds"`         // 0 = until busted
	MaxPlaceFailures int     `toml:"max_place_failures"` // consecutive placement failures before giving up
}

type StrategyConfig struct {
	Martingale MartingaleConfig `toml:"martingale"`
	Paroli     ParoliConfig     `toml:"paroli"`
	Fractional FractionalConfig `toml:"fractional"`
}

type MartingaleConfig struct {
	Multiplier float64 `toml:"multiplier"`
}

type ParoliConfig struct {
	Multiplier   float64 `toml:"multiplier"`
	TargetStreak int     `toml:"target_streak"`
}

// FractionalConfig holds the tier parameters. MinBet and MaxBet are optional:
// a nil MinBet falls back to the base bet, a nil MaxBet means no cap.
type FractionalConfig struct {
	MinBet            *float64 `toml:"min_bet"`
	MaxBet            *float64 `toml:"max_bet"`
	SmallThreshold    float64  `toml:"small_threshold"`
	MediumThreshold   float64  `toml:"medium_threshold"`
	SmallFraction     float64  `toml:"small_fraction"`
	MediumFraction    float64  `toml:"medium_fraction"`
	MediumMaxFraction float64  `toml:"medium_max_fraction"`
	HighFraction      float64  `toml:"high_fraction"`
}

type RiskConfig struct {
	MaxDrawdownPct float64 `toml:"max_drawdown_pct"`
	StopBalance    float64 `toml:"stop_balance"`
	TargetBalance  float64 `toml:"target_balance"`
}

type SimulatorConfig struct {
	StartBalance    float64  `toml:"start_balance"`
	WinProbability  float64  `toml:"win_probability"`
	Payout          float64  `toml:"payout"`
	Refill          float64  `toml:"refill"`
	Seed            uint64   `toml:"seed"`
	RoundDelay      Duration `toml:"round_delay"`
	TicketsPerClaim int      `toml:"tickets_per_claim"`
}

type ScheduleConfig struct {
	Cooldown            Duration `toml:"cooldown"`
	PerformanceInterval Duration `toml:"performance_interval"`
	MaxSessions         int      `toml:"max_sessions"` // 0 = unlimited
}

type CollectorConfig struct {
	TicketInterval Duration `toml:"ticket_interval"` // minimum gap between ticket claims; 0 = never claim
}

type ServerConfig struct {
	Enabled        bool     `toml:"enabled"`
	Addr           string   `toml:"addr"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// Duration wraps time.Duration for TOML unmarshaling.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// Load builds the configuration in layers: defaults, the TOML file at path
// (skipped when absent), the .env file, then process environment variables.
// The result is validated before it is returned.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Info("config file not found, using defaults", "path", path)
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	if err := LoadEnvFile(cfg.General.EnvFile); err != nil {
		return nil, err
	}
	ApplyEnv(cfg)
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		General: GeneralConfig{
			DBPath:   "./data/hilofarm.db",
			LogLevel: "info",
			EnvFile:  ".env",
		},
		Betting: BettingConfig{
			Strategy:         StrategyParoli,
			BaseBet:          25,
			MaxBet:           500,
			MaxPlaceFailures: 3,
		},
		Strategy: StrategyConfig{
			Martingale: MartingaleConfig{Multiplier: 2},
			Paroli:     ParoliConfig{Multiplier: 2, TargetStreak: 3},
			Fractional: DefaultFractional(),
		},
		Simulator: SimulatorConfig{
			StartBalance:    1000,
			WinProbability:  0.5,
			Payout:          2,
			Refill:          1000,
			Seed:            1,
			TicketsPerClaim: 1,
		},
		Schedule: ScheduleConfig{
			Cooldown:            Duration{time.Second},
			PerformanceInterval: Duration{time.Hour},
		},
		Collector: CollectorConfig{
			TicketInterval: Duration{time.Hour},
		},
		Server: ServerConfig{
			Addr:           ":8090",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
	}
}

// DefaultFractional returns the fractional tiers used when nothing is configured.
func DefaultFractional() FractionalConfig {
	return FractionalConfig{
		SmallThreshold:    500,
		MediumThreshold:   5000,
		SmallFraction:     1.0,
		MediumFraction:    0.5,
		MediumMaxFraction: 0.75,
		HighFraction:      0.25,
	}
}

// NormalizeStrategyName lowercases name and maps unknown or empty names to Paroli.
func NormalizeStrategyName(name string) (string, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case StrategyMartingale, StrategyParoli, StrategyFractional:
		return n, true
	}
	return StrategyParoli, false
}

func (c *Config) normalize() {
	name, known := NormalizeStrategyName(c.Betting.Strategy)
	if !known && c.Betting.Strategy != "" {
		slog.Warn("unknown strategy, falling back to paroli", "strategy", c.Betting.Strategy)
	}
	c.Betting.Strategy = name
}

// Validate checks every numeric parameter once, at startup.
func (c *Config) Validate() error {
	b := c.Betting
	if b.BaseBet <= 0 {
		return fmt.Errorf("betting.base_bet must be positive, got %v", b.BaseBet)
	}
	if b.MaxBet < 0 {
		return fmt.Errorf("betting.max_bet must not be negative, got %v", b.MaxBet)
	}
	if b.MaxPlaceFailures < 1 {
		return fmt.Errorf("betting.max_place_failures must be at least 1, got %d", b.MaxPlaceFailures)
	}
	if b.MaxRounds < 0 {
		return fmt.Errorf("betting.max_rounds must not be negative, got %d", b.MaxRounds)
	}

	s := c.Strategy
	if s.Martingale.Multiplier <= 0 {
		return fmt.Errorf("strategy.martingale.multiplier must be positive, got %v", s.Martingale.Multiplier)
	}
	if s.Paroli.Multiplier <= 0 {
		return fmt.Errorf("strategy.paroli.multiplier must be positive, got %v", s.Paroli.Multiplier)
	}
	if s.Paroli.TargetStreak < 1 {
		return fmt.Errorf("strategy.paroli.target_streak must be at least 1, got %d", s.Paroli.TargetStreak)
	}
	if err := s.Fractional.Validate(); err != nil {
		return fmt.Errorf("strategy.fractional: %w", err)
	}

	r := c.Risk
	if r.MaxDrawdownPct < 0 || r.MaxDrawdownPct > 1 {
		return fmt.Errorf("risk.max_drawdown_pct must be within [0, 1], got %v", r.MaxDrawdownPct)
	}
	if r.StopBalance < 0 || r.TargetBalance < 0 {
		return fmt.Errorf("risk.stop_balance and risk.target_balance must not be negative")
	}

	sim := c.Simulator
	if sim.WinProbability < 0 || sim.WinProbability > 1 {
		return fmt.Errorf("simulator.win_probability must be within [0, 1], got %v", sim.WinProbability)
	}
	if sim.Payout <= 1 {
		return fmt.Errorf("simulator.payout must be greater than 1, got %v", sim.Payout)
	}
	if sim.StartBalance < 0 || sim.Refill < 0 {
		return fmt.Errorf("simulator balances must not be negative")
	}
	if sim.TicketsPerClaim < 0 {
		return fmt.Errorf("simulator.tickets_per_claim must not be negative, got %d", sim.TicketsPerClaim)
	}
	if c.Collector.TicketInterval.Duration < 0 {
		return fmt.Errorf("collector.ticket_interval must not be negative, got %v", c.Collector.TicketInterval.Duration)
	}
	return nil
}

func (f FractionalConfig) Validate() error {
	if f.MinBet != nil && *f.MinBet < 0 {
		return fmt.Errorf("min_bet must not be negative, got %v", *f.MinBet)
	}
	if f.MaxBet != nil && *f.MaxBet <= 0 {
		return fmt.Errorf("max_bet must be positive when set, got %v", *f.MaxBet)
	}
	if f.SmallThreshold <= 0 || f.MediumThreshold <= f.SmallThreshold {
		return fmt.Errorf("thresholds must satisfy 0 < small (%v) < medium (%v)", f.SmallThreshold, f.MediumThreshold)
	}
	fractions := map[string]float64{
		"small_fraction":      f.SmallFraction,
		"medium_fraction":     f.MediumFraction,
		"medium_max_fraction": f.MediumMaxFraction,
		"high_fraction":       f.HighFraction,
	}
	for name, v := range fractions {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be within [0, 1], got %v", name, v)
		}
	}
	return nil
}
