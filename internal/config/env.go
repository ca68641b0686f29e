package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadEnvFile reads KEY=VALUE pairs from path into the process environment.
// Variables that are already set win. A missing file is ignored.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides cfg with the recognised environment variables.
// Unparsable values leave the current setting in place.
func ApplyEnv(cfg *Config) {
	if v, ok := lookup("BET_STRATEGY"); ok {
		cfg.Betting.Strategy = v
	}
	envFloat("BASE_BET", &cfg.Betting.BaseBet)
	if v, ok := lookup("HILO_DB_PATH"); ok {
		cfg.General.DBPath = v
	}
	if v, ok := lookup("HILO_LOG_LEVEL"); ok {
		cfg.General.LogLevel = v
	}

	envFloat("MARTINGALE_MULTIPLIER", &cfg.Strategy.Martingale.Multiplier)
	envFloat("PAROLI_MULTIPLIER", &cfg.Strategy.Paroli.Multiplier)
	envInt("PAROLI_TARGET_STREAK", &cfg.Strategy.Paroli.TargetStreak)

	f := &cfg.Strategy.Fractional
	envOptionalFloat("FRACTIONAL_MIN_BET", &f.MinBet)
	envOptionalFloat("FRACTIONAL_MAX_BET", &f.MaxBet)
	envFloat("FRACTIONAL_SMALL_THRESHOLD", &f.SmallThreshold)
	envFloat("FRACTIONAL_MEDIUM_THRESHOLD", &f.MediumThreshold)
	envFloat("FRACTIONAL_SMALL_FRACTION", &f.SmallFraction)
	envFloat("FRACTIONAL_MEDIUM_FRACTION", &f.MediumFraction)
	envFloat("FRACTIONAL_MEDIUM_MAX_FRACTION", &f.MediumMaxFraction)
	envFloat("FRACTIONAL_HIGH_FRACTION", &f.HighFraction)
}

// lookup treats empty variables as unset.
func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func envFloat(key string, dst *float64) {
	raw, ok := lookup(key)
	if !ok {
		return
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		slog.Warn("ignoring malformed env value", "key", key, "value", raw)
		return
	}
	*dst = v
}

func envOptionalFloat(key string, dst **float64) {
	raw, ok := lookup(key)
	if !ok {
		return
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		slog.Warn("ignoring malformed env value", "key", key, "value", raw)
		return
	}
	*dst = &v
}

// envInt accepts "3" as well as "3.0"; float literals are truncated.
func envInt(key string, dst *int) {
	raw, ok := lookup(key)
	if !ok {
		return
	}
	if v, err := strconv.Atoi(raw); err == nil {
		*dst = v
		return
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		slog.Warn("ignoring malformed env value", "key", key, "value", raw)
		return
	}
	*dst = int(v)
}
