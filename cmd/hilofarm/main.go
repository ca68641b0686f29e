package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"hilofarm/internal/api"
	"hilofarm/internal/backtest"
	"hilofarm/internal/collector"
	"hilofarm/internal/config"
	"hilofarm/internal/db"
	"hilofarm/internal/game"
	"hilofarm/internal/journal"
	"hilofarm/internal/performance"
	"hilofarm/internal/risk"
	"hilofarm/internal/scheduler"
)

func main() {
	// Parse CLI flags.
	configPath := flag.String("config", "config.toml", "Path to the TOML config file")
	backtestMode := flag.Bool("backtest", false, "Replay recorded rounds through every strategy")
	backtestFrom := flag.String("from", "", "Backtest start date (YYYY-MM-DD)")
	backtestTo := flag.String("to", "", "Backtest end date (YYYY-MM-DD)")
	backtestBalance := flag.String("balance", "1000", "Starting balance for backtest replay, as shown by the table (e.g. \"1 234,50\")")
	rounds := flag.Int("rounds", -1, "Override betting.max_rounds (0 = until busted)")
	exportPath := flag.String("export", "", "Write the bet log as CSV to this path and exit")
	flag.Parse()

	if p := os.Getenv("HILO_CONFIG_PATH"); p != "" && !flagSet("config") {
		*configPath = p
	}

	// Bootstrap logger until the configured level is known.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *rounds >= 0 {
		cfg.Betting.MaxRounds = *rounds
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.General.LogLevel),
	})))
	slog.Info("hilofarm starting", "strategy", cfg.Betting.Strategy, "base_bet", cfg.Betting.BaseBet)

	// Initialize database.
	database, err := db.Open(cfg.General.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database initialized", "path", cfg.General.DBPath)

	rec := journal.NewRecorder(database)

	// Graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *exportPath != "" {
		if err := export(ctx, rec, *exportPath); err != nil {
			slog.Error("export failed", "error", err)
			os.Exit(1)
		}
		slog.Info("bet log exported", "path", *exportPath)
		return
	}

	// Backtest mode.
	if *backtestMode {
		balance, err := game.ParseBalance(*backtestBalance)
		if err != nil {
			slog.Error("invalid backtest balance", "error", err)
			os.Exit(1)
		}
		runner := backtest.NewRunner(database, cfg, balance)
		if _, err := runner.Run(ctx, *backtestFrom, *backtestTo); err != nil {
			slog.Error("backtest failed", "error", err)
			os.Exit(1)
		}
		return
	}

	sim := game.NewSimulator(cfg.Simulator)
	tracker := performance.NewTracker(database)
	reports := performance.NewReportCache(tracker, 30*time.Second)

	sched := scheduler.New(
		sim,
		collector.NewCollector(sim, sim, rec, cfg.Collector),
		rec,
		risk.NewManager(cfg.Risk),
		tracker,
		reports,
		cfg,
	)

	var apiDone chan error
	if cfg.Server.Enabled {
		apiDone = make(chan error, 1)
		router := api.NewRouter(api.NewHandler(sched, reports, rec), cfg.Server)
		go func() { apiDone <- api.Serve(ctx, cfg.Server.Addr, router) }()
	}

	if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("scheduler error", "error", err)
		os.Exit(1)
	}

	if apiDone != nil {
		// Keep serving the final state until interrupted.
		if err := <-apiDone; err != nil {
			slog.Error("status api error", "error", err)
		}
	}

	slog.Info("hilofarm stopped")
}

func export(ctx context.Context, rec *journal.Recorder, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := rec.ExportCSV(ctx, f, ""); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func flagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
