package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alejandrodnm/swarmbot/config"
	"github.com/alejandrodnm/swarmbot/internal/adapters/marketdata"
	"github.com/alejandrodnm/swarmbot/internal/adapters/notify"
	"github.com/alejandrodnm/swarmbot/internal/adapters/sink"
	"github.com/alejandrodnm/swarmbot/internal/adapters/storage"
	"github.com/alejandrodnm/swarmbot/internal/application/engine"
	"github.com/alejandrodnm/swarmbot/internal/application/ledger"
	"github.com/alejandrodnm/swarmbot/internal/application/node"
	"github.com/alejandrodnm/swarmbot/internal/domain"
	"github.com/alejandrodnm/swarmbot/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one cycle and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print full execution + node tables (default: compact 1-line)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("swarmbot starting",
		"config", *configPath,
		"interval", cfg.CycleInterval(),
		"once", *once,
		"genesis", cfg.Network.GenesisCapital,
	)

	growthLog, err := sink.NewGrowthFile(filepath.Join(cfg.Network.DataDir, "growth"))
	if err != nil {
		slog.Error("failed to open growth log", "err", err)
		os.Exit(1)
	}
	reserveLog, err := sink.NewReserveFile(filepath.Join(cfg.Network.DataDir, "reserve_ledger.jsonl"))
	if err != nil {
		slog.Error("failed to open reserve ledger", "err", err)
		os.Exit(1)
	}
	reports, err := sink.NewReportFile(cfg.Network.DataDir)
	if err != nil {
		slog.Error("failed to open report dir", "err", err)
		os.Exit(1)
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	reserve := ledger.NewReserve(cfg.Network.ReserveStart, reserveLog)
	ldg := ledger.New(limitsFrom(cfg.Limits), cfg.Network.GenesisCapital, reserve, growthLog)

	markets := map[domain.Specialty]ports.MarketProvider{
		domain.SpecialtyCrypto: marketdata.NewCoinGecko(cfg.API.CoinGeckoBase),
		domain.SpecialtyStock:  marketdata.NewStockQuotes(),
	}
	profiles := map[domain.Specialty]node.Profile{
		domain.SpecialtyCrypto: profileFrom(cfg.Nodes.Crypto),
		domain.SpecialtyStock:  profileFrom(cfg.Nodes.Stock),
	}

	notifier := notify.NewConsole(*table)

	engCfg := engine.DefaultConfig()
	engCfg.Interval = cfg.CycleInterval()
	engCfg.SeedNodeCapital = cfg.Network.SeedNodeCapital
	engCfg.SpawnThreshold = cfg.Network.SpawnThreshold
	engCfg.SpawnCapitalCap = cfg.Network.SpawnCapitalCap

	eng := engine.New(engCfg, ldg, markets, profiles, notifier, store, reports)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *once {
		runOnce(ctx, eng, cfg)
		return
	}

	if err := eng.Run(ctx); err != nil {
		slog.Error("engine exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("swarmbot stopped cleanly")
}

// runOnce arranca los nodos semilla y ejecuta exactamente un ciclo.
func runOnce(ctx context.Context, eng *engine.Engine, cfg *config.Config) {
	eng.SpawnNode(domain.SpecialtyCrypto, cfg.Network.SeedNodeCapital)
	eng.SpawnNode(domain.SpecialtyStock, cfg.Network.SeedNodeCapital)

	report, err := eng.RunCycle(ctx)
	if err != nil {
		slog.Error("cycle failed", "err", err)
		os.Exit(1)
	}
	slog.Info("cycle complete",
		"insights", len(report.Insights),
		"executed", report.ExecutedCount(),
		"network_capital", report.Status.NetworkCapital,
	)
}

func limitsFrom(c config.LimitsConfig) ledger.Limits {
	return ledger.Limits{
		MaxDailyLossPercent:     c.MaxDailyLossPercent,
		MaxNodeCapitalPercent:   c.MaxNodeCapitalPercent,
		ReservePercent:          c.ReservePercent,
		MinProfitToSpawn:        c.MinProfitToSpawn,
		MaxNodesWithoutApproval: c.MaxNodesWithoutApproval,
		CompoundPercent:         c.CompoundPercent,
		DistributionPercent:     c.DistributionPercent,
	}
}

func profileFrom(c config.NodeProfileConfig) node.Profile {
	return node.Profile{
		TradeFraction: c.TradeFraction,
		MaxTradeUSD:   c.MaxTradeUSD,
		WinReturn:     c.WinReturn,
		LossReturn:    c.LossReturn,
		MinConfidence: c.MinConfidence,
		Watchlist:     c.Watchlist,
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
