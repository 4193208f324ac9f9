package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mwagner-dev/wheelengine/config"
	"github.com/mwagner-dev/wheelengine/internal/adapters/alpaca"
	"github.com/mwagner-dev/wheelengine/internal/adapters/notify"
	"github.com/mwagner-dev/wheelengine/internal/adapters/paper"
	"github.com/mwagner-dev/wheelengine/internal/adapters/storage"
	"github.com/mwagner-dev/wheelengine/internal/domain"
	"github.com/mwagner-dev/wheelengine/internal/executor"
	"github.com/mwagner-dev/wheelengine/internal/gaprisk"
	"github.com/mwagner-dev/wheelengine/internal/httpapi"
	"github.com/mwagner-dev/wheelengine/internal/pipeline"
	"github.com/mwagner-dev/wheelengine/internal/ports"
	"github.com/mwagner-dev/wheelengine/internal/store"

	"github.com/shopspring/decimal"
)

const gapLookback = 90 * 24 * time.Hour

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	table := flag.Bool("table", false, "print a table of opportunities on /scan")
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

	slog.Info("wheelengine starting",
		"config", *configPath,
		"broker", cfg.Broker.Kind,
		"universe_size", len(cfg.Strategy.Universe),
	)

	broker := mustBroker(cfg.Broker)

	opportunityStore, err := store.Open(cfg.Storage.BlobDir, cfg.Storage.IndexPath, cfg.Strategy.OpportunityMaxAge())
	if err != nil {
		slog.Error("failed to open opportunity store", "err", err)
		os.Exit(1)
	}
	defer opportunityStore.Close()

	cycleStore, err := storage.OpenCycleStore(cfg.Storage.CycleLogPath)
	if err != nil {
		slog.Error("failed to open cycle history store", "err", err)
		os.Exit(1)
	}
	defer cycleStore.Close()

	breakerStore, err := storage.OpenCircuitBreakerStore(cfg.Storage.BreakerStatePath)
	if err != nil {
		slog.Error("failed to open circuit breaker store", "err", err)
		os.Exit(1)
	}
	defer breakerStore.Close()

	clock := ports.SystemClock{}

	breaker, err := breakerStore.Load(context.Background())
	if err != nil {
		slog.Warn("failed to load persisted circuit breaker state, starting closed", "err", err)
		breaker = domain.CircuitBreaker{}
	}
	breaker.MaxFailures = cfg.Strategy.CircuitBreakerMaxFailures
	breaker.CooldownDuration = time.Duration(cfg.Strategy.CircuitBreakerCooldownMins) * time.Minute

	gapFilter := gaprisk.New(broker, clock, gapLookback)
	engine := pipeline.NewEngine(broker, gapFilter, clock)
	x := executor.New(broker, clock, &breaker, cfg.Strategy.SlippageFactor, cfg.Strategy.ProfitTargetPercent)

	universe := httpapi.NewBrokerUniverse(broker, clock, gapLookback, 0)
	notifier := notify.NewConsole(*table)

	pipelineCfg := cfg.Strategy.ToPipelineConfig()

	server := httpapi.New(engine, x, opportunityStore, notifier, broker, clock, universe, pipelineCfg)
	server.OnCycle(func(ctx context.Context, c domain.CycleSummary) {
		if err := cycleStore.SaveCycle(ctx, c); err != nil {
			slog.Warn("failed to persist cycle summary", "err", err)
		}
	})
	server.OnBreakerChange(func(ctx context.Context, cb domain.CircuitBreaker) {
		if err := breakerStore.Save(ctx, cb); err != nil {
			slog.Warn("failed to persist circuit breaker state", "err", err)
		}
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server.Routes(cfg.Server.Timeout()),
		ReadTimeout:  cfg.Server.Timeout(),
		WriteTimeout: cfg.Server.Timeout() + 5*time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		slog.Info("wheelengine shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	slog.Info("wheelengine listening", "addr", cfg.Server.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("wheelengine exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("wheelengine stopped cleanly")
}

func mustBroker(cfg config.BrokerConfig) ports.Broker {
	switch cfg.Kind {
	case "alpaca":
		return alpaca.New(alpaca.Config{
			APIKey:       cfg.APIKey,
			APISecret:    cfg.APISecret,
			Paper:        cfg.Paper,
			RateLimitRPS: cfg.RateLimitRPS,
		})
	default:
		slog.Info("wheelengine: using in-memory paper broker (no live market data)")
		return paper.New(decimal.NewFromInt(100000))
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
