// Package main runs the Telnet roll server.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/polydie/internal/config"
	"github.com/cory-johannsen/polydie/internal/frontend/handlers"
	"github.com/cory-johannsen/polydie/internal/frontend/telnet"
	"github.com/cory-johannsen/polydie/internal/game/catalog"
	"github.com/cory-johannsen/polydie/internal/game/dice"
	"github.com/cory-johannsen/polydie/internal/observability"
	"github.com/cory-johannsen/polydie/internal/scripting"
	"github.com/cory-johannsen/polydie/internal/server"
	"github.com/cory-johannsen/polydie/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	healthInterval := flag.Duration("health-interval", 30*time.Second, "database health check interval")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "rollserver")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting roll server",
		zap.String("telnet_addr", cfg.Telnet.Addr()),
		zap.String("dice_source", cfg.Dice.Source),
	)

	ctx := context.Background()

	registry, err := loadCatalog(cfg.Catalog)
	if err != nil {
		logger.Fatal("loading dice catalog", zap.Error(err))
	}
	logger.Info("dice catalog loaded", zap.Int("dice", registry.Len()))

	src, err := dice.NewSourceFromConfig(cfg.Dice)
	if err != nil {
		logger.Fatal("creating dice source", zap.Error(err))
	}
	roller := dice.NewLoggedRoller(src, logger)

	lifecycle := server.NewLifecycle(logger)
	opts := []handlers.Option{
		handlers.WithColor(cfg.Telnet.Color),
		handlers.WithDefaultRoll(cfg.Dice.DefaultRolls, cfg.Dice.DefaultFaces),
	}

	pool, err := postgres.NewPool(ctx, cfg.Database)
	switch {
	case errors.Is(err, postgres.ErrDisabled):
		logger.Info("roll history disabled")
	case err != nil:
		logger.Fatal("connecting to database", zap.Error(err))
	default:
		defer pool.Close()
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Int("port", cfg.Database.Port),
			zap.String("database", cfg.Database.Name),
		)
		repo := postgres.NewRollRepository(pool.DB())
		roller = roller.WithRecorder(repo.Recorder(ctx, logger))
		opts = append(opts, handlers.WithHistory(repo))
		lifecycle.Add("postgres-health", server.NewPeriodicService(*healthInterval, func(ctx context.Context) error {
			return pool.Health(ctx, 5*time.Second)
		}, logger))
	}

	if cfg.Scripting.Enabled {
		mgr := scripting.NewManager(roller, logger)
		defer mgr.Close()
		sets, err := mgr.LoadRoot(ctx, cfg.Scripting.ScriptRoot, cfg.Scripting.InstructionLimit)
		if err != nil {
			logger.Fatal("loading scripts", zap.Error(err))
		}
		logger.Info("scripts loaded", zap.Strings("sets", sets))
		opts = append(opts, handlers.WithScripts(mgr))
	}

	handler := handlers.NewRollHandler(roller, registry, logger, opts...)
	acceptor := telnet.NewAcceptor(cfg.Telnet, handler, logger)
	lifecycle.Add("telnet", &server.FuncService{
		StartFn: acceptor.ListenAndServe,
		StopFn:  acceptor.Stop,
	})

	logger.Info("roll server initialized", zap.Duration("startup", time.Since(start)))

	if err := lifecycle.Run(ctx); err != nil {
		logger.Error("server error", zap.Error(err))
	}
}

// loadCatalog builds the registry from dir, or the built-in set when dir is empty.
func loadCatalog(cfg config.CatalogConfig) (*catalog.Registry, error) {
	if cfg.Dir == "" {
		return catalog.NewRegistry(catalog.DefaultEntries())
	}
	entries, err := catalog.LoadDir(cfg.Dir)
	if err != nil {
		return nil, err
	}
	return catalog.NewRegistry(entries)
}
