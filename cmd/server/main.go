package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/chasegame/chase-server/internal/catalog"
	"github.com/chasegame/chase-server/internal/config"
	"github.com/chasegame/chase-server/internal/game"
	"github.com/chasegame/chase-server/internal/game/rules"
	"github.com/chasegame/chase-server/internal/repository"
	"github.com/chasegame/chase-server/internal/server"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting chase server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	cat, err := catalog.LoadFile(cfg.Catalog.Path, logger)
	if err != nil {
		logger.Fatal("failed to load catalog", zap.Error(err))
	}

	var (
		store game.Store
		pools game.CardPoolProvider = cat
	)
	switch cfg.Database.Driver {
	case "postgres":
		db, err := repository.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		if cfg.Database.Migrate {
			if err := db.Migrate(ctx); err != nil {
				logger.Fatal("failed to migrate database", zap.Error(err))
			}
		}

		stats := db.Stats()
		logger.Info("database connection pool initialized",
			zap.Int32("total_conns", stats.TotalConns()),
			zap.Int32("idle_conns", stats.IdleConns()),
		)

		pg := repository.NewPostgresStore(db)
		store = pg
		if cfg.Database.CardsFromDB {
			if err := seedCardSets(ctx, pg, cat, logger); err != nil {
				logger.Fatal("failed to seed card sets", zap.Error(err))
			}
			pools = pg
		}
	default:
		store = repository.NewMemoryStore()
		logger.Warn("using in-memory store; game state is lost on restart")
	}

	engine := game.NewEngine(store, cat, pools, logger,
		game.WithSettings(cfg.Game.Settings()),
	)
	subscribeAudit(engine.Events(), logger)
	logger.Info("game engine initialized",
		zap.Duration("positioning_duration", cfg.Game.PositioningDuration),
		zap.Int("initial_hand_size", cfg.Game.InitialHandSize),
		zap.Duration("roadblock_ttl", cfg.Game.RoadblockTTL),
	)

	grpcServer, healthServer := server.NewGRPCServer(engine, cfg.Server.GRPC, logger)

	lis, err := net.Listen("tcp", cfg.Server.GRPC.Address)
	if err != nil {
		logger.Fatal("failed to listen", zap.Error(err))
	}

	go func() {
		logger.Info("starting gRPC server", zap.String("address", cfg.Server.GRPC.Address))
		if serveErr := grpcServer.Serve(lis); serveErr != nil {
			logger.Error("gRPC server error", zap.Error(serveErr))
		}
	}()

	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("shutting down gracefully...")
	healthServer.Shutdown()
	cancel()
	grpcServer.GracefulStop()

	logger.Info("chase server stopped")
}

// seedCardSets stores catalog card sets that the database does not have yet.
func seedCardSets(ctx context.Context, pg *repository.PostgresStore, cat *catalog.Catalog, logger *zap.Logger) error {
	for _, pool := range cat.CardSets() {
		_, err := pg.CardPool(ctx, pool.Name())
		if err == nil {
			continue
		}
		if !errors.Is(err, game.ErrUnknownAsset) {
			return err
		}
		if err := pg.SaveCardSet(ctx, pool); err != nil {
			return fmt.Errorf("save card set %s: %w", pool.Name(), err)
		}
		logger.Info("card set stored", zap.String("card_set", pool.Name()), zap.Int("cards", pool.Len()))
	}
	return nil
}

// subscribeAudit writes every committed game event to the log.
func subscribeAudit(bus *rules.EventBus, logger *zap.Logger) {
	audit := logger.Named("audit")
	bus.Subscribe(func(ev rules.Event) {
		fields := []zap.Field{
			zap.String("event", string(ev.Type)),
			zap.String("game_id", ev.GameID),
			zap.String("phase", ev.Phase.String()),
		}
		if ev.PlayerID != "" {
			fields = append(fields, zap.String("player_id", ev.PlayerID))
		}
		if ev.TargetID != "" {
			fields = append(fields, zap.String("target", ev.TargetID))
		}
		if ev.Amount != 0 {
			fields = append(fields, zap.Int("amount", ev.Amount))
		}
		for k, v := range ev.Metadata {
			fields = append(fields, zap.String(k, v))
		}
		audit.Info("game event", fields...)
	})
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
