package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"jangteo-auction-engine/internal/adapters/api"
	"jangteo-auction-engine/internal/adapters/db"
	"jangteo-auction-engine/internal/adapters/emitter"
	"jangteo-auction-engine/internal/adapters/feed"
	"jangteo-auction-engine/internal/adapters/redis"
	"jangteo-auction-engine/internal/adapters/sweeper"
	"jangteo-auction-engine/internal/app"
	"jangteo-auction-engine/internal/config"
	"jangteo-auction-engine/internal/domain/pricing"
	"jangteo-auction-engine/internal/domain/shared"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	initLogging(cfg)

	log.Info().Msg("Starting Jangteo Auction Engine...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbConn, err := db.NewConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbConn.Close()

	log.Info().Msg("Database connection established")

	auctionStore := db.NewAuctionStore(dbConn)
	bidStore := db.NewBidStore(dbConn)
	accounts := db.NewAccountDirectory(dbConn)

	redisClient := redis.NewClient(cfg)
	if err := redis.Ping(redisClient); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	log.Info().Msg("Redis connection established")

	eventEmitter := emitter.NewRedisEmitter(emitter.RedisEmitterParams{
		RedisClient: redisClient,
		Workers:     cfg.Emitter.Workers,
		Capacity:    cfg.Emitter.Capacity,
		Logger:      log.Logger,
	})

	clock := shared.SystemClock{}

	lifecycle := app.NewLifecycle(app.LifecycleParams{
		Store:    auctionStore,
		Accounts: accounts,
		Emitter:  eventEmitter,
		Rules:    cfg.Rules,
		Clock:    clock,
		Logger:   log.Logger,
	})

	deadlineSweeper := sweeper.NewSweeper(sweeper.SweeperParams{
		RedisClient:     redisClient,
		Store:           auctionStore,
		Expiry:          lifecycle,
		Clock:           clock,
		SweepInterval:   cfg.Rules.SweepInterval,
		CatchupInterval: cfg.Rules.CatchupInterval,
		Logger:          log.Logger,
	})
	lifecycle.SetScheduler(deadlineSweeper)

	ledger := app.NewLedger(app.LedgerParams{
		Store:     auctionStore,
		Bids:      bidStore,
		Accounts:  accounts,
		Emitter:   eventEmitter,
		Scheduler: deadlineSweeper,
		Tiers:     pricing.DefaultTable(),
		Rules:     cfg.Rules,
		Clock:     clock,
		Logger:    log.Logger,
	})
	apiHandler := api.NewHandler(api.HandlerParams{
		Ledger:    ledger,
		Lifecycle: lifecycle,
		Logger:    log.Logger,
	})

	log.Info().Msg("Engine services initialized")

	deadlineSweeper.Start()
	log.Info().Msg("Deadline sweeper started")

	feedServer := feed.NewServer(feed.ServerParams{
		Config:      cfg,
		RedisClient: redisClient,
		API:         apiHandler.Mux(),
		Logger:      log.Logger,
	})

	go func() {
		if err := feedServer.Start(); err != nil {
			log.Error().Err(err).Msg("Failed to start event feed server")
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case <-ctx.Done():
		log.Info().Msg("Context cancelled")
	}

	log.Info().Msg("Starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	deadlineSweeper.Stop()
	log.Info().Msg("Deadline sweeper stopped")

	if err := feedServer.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping event feed server")
	}

	if err := eventEmitter.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing event emitter")
	}

	log.Info().Msg("Graceful shutdown completed")
}

func initLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Logging.Format == "json" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		log.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	zerolog.DefaultContextLogger = &log.Logger
}
