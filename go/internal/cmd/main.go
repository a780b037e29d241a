package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/mcdev12/gavel/go/internal/dbconfig"
	"github.com/mcdev12/gavel/go/internal/draft/gateway"
	"github.com/mcdev12/gavel/go/internal/draft/outbox"
)

func main() {
	if err := godotenv.Load(); err != nil {
		zlog.Warn().Err(err).Msg("could not load .env file")
	}

	zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := loadConfig("config.yaml")
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to load configuration")
	}

	dbCfg := dbconfig.NewConfigFromEnv()

	if err := runMigrations(dbCfg, cfg.MigrationsPath); err != nil {
		zlog.Fatal().Err(err).Msg("failed to run migrations")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := setupPool(ctx, dbCfg)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	sqlDB, err := setupSQLDatabase(dbCfg)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to open sql database")
	}
	defer sqlDB.Close()

	services := setupServices(pool, cfg)

	// Outbox relay: drains the events table into JetStream.
	nc, err := nats.Connect(cfg.NATS.URL,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			zlog.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			zlog.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to connect to NATS")
	}
	defer nc.Close()

	slogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	publisher, err := outbox.NewNATSPublisher(nc, slogger)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to create NATS publisher")
	}

	workerCfg := outbox.DefaultConfig()
	workerCfg.PollInterval = cfg.Outbox.PollInterval
	workerCfg.BatchSize = int32(cfg.Outbox.BatchSize)
	worker := outbox.NewWorker(sqlDB, publisher, workerCfg, slogger)
	if err := worker.Start(ctx); err != nil {
		zlog.Fatal().Err(err).Msg("failed to start outbox worker")
	}
	defer worker.Stop()

	// Gateway: fans events back out to connected websockets. Presence
	// changes feed the orchestrator so round timers pause when humans drop.
	cm := gateway.NewConnectionManager(gateway.DefaultConnectionConfig(), services.Orchestrator)
	go cm.Start(ctx)

	consumerCfg := gateway.DefaultJetStreamConsumerConfig()
	consumerCfg.URL = cfg.NATS.URL
	eventConsumer, err := gateway.NewEventConsumer(cm, consumerCfg)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to setup event consumer")
	}
	defer eventConsumer.Close()

	go func() {
		if err := eventConsumer.Start(ctx); err != nil {
			zlog.Error().Err(err).Msg("event consumer failed")
		}
	}()

	go func() {
		zlog.Info().Msg("starting round scheduler")
		if err := services.Orchestrator.RunScheduler(ctx); err != nil {
			zlog.Error().Err(err).Msg("round scheduler failed")
		}
	}()

	wsHandler := gateway.NewWebSocketHandler(cm, services.Auth, services.Teams)
	server := setupServer(cfg, services, wsHandler)

	go func() {
		zlog.Info().Str("addr", server.Addr).Msg("auction server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	zlog.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Err(err).Msg("server shutdown failed")
	}

	cancel()
	time.Sleep(2 * time.Second)
	zlog.Info().Msg("auction server shutdown complete")
}
