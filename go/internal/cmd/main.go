package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/crickyard/registration/go/internal/notify"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	config, err := loadConfig(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	database, err := setupDatabase()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to setup database")
	}
	defer database.Close()

	services, err := setupServices(database, config)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to setup services")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go services.Hub.Run(ctx)
	go pruneLedgerLoop(ctx, services)

	services.Worker.Start(ctx)
	var consumeCtx jetstream.ConsumeContext
	if services.Publisher != nil {
		consumeCtx, err = services.Publisher.StartEmailConsumer(ctx, services.Worker)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to start email consumer")
		}

		if _, err := services.Hub.SubscribeNATS(services.Publisher.Conn(), notify.SubjectTeamRegistered); err != nil {
			log.Fatal().Err(err).Msg("failed to subscribe live feed")
		}
	}

	server := setupServer(config, services)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("registration server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}

	// Deliveries must stop before the worker's queue closes.
	if consumeCtx != nil {
		consumeCtx.Stop()
	}
	cancel()
	services.Worker.Stop()
	if services.Publisher != nil {
		services.Publisher.Close()
	}
	log.Info().Msg("shutdown complete")
}

// pruneLedgerLoop clears expired idempotency rows every minute.
func pruneLedgerLoop(ctx context.Context, services *Services) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			services.App.PruneLedger(ctx)
		}
	}
}
