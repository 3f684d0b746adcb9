// archiver subscribes to generation.# and stores every outcome the relay
// publishes in a local SQLite database.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/forge-ai/promptforge/services/archiver/internal"
	"github.com/forge-ai/promptforge/shared/events"
	"github.com/forge-ai/promptforge/shared/mq"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "1" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	_ = godotenv.Load()

	cfg := internal.ConfigFromEnv()

	store, err := internal.NewStore(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open archive")
	}
	defer store.Close()

	broker, err := mq.New(cfg.AMQPURL)
	if err != nil {
		log.Fatal().Err(err).Msg("mq connect")
	}
	defer broker.Close()

	deliveries, err := broker.Subscribe(cfg.Queue, events.GenerationAll)
	if err != nil {
		log.Fatal().Err(err).Msg("subscribe")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() { <-sigs; cancel() }()

	if counts, err := store.CountByStatus(ctx); err == nil {
		log.Info().Str("db", cfg.DBPath).Interface("archived", counts).Msg("archiver service started")
	}
	if last, err := store.Recent(ctx, 1); err == nil && len(last) == 1 {
		log.Info().Str("request", last[0].RequestID).Str("status", last[0].Status).
			Time("at", last[0].CreatedAt).Msg("resuming after last archived outcome")
	}

	if err := internal.NewArchiver(store).Consume(ctx, deliveries); err != nil {
		log.Error().Err(err).Msg("archiver stopped")
	}
}
