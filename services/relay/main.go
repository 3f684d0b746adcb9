// Relay accepts generation requests over a websocket, queues them with
// bounded capacity and drives them one at a time through the configured
// model backend:
//
//	ws message → queue → worker → prompt → provider → NN.rawoutput
//	           ← { "response": parsed code | "error: ..." }
//
// It also:
//   - Publishes generation.completed / generation.failed outcomes when AMQP_URL is set
//   - Exposes /api/status, /healthz and Prometheus /metrics
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/forge-ai/promptforge/services/relay/internal"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "1" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	_ = godotenv.Load()

	cfg := internal.ConfigFromEnv()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info().Msg("shutdown signal, stopping relay")
		cancel()
	}()

	s, err := internal.NewService(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start relay")
	}
	defer s.Close()

	log.Info().
		Str("port", cfg.Port).
		Str("model", cfg.Model).
		Int("queue", cfg.QueueCapacity).
		Str("output", cfg.OutputDir).
		Msg("relay online")

	if err := s.Run(ctx); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("relay exited")
	}
}
