package internal

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/forge-ai/promptforge/shared/events"
)

// errPoison marks deliveries that can never be stored and must not be
// requeued.
var errPoison = errors.New("undecodable outcome")

// Archiver stores every generation outcome it receives.
type Archiver struct {
	store *Store
	now   func() time.Time
}

func NewArchiver(store *Store) *Archiver {
	return &Archiver{store: store, now: time.Now}
}

// Handle decodes one broker message and stores it.
func (a *Archiver) Handle(ctx context.Context, body []byte) error {
	env, err := events.UnwrapEnvelope(body)
	if err != nil {
		return fmt.Errorf("%w: %v", errPoison, err)
	}
	o, err := events.Unwrap[events.GenerationOutcome](body)
	if err != nil || o.RequestID == "" {
		return fmt.Errorf("%w: envelope %s", errPoison, env.ID)
	}

	at := env.Timestamp
	if at.IsZero() {
		at = a.now()
	}
	inserted, err := a.store.Save(ctx, *o, at)
	if err != nil {
		return err
	}

	log.Info().
		Str("request", o.RequestID).
		Str("model", o.Model).
		Str("status", o.Status).
		Bool("delivered", o.Delivered).
		Bool("duplicate", !inserted).
		Msg("outcome archived")
	return nil
}

// Consume acks stored deliveries, drops poison messages and requeues the
// rest. It returns when ctx is done or the channel closes.
func (a *Archiver) Consume(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			err := a.Handle(ctx, d.Body)
			switch {
			case err == nil:
				d.Ack(false)
			case errors.Is(err, errPoison):
				log.Warn().Err(err).Str("key", d.RoutingKey).Msg("dropping message")
				d.Nack(false, false)
			default:
				log.Error().Err(err).Str("key", d.RoutingKey).Msg("archive error")
				d.Nack(false, true)
			}
		}
	}
}
