package internal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/forge-ai/promptforge/shared/events"
)

type ackRecorder struct {
	mu      sync.Mutex
	acks    []uint64
	nacks   []uint64
	requeue []bool
}

func (r *ackRecorder) Ack(tag uint64, multiple bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.acks = append(r.acks, tag)
	return nil
}

func (r *ackRecorder) Nack(tag uint64, multiple, requeue bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nacks = append(r.nacks, tag)
	r.requeue = append(r.requeue, requeue)
	return nil
}

func (r *ackRecorder) Reject(tag uint64, requeue bool) error {
	return r.Nack(tag, false, requeue)
}

func wrapOutcome(t *testing.T, o events.GenerationOutcome) []byte {
	t.Helper()
	raw, err := events.Wrap(o.RoutingKey(), o)
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestArchiver_Handle(t *testing.T) {
	s := newTestStore(t)
	a := NewArchiver(s)
	ctx := context.Background()

	raw := wrapOutcome(t, events.GenerationOutcome{RequestID: "r1", Model: "simulated", Status: events.StatusCompleted, Response: "foo()"})
	if err := a.Handle(ctx, raw); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	// Redelivery is harmless.
	if err := a.Handle(ctx, raw); err != nil {
		t.Fatalf("Handle redelivery: %v", err)
	}

	got, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Response != "foo()" {
		t.Fatalf("Recent = %+v", got)
	}
}

func TestArchiver_HandlePoison(t *testing.T) {
	a := NewArchiver(newTestStore(t))
	noID, _ := events.Wrap(events.GenerationCompleted, map[string]string{"model": "m"})

	tests := []struct {
		name string
		body []byte
	}{
		{"not json", []byte("garbage")},
		{"wrong payload", []byte(`{"id":"x","payload":"text"}`)},
		{"missing request id", noID},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := a.Handle(context.Background(), tc.body)
			if !errors.Is(err, errPoison) {
				t.Fatalf("Handle = %v, want errPoison", err)
			}
		})
	}
}

func TestArchiver_ConsumeAcksAndNacks(t *testing.T) {
	s := newTestStore(t)
	a := NewArchiver(s)
	rec := &ackRecorder{}

	deliveries := make(chan amqp.Delivery, 2)
	deliveries <- amqp.Delivery{
		Acknowledger: rec,
		DeliveryTag:  1,
		RoutingKey:   events.GenerationCompleted,
		Body:         wrapOutcome(t, events.GenerationOutcome{RequestID: "ok", Model: "m", Status: events.StatusCompleted}),
	}
	deliveries <- amqp.Delivery{Acknowledger: rec, DeliveryTag: 2, Body: []byte("{")}
	close(deliveries)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Consume(ctx, deliveries); err == nil {
		t.Fatal("Consume on a closed channel should report it")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.acks) != 1 || rec.acks[0] != 1 {
		t.Fatalf("acks = %v", rec.acks)
	}
	if len(rec.nacks) != 1 || rec.nacks[0] != 2 || rec.requeue[0] {
		t.Fatalf("nacks = %v requeue = %v", rec.nacks, rec.requeue)
	}
}

func TestArchiver_ConsumeRequeuesStoreErrors(t *testing.T) {
	s := newTestStore(t)
	a := NewArchiver(s)
	s.Close()
	rec := &ackRecorder{}

	deliveries := make(chan amqp.Delivery, 1)
	deliveries <- amqp.Delivery{
		Acknowledger: rec,
		DeliveryTag:  7,
		Body:         wrapOutcome(t, events.GenerationOutcome{RequestID: "later", Model: "m", Status: events.StatusFailed}),
	}
	close(deliveries)

	_ = a.Consume(context.Background(), deliveries)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.nacks) != 1 || !rec.requeue[0] {
		t.Fatalf("nacks = %v requeue = %v; want one requeued nack", rec.nacks, rec.requeue)
	}
}

func TestArchiver_ConsumeStopsOnCancel(t *testing.T) {
	a := NewArchiver(newTestStore(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := a.Consume(ctx, make(chan amqp.Delivery)); err != nil {
		t.Fatalf("Consume = %v, want nil on cancel", err)
	}
}
