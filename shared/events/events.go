// Package events defines the wire contract of the relay and the messages
// published on RabbitMQ. Services import ONLY this package for payload shapes.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ── Routing keys (RabbitMQ topic exchange: promptforge.events) ─────────────────────
const (
	GenerationCompleted = "generation.completed"
	GenerationFailed    = "generation.failed"
	GenerationAll       = "generation.#"
)

// Outcome statuses carried by GenerationOutcome.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ── Relay wire messages ───────────────────────────────────────────────────────

// GenerationRequest is one inbound websocket message. Solution may be empty.
// Model is optional and selects a catalogue entry other than the relay default.
type GenerationRequest struct {
	Priming  string `json:"priming"`
	Problem  string `json:"problem"`
	Solution string `json:"solution"`
	Model    string `json:"model,omitempty"`
}

// GenerationResponse is the single outbound reply for a request: either the
// parsed code or a human-readable error summary.
type GenerationResponse struct {
	Response string `json:"response"`
}

// ErrorResponse renders a failure the way clients expect it.
func ErrorResponse(err error) GenerationResponse {
	return GenerationResponse{Response: "error: " + err.Error()}
}

// ── Envelope wraps every broker message ──────────────────────────────────────

type Envelope struct {
	ID         string          `json:"id"`
	RoutingKey string          `json:"routing_key"`
	Timestamp  time.Time       `json:"ts"`
	Payload    json.RawMessage `json:"payload"`
}

func Wrap(routingKey string, payload any) ([]byte, error) {
	p, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{
		ID:         uuid.New().String(),
		RoutingKey: routingKey,
		Timestamp:  time.Now(),
		Payload:    p,
	})
}

func Unwrap[T any](raw []byte) (*T, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	var t T
	return &t, json.Unmarshal(env.Payload, &t)
}

func UnwrapEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	return &env, json.Unmarshal(raw, &env)
}

// ── Payload types ─────────────────────────────────────────────────────────────

// GenerationOutcome is published once per processed request, whether or not
// the originating connection was still open to receive the reply.
type GenerationOutcome struct {
	RequestID  string `json:"request_id"`
	Model      string `json:"model"`
	Status     string `json:"status"`
	Problem    string `json:"problem"`
	Response   string `json:"response,omitempty"`
	Error      string `json:"error,omitempty"`
	Kind       string `json:"kind,omitempty"` // error kind of a failed outcome
	Samples    int    `json:"samples"`
	OutputDir  string `json:"output_dir,omitempty"`
	DurationMS int64  `json:"duration_ms"`
	Delivered  bool   `json:"delivered"`
}

// RoutingKey picks the routing key matching the outcome status.
func (o GenerationOutcome) RoutingKey() string {
	if o.Status == StatusFailed {
		return GenerationFailed
	}
	return GenerationCompleted
}
