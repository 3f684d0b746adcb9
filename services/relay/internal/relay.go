package internal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/forge-ai/promptforge/shared/codeparse"
	"github.com/forge-ai/promptforge/shared/errs"
	"github.com/forge-ai/promptforge/shared/events"
	"github.com/forge-ai/promptforge/shared/llm"
	"github.com/forge-ai/promptforge/shared/mq"
	"github.com/forge-ai/promptforge/shared/prompt"
)

// Replier receives the single reply for a request. Deliver reports false
// when the connection has closed and the reply was discarded.
type Replier interface {
	Deliver(resp events.GenerationResponse) bool
}

// Resolver looks up a model by name. *llm.Registry satisfies it.
type Resolver interface {
	Resolve(name string) (*llm.Model, error)
}

// Policy decides what Submit does when the queue is full.
type Policy int

const (
	PolicyBlock Policy = iota
	PolicyReject
)

func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "", "block":
		return PolicyBlock, nil
	case "reject":
		return PolicyReject, nil
	}
	return PolicyBlock, errs.Msg("relay.config", errs.ErrInvalidArgument, fmt.Sprintf("unknown queue policy %q", s))
}

func (p Policy) String() string {
	if p == PolicyReject {
		return "reject"
	}
	return "block"
}

type job struct {
	id       string
	req      events.GenerationRequest
	reply    Replier
	enqueued time.Time
}

// Relay queues requests from every connection and drives them one at a
// time through the provider. Only one Generate call is in flight at once.
type Relay struct {
	queue     *Queue[*job]
	policy    Policy
	builder   *prompt.Builder
	models    Resolver
	parser    codeparse.Parser
	publisher mq.Publisher
	metrics   *Metrics

	model       string
	samples     int
	temperature float64
	outputDir   string

	device sync.Mutex
}

type RelayOptions struct {
	Capacity    int
	Policy      Policy
	Model       string
	Samples     int
	Temperature float64
	OutputDir   string
	Strict      bool
}

// NewRelay wires the worker. publisher may be nil.
func NewRelay(opts RelayOptions, builder *prompt.Builder, models Resolver, publisher mq.Publisher, m *Metrics) *Relay {
	return &Relay{
		queue:       NewQueue[*job](opts.Capacity),
		policy:      opts.Policy,
		builder:     builder,
		models:      models,
		parser:      codeparse.Parser{Strict: opts.Strict},
		publisher:   publisher,
		metrics:     m,
		model:       opts.Model,
		samples:     opts.Samples,
		temperature: opts.Temperature,
		outputDir:   opts.OutputDir,
	}
}

func (r *Relay) Depth() int    { return r.queue.Len() }
func (r *Relay) Capacity() int { return r.queue.Cap() }
func (r *Relay) Model() string { return r.model }

// Submit enqueues req. Under PolicyReject a full queue is reported to the
// replier immediately and errs.ErrQueueFull is returned.
func (r *Relay) Submit(ctx context.Context, req events.GenerationRequest, reply Replier) error {
	j := &job{id: uuid.New().String(), req: req, reply: reply, enqueued: time.Now()}

	var err error
	if r.policy == PolicyReject {
		err = r.queue.TryPush(j)
	} else {
		err = r.queue.Push(ctx, j)
	}
	if err != nil {
		if errors.Is(err, errs.ErrQueueFull) {
			r.metrics.Rejected.Inc()
			reply.Deliver(events.ErrorResponse(err))
			log.Warn().Int("capacity", r.queue.Cap()).Msg("queue full, request rejected")
		}
		return err
	}

	r.metrics.QueueDepth.Set(float64(r.queue.Len()))
	log.Debug().Str("request", j.id).Int("depth", r.queue.Len()).Msg("request queued")
	return nil
}

// Run is the single worker. It returns when ctx is done; requests still
// queued at that point are abandoned.
func (r *Relay) Run(ctx context.Context) error {
	for {
		j, err := r.queue.Pop(ctx)
		if err != nil {
			return nil
		}
		r.metrics.QueueDepth.Set(float64(r.queue.Len()))
		r.process(ctx, j)
	}
}

func (r *Relay) process(ctx context.Context, j *job) {
	start := time.Now()
	outcome := events.GenerationOutcome{
		RequestID: j.id,
		Model:     j.req.Model,
		Problem:   j.req.Problem,
	}
	if outcome.Model == "" {
		outcome.Model = r.model
	}

	code, samples, dir, err := r.generate(ctx, j)
	outcome.Samples = samples
	outcome.OutputDir = dir
	outcome.DurationMS = time.Since(start).Milliseconds()

	var resp events.GenerationResponse
	if err != nil {
		resp = events.ErrorResponse(err)
		outcome.Status = events.StatusFailed
		outcome.Error = err.Error()
		if kind := errs.KindOf(err); kind != nil {
			outcome.Kind = kind.Error()
		}
		log.Error().Err(err).Str("request", j.id).Str("model", outcome.Model).Str("kind", outcome.Kind).Msg("generation failed")
	} else {
		resp = events.GenerationResponse{Response: code}
		outcome.Status = events.StatusCompleted
		outcome.Response = code
		log.Info().Str("request", j.id).Str("model", outcome.Model).Int("samples", samples).
			Dur("took", time.Since(start)).Dur("waited", start.Sub(j.enqueued)).Msg("generation complete")
	}

	outcome.Delivered = j.reply.Deliver(resp)
	if !outcome.Delivered {
		r.metrics.DroppedReplies.Inc()
		log.Debug().Str("request", j.id).Msg("connection closed, reply dropped")
	}
	r.metrics.Generations.WithLabelValues(outcome.Model, outcome.Status).Inc()
	r.metrics.Latency.WithLabelValues(outcome.Model).Observe(time.Since(start).Seconds())

	if r.publisher != nil {
		if err := r.publisher.PublishEvent(ctx, outcome.RoutingKey(), outcome); err != nil {
			log.Error().Err(err).Str("request", j.id).Msg("publish outcome")
		}
	}
}

// generate runs one request end to end and returns the parsed code of the
// first sample that parses.
func (r *Relay) generate(ctx context.Context, j *job) (string, int, string, error) {
	if strings.TrimSpace(j.req.Problem) == "" {
		return "", 0, "", errs.Msg("relay.request", errs.ErrInvalidArgument, "problem is required")
	}

	name := j.req.Model
	if name == "" {
		name = r.model
	}
	model, err := r.models.Resolve(name)
	if err != nil {
		return "", 0, "", err
	}

	dir := filepath.Join(r.outputDir, j.id)
	opts := model.Options(r.samples, r.temperature, dir)
	if err := opts.Validate(); err != nil {
		return "", 0, "", err
	}
	if err := llm.EnsureDir(dir); err != nil {
		return "", 0, dir, err
	}

	p := r.builder.FromRequest(j.req)
	if err := p.Save(filepath.Join(dir, "prompt"+p.Format().Ext())); err != nil {
		return "", 0, dir, err
	}
	log.Debug().Str("request", j.id).Str("model", model.Name()).
		Int("prompt_tokens", model.EstimateTokens(p.String())).Int("context_window", model.ContextWindow()).
		Msg("dispatching")

	r.device.Lock()
	completions, err := model.Generate(ctx, p, opts)
	r.device.Unlock()
	if err != nil {
		return "", len(completions), dir, err
	}

	return r.parseAll(j.id, dir, completions)
}

func (r *Relay) parseAll(id, dir string, completions []llm.RawCompletion) (string, int, string, error) {
	var (
		reply    string
		parsed   bool
		firstErr error
	)
	for _, c := range completions {
		code, err := r.parser.Parse(c.Text)
		if err != nil {
			log.Warn().Err(err).Str("request", id).Int("sample", c.Index).Msg("unparseable sample")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err := os.WriteFile(filepath.Join(dir, codeparse.CodeName(llm.ArtifactName(c.Index))), []byte(code), 0o644); err != nil {
			return "", len(completions), dir, errs.E("relay.code", errs.ErrIO, err)
		}
		if !parsed {
			reply, parsed = code, true
		}
	}
	if !parsed {
		if firstErr == nil {
			firstErr = errs.Msg("relay.parse", errs.ErrGenerationFailed, "provider returned no samples")
		}
		return "", len(completions), dir, firstErr
	}
	return reply, len(completions), dir, nil
}
