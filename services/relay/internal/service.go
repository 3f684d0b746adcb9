package internal

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/forge-ai/promptforge/shared/llm"
	"github.com/forge-ai/promptforge/shared/mq"
	"github.com/forge-ai/promptforge/shared/prompt"
)

// Service is the relay process: the worker plus the HTTP surface.
type Service struct {
	cfg     Config
	relay   *Relay
	metrics *Metrics
	reg     *prometheus.Registry
	broker  *mq.Broker

	ctx       context.Context // base context for connection tasks
	conns     atomic.Int64
	keepalive keepalive
}

func NewService(cfg Config) (*Service, error) {
	tpl, err := prompt.LoadTemplates(cfg.TemplatesDir)
	if err != nil {
		return nil, err
	}
	format, err := prompt.ParseFormat(cfg.PromptFormat)
	if err != nil {
		return nil, err
	}
	policy, err := ParsePolicy(cfg.QueuePolicy)
	if err != nil {
		return nil, err
	}

	catalog, err := llm.LoadCatalog(cfg.ModelsFile)
	if err != nil {
		return nil, err
	}
	registry, err := llm.NewRegistry(catalog, llm.Backends{
		Binary:        cfg.AIBinary,
		AnthropicKey:  cfg.AnthropicKey,
		OpenRouterKey: cfg.OpenRouterKey,
	})
	if err != nil {
		return nil, err
	}
	if _, err := registry.Resolve(cfg.Model); err != nil {
		return nil, err
	}

	s := &Service{cfg: cfg, reg: prometheus.NewRegistry(), ctx: context.Background(), keepalive: defaultKeepalive}
	s.reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	s.metrics = NewMetrics(s.reg)

	var pub mq.Publisher
	if cfg.AMQPURL != "" {
		s.broker, err = mq.New(cfg.AMQPURL)
		if err != nil {
			return nil, fmt.Errorf("mq connect: %w", err)
		}
		pub = s.broker
	}

	s.relay = NewRelay(RelayOptions{
		Capacity:    cfg.QueueCapacity,
		Policy:      policy,
		Model:       cfg.Model,
		Samples:     cfg.Samples,
		Temperature: cfg.Temperature,
		OutputDir:   cfg.OutputDir,
		Strict:      cfg.StrictParse,
	}, prompt.NewBuilder(tpl, format), registry, pub, s.metrics)

	log.Info().
		Strs("models", registry.Names()).
		Str("policy", policy.String()).
		Str("format", format.String()).
		Bool("publishing", pub != nil).
		Msg("relay configured")
	return s, nil
}

func (s *Service) Close() {
	if s.broker != nil {
		s.broker.Close()
	}
}

// Run starts the worker and the API server and blocks until ctx is done
// or either fails.
func (s *Service) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	s.ctx = ctx

	g.Go(func() error { return s.relay.Run(ctx) })
	g.Go(func() error { return s.serveAPI(ctx) })

	return g.Wait()
}
