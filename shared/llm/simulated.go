package llm

import (
	"context"
	"fmt"
	"sync"

	loremgen "github.com/bozaro/golorem"
	"github.com/rs/zerolog/log"

	"github.com/forge-ai/promptforge/shared/prompt"
)

// Simulated synthesizes placeholder completions locally. It exercises the
// whole pipeline without a real model.
type Simulated struct {
	name   string
	window int

	mu        sync.Mutex
	generator *loremgen.Lorem
}

func NewSimulated(name string, window int) *Simulated {
	return &Simulated{
		name:      name,
		window:    window,
		generator: loremgen.New(),
	}
}

func (s *Simulated) Name() string                   { return s.name }
func (s *Simulated) ContextWindow() int             { return s.window }
func (s *Simulated) EstimateTokens(text string) int { return WordTokens(text) }

func (s *Simulated) Generate(ctx context.Context, p *prompt.Prompt, opts Options) ([]RawCompletion, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	texts := make([]string, 0, opts.Samples)
	s.mu.Lock()
	for i := 1; i <= opts.Samples; i++ {
		texts = append(texts, fmt.Sprintf("<code>\n// sample %02d from %s (%d prompt tokens, temperature %.2f)\n// %s\n</code>\n</solution>\n",
			i, s.name, s.EstimateTokens(p.String()), opts.Temperature, s.generator.Sentence(5, 15)))
	}
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Debug().Str("model", s.name).Int("samples", opts.Samples).Str("dir", opts.ResponseDir).Msg("simulated completions")
	return WriteArtifacts(opts.ResponseDir, texts)
}
