// Package llm hides the differences between model backends behind one
// Provider contract. Every backend writes its samples as numbered
// artifacts under the caller's response directory.
package llm

import (
	"context"
	"fmt"
	"math"

	"github.com/forge-ai/promptforge/shared/errs"
	"github.com/forge-ai/promptforge/shared/prompt"
)

const (
	MinTemperature = 0.0
	MaxTemperature = 2.0
)

// Provider is a pluggable model backend.
type Provider interface {
	// Name is the catalogue name of the backend.
	Name() string
	// ContextWindow is the maximum number of tokens the backend accepts.
	// Callers use it to decide how much example content to include.
	ContextWindow() int
	// EstimateTokens is a deterministic, pure heuristic.
	EstimateTokens(text string) int
	// Generate produces opts.Samples completions, written as
	// NN.rawoutput under opts.ResponseDir, in sample order.
	Generate(ctx context.Context, p *prompt.Prompt, opts Options) ([]RawCompletion, error)
}

// Options are the per-call sampling parameters.
type Options struct {
	Samples     int
	Temperature float64
	ResponseDir string
}

func (o Options) Validate() error {
	if o.Samples <= 0 {
		return errs.Msg("llm.options", errs.ErrInvalidArgument, fmt.Sprintf("sample count must be positive, got %d", o.Samples))
	}
	if math.IsNaN(o.Temperature) || o.Temperature < MinTemperature || o.Temperature > MaxTemperature {
		return errs.Msg("llm.options", errs.ErrInvalidArgument,
			fmt.Sprintf("temperature %v outside [%.1f, %.1f]", o.Temperature, MinTemperature, MaxTemperature))
	}
	if o.ResponseDir == "" {
		return errs.Msg("llm.options", errs.ErrInvalidArgument, "response directory is required")
	}
	return nil
}

// RawCompletion is one unprocessed sample. Index is 1-based.
type RawCompletion struct {
	Index int
	Text  string
	Path  string
}

var (
	_ Provider = (*Simulated)(nil)
	_ Provider = (*Binary)(nil)
	_ Provider = (*Vertex)(nil)
	_ Provider = (*Anthropic)(nil)
	_ Provider = (*OpenRouter)(nil)
)
