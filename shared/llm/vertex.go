package llm

import (
	"context"
	"fmt"

	"github.com/forge-ai/promptforge/shared/errs"
	"github.com/forge-ai/promptforge/shared/prompt"
)

// VertexVariant is one of the closed set of Vertex AI model tiers.
type VertexVariant string

const (
	CodeBison    VertexVariant = "code-bison"
	CodeBison32k VertexVariant = "code-bison-32k"
	GeminiPro    VertexVariant = "gemini-pro"
)

type vertexTier struct {
	window      int
	implemented bool
}

var vertexTiers = map[VertexVariant]vertexTier{
	CodeBison:    {window: 6144, implemented: true},
	CodeBison32k: {window: 32768, implemented: true},
	GeminiPro:    {window: 32760},
}

// VertexVariants lists the known tiers.
func VertexVariants() []VertexVariant {
	return []VertexVariant{CodeBison, CodeBison32k, GeminiPro}
}

// Vertex dispatches every tier through the shared AI binary. Tiers without
// a working dispatch fail with errs.ErrNotImplemented.
type Vertex struct {
	name    string
	variant VertexVariant
	tier    vertexTier
	runner  *Binary
}

// NewVertex builds the provider for variant. name is the catalogue name;
// empty falls back to the model id the AI binary is invoked with.
func NewVertex(name string, variant VertexVariant, binary string, maxTokens int) (*Vertex, error) {
	tier, ok := vertexTiers[variant]
	if !ok {
		return nil, errs.Msg("llm.vertex", errs.ErrUnknownModel,
			fmt.Sprintf("unknown vertex variant %q (known: %v)", variant, VertexVariants()))
	}
	v := &Vertex{name: name, variant: variant, tier: tier}
	if v.name == "" {
		v.name = variant.ModelID()
	}
	v.runner = NewBinary(variant.ModelID(), binary, tier.window, maxTokens)
	return v, nil
}

// ModelID is the -model value passed to the AI binary.
func (v VertexVariant) ModelID() string { return "vertex_ai_" + string(v) }

func (v *Vertex) Name() string                   { return v.name }
func (v *Vertex) Variant() VertexVariant         { return v.variant }
func (v *Vertex) ContextWindow() int             { return v.tier.window }
func (v *Vertex) EstimateTokens(text string) int { return WordTokens(text) }

func (v *Vertex) Generate(ctx context.Context, p *prompt.Prompt, opts Options) ([]RawCompletion, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if !v.tier.implemented {
		return nil, errs.Msg("llm.vertex", errs.ErrNotImplemented, v.Name()+" generation is not implemented")
	}
	return v.runner.Generate(ctx, p, opts)
}
