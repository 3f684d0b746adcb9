package llm

import (
	_ "embed"
	"fmt"
	"net/http"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/forge-ai/promptforge/shared/errs"
)

//go:embed models.yaml
var defaultCatalog []byte

// Backend kinds accepted in the catalogue.
const (
	KindSimulated  = "simulated"
	KindBinary     = "binary"
	KindVertex     = "vertex"
	KindAnthropic  = "anthropic"
	KindOpenRouter = "openrouter"
)

// ModelSpec is one catalogue entry.
type ModelSpec struct {
	Name          string  `yaml:"name"`
	Kind          string  `yaml:"kind"`
	Model         string  `yaml:"model,omitempty"`
	Variant       string  `yaml:"variant,omitempty"`
	ContextWindow int     `yaml:"context_window,omitempty"`
	MaxTokens     int     `yaml:"max_tokens,omitempty"`
	Samples       int     `yaml:"samples,omitempty"`
	Temperature   float64 `yaml:"temperature,omitempty"`
}

type Catalog struct {
	Default string      `yaml:"default"`
	Models  []ModelSpec `yaml:"models"`
}

func ParseCatalog(b []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, errs.E("llm.catalog", errs.ErrInvalidArgument, err)
	}
	return &c, nil
}

// DefaultCatalog is the catalogue compiled into the binary.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded models.yaml: %v", err))
	}
	return c
}

// LoadCatalog reads a catalogue file, falling back to the embedded one when
// path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.E("llm.catalog", errs.ErrIO, err)
	}
	return ParseCatalog(b)
}

// Backends carries process-wide backend configuration.
type Backends struct {
	Binary            string
	AnthropicKey      string
	AnthropicBaseURL  string
	OpenRouterKey     string
	OpenRouterBaseURL string
	HTTPClient        *http.Client
}

// Model is a resolved provider together with its catalogue defaults.
type Model struct {
	Provider
	Kind        string
	Samples     int
	Temperature float64
	MaxTokens   int
}

// Options fills unset sampling parameters from the catalogue defaults.
// samples <= 0 and temperature < 0 mean unset.
func (m *Model) Options(samples int, temperature float64, dir string) Options {
	if samples <= 0 {
		samples = m.Samples
	}
	if temperature < 0 {
		temperature = m.Temperature
	}
	return Options{Samples: samples, Temperature: temperature, ResponseDir: dir}
}

// Registry maps model names to providers. It is built once and read-only
// afterwards, so Resolve is safe for concurrent use.
type Registry struct {
	models map[string]*Model
	def    string
}

// NewRegistry constructs a provider for every catalogue entry. Missing
// credentials do not fail construction; the affected model reports
// errs.ErrBackendUnavailable when it is asked to generate.
func NewRegistry(c *Catalog, b Backends) (*Registry, error) {
	r := &Registry{models: make(map[string]*Model, len(c.Models)), def: c.Default}
	for _, spec := range c.Models {
		if spec.Name == "" {
			return nil, errs.Msg("llm.registry", errs.ErrInvalidArgument, "catalogue entry without a name")
		}
		if _, dup := r.models[spec.Name]; dup {
			return nil, errs.Msg("llm.registry", errs.ErrInvalidArgument, fmt.Sprintf("duplicate model %q", spec.Name))
		}
		p, err := newProvider(spec, b)
		if err != nil {
			return nil, err
		}
		r.models[spec.Name] = &Model{
			Provider:    p,
			Kind:        spec.Kind,
			Samples:     max(spec.Samples, 1),
			Temperature: spec.Temperature,
			MaxTokens:   spec.MaxTokens,
		}
	}
	if r.def != "" {
		if _, ok := r.models[r.def]; !ok {
			return nil, errs.Msg("llm.registry", errs.ErrUnknownModel, fmt.Sprintf("default model %q is not in the catalogue", r.def))
		}
	}
	return r, nil
}

func newProvider(spec ModelSpec, b Backends) (Provider, error) {
	maxTokens := spec.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	model := spec.Model
	if model == "" {
		model = spec.Name
	}

	switch spec.Kind {
	case KindSimulated:
		return NewSimulated(spec.Name, spec.ContextWindow), nil
	case KindBinary:
		return NewBinary(spec.Name, b.Binary, spec.ContextWindow, maxTokens), nil
	case KindVertex:
		return NewVertex(spec.Name, VertexVariant(spec.Variant), b.Binary, maxTokens)
	case KindAnthropic:
		return NewAnthropic(spec.Name, model, b.AnthropicKey, b.AnthropicBaseURL, spec.ContextWindow, maxTokens), nil
	case KindOpenRouter:
		return NewOpenRouter(spec.Name, model, b.OpenRouterKey, b.OpenRouterBaseURL, spec.ContextWindow, maxTokens, b.HTTPClient), nil
	default:
		return nil, errs.Msg("llm.registry", errs.ErrInvalidArgument, fmt.Sprintf("model %q has unknown kind %q", spec.Name, spec.Kind))
	}
}

// Resolve returns the named model; an empty name selects the catalogue
// default.
func (r *Registry) Resolve(name string) (*Model, error) {
	if name == "" {
		name = r.def
	}
	m, ok := r.models[name]
	if !ok {
		return nil, errs.Msg("llm.registry", errs.ErrUnknownModel, fmt.Sprintf("unknown model %q", name))
	}
	return m, nil
}

func (r *Registry) Default() string { return r.def }

// Names lists the registered models in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
