package prompt

import (
	"strings"

	"github.com/forge-ai/promptforge/shared/events"
	"github.com/rs/zerolog/log"
)

// Example is a worked problem/solution pair shown to the model before the
// real problem.
type Example struct {
	Problem  string `yaml:"problem" json:"problem"`
	Solution string `yaml:"solution" json:"solution"`
}

// Builder turns caller content into a Prompt using a fixed set of templates.
// It holds no per-call state and is safe for concurrent use.
type Builder struct {
	tpl    *Templates
	format Format
}

func NewBuilder(tpl *Templates, format Format) *Builder {
	return &Builder{tpl: tpl, format: format}
}

// Build assembles: priming (variant), project context, example pairs, then
// the problem itself.
func (b *Builder) Build(problem, variant string, examples []Example, projectExamples []string) (*Prompt, error) {
	priming, err := b.tpl.PrimingFor(variant)
	if err != nil {
		return nil, err
	}

	p := New(b.format)
	p.AddPriming(b.fill("priming", priming, nil))

	if len(projectExamples) > 0 {
		p.AddPriming(b.fill("context", b.tpl.Context, map[string]string{
			PlaceholderContext: strings.Join(projectExamples, "\n\n"),
		}))
	}

	for _, ex := range examples {
		p.AddProblem(b.fill("problem", b.tpl.Problem, map[string]string{PlaceholderProblem: ex.Problem}))
		p.AddSolution(b.fill("solution", b.tpl.Solution, map[string]string{PlaceholderSolution: ex.Solution}))
	}

	p.AddProblem(b.fill("problem", b.tpl.Problem, map[string]string{PlaceholderProblem: problem}))
	return p, nil
}

// FromRequest builds the prompt for a relay request. A non-empty request
// priming replaces the default priming fragment; the solution segment is
// only added when the request carries a partial solution.
func (b *Builder) FromRequest(req events.GenerationRequest) *Prompt {
	p := New(b.format)

	if req.Priming != "" {
		p.AddPriming(req.Priming)
	} else {
		p.AddPriming(b.fill("priming", b.tpl.Priming[""], nil))
	}

	p.AddProblem(b.fill("problem", b.tpl.Problem, map[string]string{PlaceholderProblem: req.Problem}))

	if req.Solution != "" {
		p.AddSolution(b.fill("solution", b.tpl.Solution, map[string]string{PlaceholderSolution: req.Solution}))
	}
	return p
}

func (b *Builder) fill(fragment, text string, values map[string]string) string {
	out := Fill(text, values)
	if left := Unresolved(text); len(left) > 0 {
		var missing []string
		for _, ph := range left {
			if _, ok := values[ph]; !ok {
				missing = append(missing, ph)
			}
		}
		if len(missing) > 0 {
			log.Debug().Str("fragment", fragment).Strs("placeholders", missing).Msg("unresolved placeholders left literal")
		}
	}
	return out
}
