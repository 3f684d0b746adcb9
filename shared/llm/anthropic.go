package llm

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog/log"

	"github.com/forge-ai/promptforge/shared/errs"
	"github.com/forge-ai/promptforge/shared/prompt"
)

// anthropicMaxTemperature is the API's upper bound; higher requested
// temperatures are clamped.
const anthropicMaxTemperature = 1.0

// Anthropic sends role-tagged segments to the Messages API. Priming
// segments become the system prompt, problem and solution segments become
// user and assistant turns. Each sample is one API call.
type Anthropic struct {
	name      string
	model     string
	window    int
	maxTokens int
	hasKey    bool
	client    anthropic.Client
}

// NewAnthropic never fails: a missing key surfaces as
// errs.ErrBackendUnavailable when Generate is called.
func NewAnthropic(name, model, apiKey, baseURL string, window, maxTokens int) *Anthropic {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Anthropic{
		name:      name,
		model:     model,
		window:    window,
		maxTokens: maxTokens,
		hasKey:    apiKey != "",
		client:    anthropic.NewClient(opts...),
	}
}

func (a *Anthropic) Name() string                   { return a.name }
func (a *Anthropic) ContextWindow() int             { return a.window }
func (a *Anthropic) EstimateTokens(text string) int { return CharTokens(text) }

func (a *Anthropic) params(p *prompt.Prompt, temperature float64) (anthropic.MessageNewParams, error) {
	var system []string
	var messages []anthropic.MessageParam
	for _, seg := range p.Segments() {
		switch seg.Role {
		case prompt.RoleSystem:
			system = append(system, seg.Content)
		case prompt.RoleUser:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(seg.Content)))
		case prompt.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(seg.Content)))
		}
	}
	if len(messages) == 0 {
		return anthropic.MessageNewParams{}, errs.Msg("llm.anthropic", errs.ErrInvalidArgument, "prompt has no problem segment")
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		Messages:    messages,
		MaxTokens:   int64(a.maxTokens),
		Temperature: anthropic.Float(math.Min(temperature, anthropicMaxTemperature)),
	}
	if len(system) > 0 {
		params.System = []anthropic.TextBlockParam{
			{
				Type: "text",
				Text: strings.Join(system, "\n\n"),
			},
		}
	}
	return params, nil
}

func (a *Anthropic) Generate(ctx context.Context, p *prompt.Prompt, opts Options) ([]RawCompletion, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if !a.hasKey {
		return nil, errs.Msg("llm.anthropic", errs.ErrBackendUnavailable, "ANTHROPIC_API_KEY is not set")
	}
	params, err := a.params(p, opts.Temperature)
	if err != nil {
		return nil, err
	}
	if err := EnsureDir(opts.ResponseDir); err != nil {
		return nil, err
	}

	out := make([]RawCompletion, 0, opts.Samples)
	for i := 1; i <= opts.Samples; i++ {
		msg, err := a.client.Messages.New(ctx, params)
		if err != nil {
			return out, errs.E("llm.anthropic", errs.ErrGenerationFailed, fmt.Errorf("sample %d: %w", i, err))
		}

		var sb strings.Builder
		for _, block := range msg.Content {
			if block.Type == "text" {
				sb.WriteString(block.Text)
			}
		}
		log.Debug().Str("model", a.model).Int("sample", i).Str("stop", string(msg.StopReason)).Msg("anthropic completion")

		rc, err := WriteArtifact(opts.ResponseDir, i, sb.String())
		if err != nil {
			return out, err
		}
		out = append(out, rc)
	}
	return out, nil
}
