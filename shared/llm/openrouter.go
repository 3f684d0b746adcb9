package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/forge-ai/promptforge/shared/errs"
	"github.com/forge-ai/promptforge/shared/prompt"
)

const openrouterURL = "https://openrouter.ai/api/v1/chat/completions"

// OpenRouter talks to an OpenAI-compatible chat completions endpoint and
// asks for all samples in one request through the n parameter. Endpoints
// that return fewer choices are asked again for the remainder.
type OpenRouter struct {
	name      string
	model     string
	url       string
	apiKey    string
	window    int
	maxTokens int
	client    *http.Client
}

func NewOpenRouter(name, model, apiKey, url string, window, maxTokens int, client *http.Client) *OpenRouter {
	if url == "" {
		url = openrouterURL
	}
	if client == nil {
		client = &http.Client{}
	}
	return &OpenRouter{
		name:      name,
		model:     model,
		url:       url,
		apiKey:    apiKey,
		window:    window,
		maxTokens: maxTokens,
		client:    client,
	}
}

func (or *OpenRouter) Name() string                   { return or.name }
func (or *OpenRouter) ContextWindow() int             { return or.window }
func (or *OpenRouter) EstimateTokens(text string) int { return CharTokens(text) }

func (or *OpenRouter) Generate(ctx context.Context, p *prompt.Prompt, opts Options) ([]RawCompletion, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if or.apiKey == "" {
		return nil, errs.Msg("llm.openrouter", errs.ErrBackendUnavailable, "OPENROUTER_API_KEY is not set")
	}
	if err := EnsureDir(opts.ResponseDir); err != nil {
		return nil, err
	}

	out := make([]RawCompletion, 0, opts.Samples)
	for len(out) < opts.Samples {
		texts, err := or.complete(ctx, p.Segments(), opts.Samples-len(out), opts.Temperature)
		if err != nil {
			return out, errs.E("llm.openrouter", errs.ErrGenerationFailed, err)
		}
		if len(texts) == 0 {
			return out, errs.Msg("llm.openrouter", errs.ErrGenerationFailed, "empty response")
		}
		for _, text := range texts {
			if len(out) == opts.Samples {
				break
			}
			rc, err := WriteArtifact(opts.ResponseDir, len(out)+1, text)
			if err != nil {
				return out, err
			}
			out = append(out, rc)
		}
	}
	return out, nil
}

func (or *OpenRouter) complete(ctx context.Context, segments []prompt.Segment, n int, temperature float64) ([]string, error) {
	body, _ := json.Marshal(map[string]any{
		"model":       or.model,
		"messages":    segments,
		"max_tokens":  or.maxTokens,
		"temperature": temperature,
		"n":           n,
	})

	req, err := http.NewRequestWithContext(ctx, "POST", or.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+or.apiKey)

	resp, err := or.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openrouter request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, fmt.Errorf("decode (status %d): %w", resp.StatusCode, err)
	}
	if response.Error != nil {
		return nil, fmt.Errorf("openrouter: %s", response.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openrouter: status %d", resp.StatusCode)
	}

	texts := make([]string, 0, len(response.Choices))
	for _, c := range response.Choices {
		texts = append(texts, c.Message.Content)
	}
	log.Debug().Str("model", or.model).Int("requested", n).Int("received", len(texts)).Msg("openrouter completions")
	return texts, nil
}
