package llm

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/forge-ai/promptforge/shared/errs"
	"github.com/forge-ai/promptforge/shared/prompt"
)

// Binary delegates generation to an external executable, which must write
// NN.rawoutput files into the response directory and exit 0.
type Binary struct {
	name      string
	path      string
	window    int
	maxTokens int
}

func NewBinary(name, path string, window, maxTokens int) *Binary {
	return &Binary{name: name, path: path, window: window, maxTokens: maxTokens}
}

func (b *Binary) Name() string                   { return b.name }
func (b *Binary) ContextWindow() int             { return b.window }
func (b *Binary) EstimateTokens(text string) int { return WordTokens(text) }

// Args is the command line passed to the executable.
func (b *Binary) Args(p *prompt.Prompt, opts Options) []string {
	return []string{
		"-model=" + b.name,
		"-prompt=" + p.String(),
		"-response=" + opts.ResponseDir,
		"-max-tokens=" + strconv.Itoa(b.maxTokens),
		"-expected-samples=" + strconv.Itoa(opts.Samples),
		"-temperature=" + strconv.FormatFloat(opts.Temperature, 'g', -1, 64),
	}
}

// Generate blocks until the process exits or ctx is cancelled.
func (b *Binary) Generate(ctx context.Context, p *prompt.Prompt, opts Options) ([]RawCompletion, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if b.path == "" {
		return nil, errs.Msg("llm.binary", errs.ErrBackendUnavailable, "AI binary not specified")
	}
	if err := EnsureDir(opts.ResponseDir); err != nil {
		return nil, err
	}
	// Only samples written by this run count.
	if err := ClearArtifacts(opts.ResponseDir); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, b.path, b.Args(p, opts)...)
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Start(); err != nil {
		return nil, errs.E("llm.binary", errs.ErrSpawnFailed, err)
	}
	log.Debug().Str("model", b.name).Int("pid", cmd.Process.Pid).Msg("ai binary started")

	if err := cmd.Wait(); err != nil {
		return nil, errs.E("llm.binary", errs.ErrGenerationFailed,
			fmt.Errorf("%s: %w: %s", b.path, err, strings.TrimSpace(out.String())))
	}

	samples, err := ReadArtifacts(opts.ResponseDir, opts.Samples)
	if err != nil {
		return samples, errs.E("llm.binary", errs.ErrGenerationFailed,
			fmt.Errorf("expected %d samples, found %d: %w", opts.Samples, len(samples), err))
	}
	return samples, nil
}
