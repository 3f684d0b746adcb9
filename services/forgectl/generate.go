package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/forge-ai/promptforge/shared/codeparse"
	"github.com/forge-ai/promptforge/shared/llm"
	"github.com/forge-ai/promptforge/shared/prompt"
)

type generateFlags struct {
	templates   string
	problem     string
	examples    string
	context     []string
	variant     string
	model       string
	samples     int
	temperature float64
	out         string
	format      string
	strict      bool
}

func newGenerateCmd() *cobra.Command {
	var f generateFlags

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Build a prompt and generate code samples",
		Long: `Build a prompt from the template directory, send it to a catalogue model
and parse every returned sample.

The output directory receives prompt.txt (or prompt.json with --format chat),
one NN.rawoutput per sample and NN.code for every sample that parses.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runGenerate(ctx, cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.templates, "templates", envOr("TEMPLATES_DIR", "./templates"), "Template directory")
	cmd.Flags().StringVar(&f.problem, "problem", "", "File holding the problem statement")
	cmd.Flags().StringVar(&f.examples, "examples", "", "YAML list of {problem, solution} example pairs")
	cmd.Flags().StringSliceVar(&f.context, "context", nil, "Project source files shown as context (repeatable)")
	cmd.Flags().StringVar(&f.variant, "variant", "", "Priming variant (priming_<variant>.txt)")
	cmd.Flags().StringVar(&f.model, "model", "", "Catalogue model (default: catalogue default)")
	cmd.Flags().IntVar(&f.samples, "samples", 0, "Samples to request (0 = model default)")
	cmd.Flags().Float64Var(&f.temperature, "temperature", -1, "Sampling temperature (negative = model default)")
	cmd.Flags().StringVar(&f.out, "out", "./responses", "Output directory")
	cmd.Flags().StringVar(&f.format, "format", "text", "Prompt format: text or chat")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "Reject samples without a closing solution marker")
	_ = cmd.MarkFlagRequired("problem")
	return cmd
}

func runGenerate(ctx context.Context, cmd *cobra.Command, f generateFlags) error {
	format, err := prompt.ParseFormat(f.format)
	if err != nil {
		return err
	}
	tpl, err := prompt.LoadTemplates(f.templates)
	if err != nil {
		return err
	}

	problem, err := os.ReadFile(f.problem)
	if err != nil {
		return fmt.Errorf("read problem: %w", err)
	}
	examples, err := loadExamples(f.examples)
	if err != nil {
		return err
	}
	var project []string
	for _, path := range f.context {
		b, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read context: %w", err)
		}
		project = append(project, string(b))
	}

	p, err := prompt.NewBuilder(tpl, format).Build(string(problem), f.variant, examples, project)
	if err != nil {
		return err
	}

	reg, err := loadRegistry(cmd)
	if err != nil {
		return err
	}
	model, err := reg.Resolve(f.model)
	if err != nil {
		return err
	}

	opts := model.Options(f.samples, f.temperature, f.out)
	if err := opts.Validate(); err != nil {
		return err
	}
	if err := llm.EnsureDir(f.out); err != nil {
		return err
	}
	if err := p.Save(filepath.Join(f.out, "prompt"+format.Ext())); err != nil {
		return err
	}

	tokens := model.EstimateTokens(p.String())
	if tokens > model.ContextWindow() {
		log.Warn().Str("model", model.Name()).Int("tokens", tokens).Int("window", model.ContextWindow()).
			Msg("prompt exceeds context window")
	}
	log.Info().Str("model", model.Name()).Int("samples", opts.Samples).Float64("temperature", opts.Temperature).
		Int("tokens", tokens).Msg("generating")

	completions, err := model.Generate(ctx, p, opts)
	if err != nil {
		return err
	}

	parser := codeparse.Parser{Strict: f.strict}
	parsed := 0
	for _, c := range completions {
		raw := llm.ArtifactName(c.Index)
		code, err := parser.Parse(c.Text)
		if err == nil {
			err = os.WriteFile(filepath.Join(f.out, codeparse.CodeName(raw)), []byte(code), 0o644)
		}
		if err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", raw, err)
			continue
		}
		parsed++
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", raw, codeparse.CodeName(raw))
	}
	if parsed == 0 {
		return fmt.Errorf("none of %d samples parsed", len(completions))
	}
	return nil
}

func loadExamples(path string) ([]prompt.Example, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read examples: %w", err)
	}
	var examples []prompt.Example
	if err := yaml.Unmarshal(b, &examples); err != nil {
		return nil, fmt.Errorf("parse examples %s: %w", path, err)
	}
	return examples, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
