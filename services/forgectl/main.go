// forgectl is the operator CLI for the prompt pipeline: it builds prompts,
// runs a single generation against any catalogue model, and parses raw
// completions offline.
//
//	forgectl generate --problem task.txt --model simulated --samples 3
//	forgectl parse -r responses/ -o parsed/
//	forgectl models
//	forgectl tokens --model claude-sonnet prompt.txt
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/forge-ai/promptforge/shared/llm"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	var debug bool

	root := &cobra.Command{
		Use:   "forgectl",
		Short: "Prompt pipeline operator CLI",
		Long: `forgectl drives the prompt pipeline without the relay.

  forgectl generate --problem task.txt        Build a prompt and generate samples
  forgectl parse -r 01.rawoutput              Extract code from a raw completion
  forgectl models                             List catalogue models
  forgectl tokens --model m prompt.txt        Estimate prompt size for a model`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: "15:04:05"})
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
			if debug || os.Getenv("DEBUG") == "1" {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().String("models", os.Getenv("MODELS_FILE"), "Model catalogue YAML (default: embedded catalogue)")

	root.AddCommand(newParseCmd(), newGenerateCmd(), newModelsCmd(), newTokensCmd())
	return root
}

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadRegistry builds the model registry from the --models flag and the
// backend credentials in the environment.
func loadRegistry(cmd *cobra.Command) (*llm.Registry, error) {
	path, _ := cmd.Flags().GetString("models")
	cat, err := llm.LoadCatalog(path)
	if err != nil {
		return nil, err
	}
	return llm.NewRegistry(cat, llm.Backends{
		Binary:        os.Getenv("AI_BINARY"),
		AnthropicKey:  os.Getenv("ANTHROPIC_API_KEY"),
		OpenRouterKey: os.Getenv("OPENROUTER_API_KEY"),
	})
}
