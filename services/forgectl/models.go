package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List catalogue models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadRegistry(cmd)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tKIND\tWINDOW\tSAMPLES\tTEMPERATURE")
			for _, name := range reg.Names() {
				m, err := reg.Resolve(name)
				if err != nil {
					return err
				}
				if name == reg.Default() {
					name += " *"
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.2f\n", name, m.Kind, m.ContextWindow(), m.Samples, m.Temperature)
			}
			return w.Flush()
		},
	}
}

func newTokensCmd() *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "tokens [file]",
		Short: "Estimate the token count of a prompt for a model",
		Long:  "Estimate the token count of a file (or stdin with - or no argument) using the model's estimator.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				b   []byte
				err error
			)
			if len(args) == 0 || args[0] == "-" {
				b, err = io.ReadAll(cmd.InOrStdin())
			} else {
				b, err = os.ReadFile(args[0])
			}
			if err != nil {
				return err
			}

			reg, err := loadRegistry(cmd)
			if err != nil {
				return err
			}
			m, err := reg.Resolve(model)
			if err != nil {
				return err
			}

			n := m.EstimateTokens(string(b))
			fmt.Fprintf(cmd.OutOrStdout(), "%d tokens (%s, window %d)\n", n, m.Name(), m.ContextWindow())
			if n > m.ContextWindow() {
				return fmt.Errorf("prompt exceeds the %d token window of %s", m.ContextWindow(), m.Name())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&model, "model", "", "Catalogue model (default: catalogue default)")
	return cmd
}
