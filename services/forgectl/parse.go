package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/forge-ai/promptforge/shared/codeparse"
)

func newParseCmd() *cobra.Command {
	var (
		rawPath string
		outPath string
		strict  bool
	)

	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Extract code from raw completions",
		Long: `Parse a raw completion file, or every *.rawoutput file in a directory.

For a single file the code is written to -o, or stdout when -o is omitted.
For a directory each NN.rawoutput becomes NN.code inside -o (default: the
same directory).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := codeparse.Parser{Strict: strict}

			info, err := os.Stat(rawPath)
			if err != nil {
				return err
			}
			if !info.IsDir() {
				code, err := p.ParseFile(rawPath)
				if err != nil {
					return err
				}
				if outPath == "" {
					fmt.Fprintln(cmd.OutOrStdout(), code)
					return nil
				}
				return os.WriteFile(outPath, []byte(code), 0o644)
			}
			return parseDir(cmd, p, rawPath, outPath)
		},
	}
	cmd.Flags().StringVarP(&rawPath, "raw", "r", "", "Raw completion file or directory")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file or directory")
	cmd.Flags().BoolVar(&strict, "strict", false, "Reject completions without a closing solution marker")
	_ = cmd.MarkFlagRequired("raw")
	return cmd
}

func parseDir(cmd *cobra.Command, p codeparse.Parser, dir, outDir string) error {
	if outDir == "" {
		outDir = dir
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && codeparse.IsRawOutput(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		return fmt.Errorf("no %s files in %s", codeparse.RawOutputExt, dir)
	}

	failed := 0
	for _, name := range names {
		code, err := p.ParseFile(filepath.Join(dir, name))
		if err == nil {
			err = os.WriteFile(filepath.Join(outDir, codeparse.CodeName(name)), []byte(code), 0o644)
		}
		if err != nil {
			failed++
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", name, err)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", name, codeparse.CodeName(name))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to parse", failed, len(names))
	}
	return nil
}
