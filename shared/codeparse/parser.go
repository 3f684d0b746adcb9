// Package codeparse extracts the code block from an unstructured model
// completion. Models delimit their answers inconsistently, so the parser is
// tolerant: it cuts at the closing solution marker, drops code tags and
// fence lines, and removes blank lines without reordering anything.
package codeparse

import (
	"os"
	"strings"

	"github.com/forge-ai/promptforge/shared/errs"
)

const (
	SolutionClose = "</solution>"
	CodeOpen      = "<code>"
	CodeClose     = "</code>"
	Fence         = "```"

	RawOutputExt = ".rawoutput"
	CodeExt      = ".code"
)

// Parser extracts code from raw completions. With Strict set, a completion
// without a closing solution marker is rejected with errs.ErrNoSolutionMarker;
// otherwise the whole text is treated as the candidate.
type Parser struct {
	Strict bool
}

// Parse runs the lenient parser.
func Parse(raw string) (string, error) {
	return Parser{}.Parse(raw)
}

func (p Parser) Parse(raw string) (string, error) {
	candidate, _, found := strings.Cut(raw, SolutionClose)
	if !found && p.Strict {
		return "", errs.Msg("codeparse", errs.ErrNoSolutionMarker, "completion has no "+SolutionClose)
	}

	candidate = strings.ReplaceAll(candidate, CodeOpen, "")
	candidate = strings.ReplaceAll(candidate, CodeClose, "")

	lines := strings.Split(candidate, "\n")
	kept := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, Fence) {
			continue
		}
		kept = append(kept, strings.TrimRight(line, "\r"))
	}
	return strings.Join(kept, "\n"), nil
}

// IsRawOutput reports whether name is a sample artifact.
func IsRawOutput(name string) bool {
	return strings.HasSuffix(name, RawOutputExt)
}

// CodeName maps a raw completion file name to the name of its parsed code
// file: 01.rawoutput becomes 01.code.
func CodeName(rawName string) string {
	return strings.TrimSuffix(rawName, RawOutputExt) + CodeExt
}

// ParseFile reads a raw completion file and parses it.
func (p Parser) ParseFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", errs.E("codeparse.read", errs.ErrIO, err)
	}
	return p.Parse(string(b))
}
