package prompt

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/forge-ai/promptforge/shared/errs"
)

// Fragment file names inside a template directory.
const (
	PrimingFile  = "priming.txt"
	ProblemFile  = "problem.txt"
	SolutionFile = "solution.txt"
	ContextFile  = "context.txt"
)

// Placeholder tokens replaced inside fragments.
const (
	PlaceholderProblem  = "{{PROBLEM}}"
	PlaceholderSolution = "{{SOLUTION}}"
	PlaceholderContext  = "{{CONTEXT}}"
)

var placeholderRe = regexp.MustCompile(`\{\{[A-Z][A-Z0-9_]*\}\}`)

// Templates holds the fragments read from a template directory.
// Priming variants come from priming_<variant>.txt; the empty variant is
// priming.txt itself.
type Templates struct {
	Dir      string
	Priming  map[string]string
	Problem  string
	Solution string
	Context  string
}

// LoadTemplates reads all fragments from dir once.
func LoadTemplates(dir string) (*Templates, error) {
	read := func(name string) (string, error) {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", errs.Msg("prompt.templates", errs.ErrMissingTemplate, fmt.Sprintf("%s not found in %s", name, dir))
			}
			return "", errs.E("prompt.templates", errs.ErrIO, err)
		}
		return strings.TrimRight(string(b), "\r\n"), nil
	}

	t := &Templates{Dir: dir, Priming: make(map[string]string)}
	var err error
	if t.Priming[""], err = read(PrimingFile); err != nil {
		return nil, err
	}
	if t.Problem, err = read(ProblemFile); err != nil {
		return nil, err
	}
	if t.Solution, err = read(SolutionFile); err != nil {
		return nil, err
	}
	if t.Context, err = read(ContextFile); err != nil {
		return nil, err
	}

	matches, err := filepath.Glob(filepath.Join(dir, "priming_*.txt"))
	if err != nil {
		return nil, errs.E("prompt.templates", errs.ErrIO, err)
	}
	for _, m := range matches {
		name := filepath.Base(m)
		variant := strings.TrimSuffix(strings.TrimPrefix(name, "priming_"), ".txt")
		if variant == "" {
			continue
		}
		if t.Priming[variant], err = read(name); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// PrimingFor returns the priming fragment for variant.
func (t *Templates) PrimingFor(variant string) (string, error) {
	s, ok := t.Priming[variant]
	if !ok {
		return "", errs.Msg("prompt.templates", errs.ErrMissingTemplate, fmt.Sprintf("no priming variant %q", variant))
	}
	return s, nil
}

// Variants lists the named priming variants, sorted.
func (t *Templates) Variants() []string {
	out := make([]string, 0, len(t.Priming))
	for v := range t.Priming {
		if v != "" {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

// Fill replaces each placeholder key in fragment with its value, verbatim.
// Placeholders without a value are left as literal text.
func Fill(fragment string, values map[string]string) string {
	if len(values) == 0 {
		return fragment
	}
	pairs := make([]string, 0, len(values)*2)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		pairs = append(pairs, k, values[k])
	}
	return strings.NewReplacer(pairs...).Replace(fragment)
}

// Unresolved lists the placeholder tokens still present in text.
func Unresolved(text string) []string {
	return placeholderRe.FindAllString(text, -1)
}
