package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func write(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParse_File(t *testing.T) {
	dir := t.TempDir()
	raw := write(t, filepath.Join(dir, "01.rawoutput"), "<code>\n```go\nfoo()\n\n```\n</code>\n</solution>\nchatter")

	out, err := run(t, "parse", "-r", raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if out != "foo()\n" {
		t.Fatalf("stdout = %q, want %q", out, "foo()\n")
	}

	dst := filepath.Join(dir, "parsed.go")
	if _, err := run(t, "parse", "-r", raw, "-o", dst); err != nil {
		t.Fatalf("parse -o: %v", err)
	}
	b, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "foo()" {
		t.Fatalf("written = %q, want foo()", b)
	}
}

func TestParse_Directory(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "01.rawoutput"), "a()\n</solution>")
	write(t, filepath.Join(dir, "02.rawoutput"), "b()\n</solution>")
	write(t, filepath.Join(dir, "notes.txt"), "ignored")
	out := filepath.Join(dir, "parsed")

	stdout, err := run(t, "parse", "-r", dir, "-o", out)
	if err != nil {
		t.Fatalf("parse dir: %v", err)
	}
	if !strings.Contains(stdout, "01.rawoutput -> 01.code") || !strings.Contains(stdout, "02.rawoutput -> 02.code") {
		t.Fatalf("stdout = %q", stdout)
	}
	for name, want := range map[string]string{"01.code": "a()", "02.code": "b()"} {
		b, err := os.ReadFile(filepath.Join(out, name))
		if err != nil {
			t.Fatal(err)
		}
		if string(b) != want {
			t.Fatalf("%s = %q, want %q", name, b, want)
		}
	}
}

func TestParse_StrictReportsFailures(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "01.rawoutput"), "a()\n</solution>")
	write(t, filepath.Join(dir, "02.rawoutput"), "no marker here")

	stdout, err := run(t, "parse", "-r", dir, "--strict")
	if err == nil || !strings.Contains(err.Error(), "1 of 2 files failed") {
		t.Fatalf("err = %v, want a failure summary", err)
	}
	if !strings.Contains(stdout, "02.rawoutput: codeparse: no solution marker") {
		t.Fatalf("stdout = %q", stdout)
	}
	if _, err := os.Stat(filepath.Join(dir, "01.code")); err != nil {
		t.Fatalf("01.code should still be written: %v", err)
	}

	// Lenient mode accepts the same directory.
	if _, err := run(t, "parse", "-r", dir); err != nil {
		t.Fatalf("lenient parse: %v", err)
	}
}

func TestParse_EmptyDirectory(t *testing.T) {
	if _, err := run(t, "parse", "-r", t.TempDir()); err == nil {
		t.Fatal("expected an error for a directory without raw outputs")
	}
}

func TestModels(t *testing.T) {
	out, err := run(t, "models", "--models", "")
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	for _, want := range []string{"NAME", "simulated *", "vertex_ai_code-bison-32k", "claude-sonnet"} {
		if !strings.Contains(out, want) {
			t.Fatalf("models output missing %q:\n%s", want, out)
		}
	}
}

func TestTokens(t *testing.T) {
	dir := t.TempDir()
	path := write(t, filepath.Join(dir, "prompt.txt"), "func add(a, b int) int { return a + b }")

	out, err := run(t, "tokens", "--model", "simulated", path)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	if !strings.HasPrefix(out, "13 tokens (simulated, window 2000)") {
		t.Fatalf("tokens output = %q", out)
	}

	if _, err := run(t, "tokens", "--model", "gpt-4", path); err == nil {
		t.Fatal("expected unknown model error")
	}
}

func writeTemplates(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	write(t, filepath.Join(dir, "priming.txt"), "You write Go.")
	write(t, filepath.Join(dir, "problem.txt"), "<problem>{{PROBLEM}}</problem>")
	write(t, filepath.Join(dir, "solution.txt"), "<solution>{{SOLUTION}}</solution>")
	write(t, filepath.Join(dir, "context.txt"), "Project code:\n{{CONTEXT}}")
	return dir
}

func TestGenerate_Simulated(t *testing.T) {
	tpl := writeTemplates(t)
	work := t.TempDir()
	problem := write(t, filepath.Join(work, "task.txt"), "reverse a string")
	examples := write(t, filepath.Join(work, "examples.yaml"), "- problem: add two ints\n  solution: func add(a, b int) int { return a + b }\n")
	out := filepath.Join(work, "out")

	stdout, err := run(t, "generate",
		"--templates", tpl,
		"--problem", problem,
		"--examples", examples,
		"--model", "simulated",
		"--samples", "2",
		"--out", out,
	)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(stdout, "02.rawoutput -> 02.code") {
		t.Fatalf("stdout = %q", stdout)
	}

	b, err := os.ReadFile(filepath.Join(out, "prompt.txt"))
	if err != nil {
		t.Fatal(err)
	}
	want := "You write Go.\n" +
		"<problem>add two ints</problem>\n" +
		"<solution>func add(a, b int) int { return a + b }</solution>\n" +
		"<problem>reverse a string</problem>\n"
	if string(b) != want {
		t.Fatalf("prompt.txt = %q, want %q", b, want)
	}

	for _, name := range []string{"01.rawoutput", "02.rawoutput", "01.code", "02.code"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}
}

func TestGenerate_ChatFormat(t *testing.T) {
	tpl := writeTemplates(t)
	work := t.TempDir()
	problem := write(t, filepath.Join(work, "task.txt"), "sum a slice")
	out := filepath.Join(work, "out")

	if _, err := run(t, "generate", "--templates", tpl, "--problem", problem, "--format", "chat", "--out", out); err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(out, "prompt.json"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"role":"system"`) || !strings.Contains(string(b), "sum a slice") {
		t.Fatalf("prompt.json = %s", b)
	}
}

func TestGenerate_Errors(t *testing.T) {
	tpl := writeTemplates(t)
	work := t.TempDir()
	problem := write(t, filepath.Join(work, "task.txt"), "x")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing problem flag", []string{"generate", "--templates", tpl}, "problem"},
		{"unknown model", []string{"generate", "--templates", tpl, "--problem", problem, "--model", "gpt-4", "--out", work}, "unknown model"},
		{"bad format", []string{"generate", "--templates", tpl, "--problem", problem, "--format", "xml", "--out", work}, "xml"},
		{"bad temperature", []string{"generate", "--templates", tpl, "--problem", problem, "--temperature", "3", "--out", work}, "invalid argument"},
		{"missing templates", []string{"generate", "--templates", work, "--problem", problem, "--out", work}, "missing template"},
		{"not implemented tier", []string{"generate", "--templates", tpl, "--problem", problem, "--model", "vertex_ai_gemini-pro", "--out", filepath.Join(work, "g")}, "not implemented"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := run(t, tc.args...)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want it to mention %q", err, tc.want)
			}
		})
	}
}
