package llm

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/forge-ai/promptforge/shared/errs"
)

func TestDefaultCatalog_ResolvesEveryEntry(t *testing.T) {
	c := DefaultCatalog()
	r, err := NewRegistry(c, Backends{})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	if len(r.Names()) != len(c.Models) {
		t.Fatalf("Names() = %v, catalogue has %d entries", r.Names(), len(c.Models))
	}
	for _, name := range r.Names() {
		m, err := r.Resolve(name)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", name, err)
		}
		if m.ContextWindow() <= 0 {
			t.Fatalf("%s: ContextWindow() = %d", name, m.ContextWindow())
		}
	}

	m, err := r.Resolve("")
	if err != nil || m.Name() != "simulated" {
		t.Fatalf("Resolve(\"\") = %v, %v; want the simulated default", m, err)
	}
}

func TestRegistry_VertexUsesCatalogueName(t *testing.T) {
	c, err := ParseCatalog([]byte("default: bison-fast\nmodels:\n  - {name: bison-fast, kind: vertex, variant: code-bison}\n"))
	if err != nil {
		t.Fatal(err)
	}
	r, err := NewRegistry(c, Backends{})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	m, err := r.Resolve("bison-fast")
	if err != nil {
		t.Fatal(err)
	}
	if m.Name() != "bison-fast" || m.ContextWindow() != 6144 {
		t.Fatalf("Name() = %q, ContextWindow() = %d", m.Name(), m.ContextWindow())
	}
}

func TestRegistry_UnknownModel(t *testing.T) {
	r, err := NewRegistry(DefaultCatalog(), Backends{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Resolve("gpt-4"); !errors.Is(err, errs.ErrUnknownModel) {
		t.Fatalf("Resolve(gpt-4) = %v, want ErrUnknownModel", err)
	}
}

func TestNewRegistry_InvalidCatalog(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{"duplicate", "models:\n  - {name: a, kind: simulated}\n  - {name: a, kind: simulated}\n", errs.ErrInvalidArgument},
		{"unknown kind", "models:\n  - {name: a, kind: quantum}\n", errs.ErrInvalidArgument},
		{"nameless", "models:\n  - {kind: simulated}\n", errs.ErrInvalidArgument},
		{"bad vertex variant", "models:\n  - {name: v, kind: vertex, variant: palm}\n", errs.ErrUnknownModel},
		{"missing default", "default: b\nmodels:\n  - {name: a, kind: simulated}\n", errs.ErrUnknownModel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseCatalog([]byte(tt.yaml))
			if err != nil {
				t.Fatalf("ParseCatalog: %v", err)
			}
			if _, err := NewRegistry(c, Backends{}); !errors.Is(err, tt.want) {
				t.Fatalf("NewRegistry() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	body := "default: local\nmodels:\n  - name: local\n    kind: simulated\n    context_window: 100\n    samples: 3\n    temperature: 0.7\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	r, err := NewRegistry(c, Backends{})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	m, err := r.Resolve("local")
	if err != nil {
		t.Fatal(err)
	}
	if m.Samples != 3 || m.Temperature != 0.7 || m.ContextWindow() != 100 || m.Kind != KindSimulated {
		t.Fatalf("model = %+v", m)
	}

	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, errs.ErrIO) {
		t.Fatalf("LoadCatalog(missing) = %v, want ErrIO", err)
	}
	if _, err := ParseCatalog([]byte("models: [")); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("ParseCatalog(garbage) = %v, want ErrInvalidArgument", err)
	}
}

func TestModel_Options(t *testing.T) {
	m := &Model{Provider: NewSimulated("s", 1), Samples: 4, Temperature: 0.3}

	if got := m.Options(0, -1, "d"); got != (Options{Samples: 4, Temperature: 0.3, ResponseDir: "d"}) {
		t.Fatalf("Options(defaults) = %+v", got)
	}
	if got := m.Options(2, 0, "d"); got != (Options{Samples: 2, Temperature: 0, ResponseDir: "d"}) {
		t.Fatalf("Options(overrides) = %+v", got)
	}
}

func TestRegistry_ConcurrentResolve(t *testing.T) {
	r, err := NewRegistry(DefaultCatalog(), Backends{})
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, name := range r.Names() {
				if _, err := r.Resolve(name); err != nil {
					t.Errorf("Resolve(%q): %v", name, err)
				}
			}
		}()
	}
	wg.Wait()
}
