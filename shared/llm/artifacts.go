package llm

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/forge-ai/promptforge/shared/errs"
)

// ArtifactName is the file name of the 1-based sample i.
func ArtifactName(i int) string {
	return fmt.Sprintf("%02d.rawoutput", i)
}

// WriteArtifact writes one sample. The file is synced and closed before
// returning on every path.
func WriteArtifact(dir string, index int, text string) (RawCompletion, error) {
	path := filepath.Join(dir, ArtifactName(index))
	if err := writeSynced(path, []byte(text)); err != nil {
		return RawCompletion{}, errs.E("llm.artifact", errs.ErrIO, err)
	}
	return RawCompletion{Index: index, Text: text, Path: path}, nil
}

// WriteArtifacts writes texts as samples 1..n in order. On failure the
// samples already written are left intact and returned.
func WriteArtifacts(dir string, texts []string) ([]RawCompletion, error) {
	if err := EnsureDir(dir); err != nil {
		return nil, err
	}
	out := make([]RawCompletion, 0, len(texts))
	for i, text := range texts {
		rc, err := WriteArtifact(dir, i+1, text)
		if err != nil {
			return out, err
		}
		out = append(out, rc)
	}
	return out, nil
}

// EnsureDir creates the response directory if needed.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.E("llm.artifact", errs.ErrIO, err)
	}
	return nil
}

// ClearArtifacts removes every sample file left in dir by an earlier run.
func ClearArtifacts(dir string) error {
	stale, err := filepath.Glob(filepath.Join(dir, "*.rawoutput"))
	if err != nil {
		return errs.E("llm.artifact", errs.ErrIO, err)
	}
	for _, path := range stale {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return errs.E("llm.artifact", errs.ErrIO, err)
		}
	}
	return nil
}

// ReadArtifacts loads samples 1..n from dir.
func ReadArtifacts(dir string, n int) ([]RawCompletion, error) {
	out := make([]RawCompletion, 0, n)
	for i := 1; i <= n; i++ {
		path := filepath.Join(dir, ArtifactName(i))
		b, err := os.ReadFile(path)
		if err != nil {
			return out, errs.E("llm.artifact", errs.ErrIO, err)
		}
		out = append(out, RawCompletion{Index: i, Text: string(b), Path: path})
	}
	return out, nil
}

func writeSynced(path string, data []byte) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err = f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}
