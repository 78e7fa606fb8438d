package config

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/plumbline-dev/plumbline/internal/application/dto"
)

// maxDocumentSize bounds a single input document.
const maxDocumentSize = 64 << 20

// DocumentLoader reads state, lock, artifact and geometry documents and run
// manifests from disk. YAML documents are converted to JSON so every
// downstream consumer sees one representation.
type DocumentLoader struct {
	substitutor *VariableSubstitutor
}

// NewDocumentLoader creates a document loader.
func NewDocumentLoader() *DocumentLoader {
	return &DocumentLoader{substitutor: NewVariableSubstitutor()}
}

// LoadDocument reads path and returns it as JSON.
func (l *DocumentLoader) LoadDocument(_ context.Context, path string) ([]byte, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if !json.Valid(data) {
			return nil, fmt.Errorf("%s: invalid JSON", path)
		}
		return data, nil
	default:
		converted, err := yaml.YAMLToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to convert YAML: %w", path, err)
		}
		return converted, nil
	}
}

// LoadManifest reads a run manifest, substitutes its variables and resolves
// relative input paths against the manifest's directory.
func (l *DocumentLoader) LoadManifest(_ context.Context, path string) (*dto.RunManifest, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}

	var manifest dto.RunManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to decode run manifest: %w", err)
	}

	if err := l.substitutor.Substitute(&manifest); err != nil {
		return nil, fmt.Errorf("run manifest %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	for _, p := range []*string{
		&manifest.State,
		&manifest.Lock,
		&manifest.Artifacts,
		&manifest.Built,
		&manifest.Baseline,
		&manifest.BaselineArtifacts,
	} {
		*p = resolveRelativePath(dir, *p)
	}
	for i := range manifest.Assets {
		manifest.Assets[i].Path = resolveRelativePath(dir, manifest.Assets[i].Path)
	}

	return &manifest, nil
}

// readFile opens path through an os.Root scoped to its directory so a
// crafted name cannot escape it.
func readFile(path string) ([]byte, error) {
	root, err := os.OpenRoot(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open directory of %s: %w", path, err)
	}
	defer func() {
		_ = root.Close() // Best-effort cleanup
	}()

	file, err := root.Open(filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		_ = file.Close() // Best-effort cleanup
	}()

	data, err := io.ReadAll(io.LimitReader(file, maxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) > maxDocumentSize {
		return nil, fmt.Errorf("%s exceeds %d bytes", path, maxDocumentSize)
	}
	return data, nil
}

// resolveRelativePath resolves p against dir. Empty and absolute paths are
// returned as-is.
func resolveRelativePath(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
