package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDocument_YAMLBecomesJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "lock.yaml", `
levelCount: 2
spaces:
  - name: kitchen
    lockedLevel: 0
    count: 1
`)

	data, err := NewDocumentLoader().LoadDocument(context.Background(), path)

	require.NoError(t, err)
	assert.JSONEq(t, `{"levelCount":2,"spaces":[{"name":"kitchen","lockedLevel":0,"count":1}]}`, string(data))
}

func TestLoadDocument_JSONPassesThrough(t *testing.T) {
	dir := t.TempDir()
	raw := `{"seed": 7, "hash": "abc"}`
	path := writeFile(t, dir, "state.json", raw)

	data, err := NewDocumentLoader().LoadDocument(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, raw, string(data))
}

func TestLoadDocument_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "state.json", `{"seed": `)
	badYAML := writeFile(t, dir, "lock.yaml", "spaces: [[[")

	loader := NewDocumentLoader()

	_, err := loader.LoadDocument(context.Background(), bad)
	assert.ErrorContains(t, err, "invalid JSON")

	_, err = loader.LoadDocument(context.Background(), badYAML)
	assert.ErrorContains(t, err, "failed to convert YAML")

	_, err = loader.LoadDocument(context.Background(), filepath.Join(dir, "missing.json"))
	assert.ErrorContains(t, err, "failed to open")
}

func TestLoadManifest_ResolvesPaths(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "runs/run.yaml", `
run_id: 9f0c6a1e-6a55-4c36-8e8f-2f1b0f0f4a11
vars:
  iter: iter-2
state: "{{ .vars.iter }}/state.json"
lock: /abs/lock.yaml
artifacts: "{{ .vars.iter }}/artifacts.json"
attempt: 1
check_edges: true
assets:
  - name: site photo
    path: assets/site.png
    required: true
`)

	m, err := NewDocumentLoader().LoadManifest(context.Background(), path)

	require.NoError(t, err)
	runs := filepath.Join(dir, "runs")
	assert.Equal(t, "9f0c6a1e-6a55-4c36-8e8f-2f1b0f0f4a11", m.RunID)
	assert.Equal(t, filepath.Join(runs, "iter-2", "state.json"), m.State)
	assert.Equal(t, "/abs/lock.yaml", m.Lock)
	assert.Equal(t, filepath.Join(runs, "iter-2", "artifacts.json"), m.Artifacts)
	assert.Empty(t, m.Baseline)
	assert.Equal(t, 1, m.Attempt)
	assert.True(t, m.CheckEdges)
	require.Len(t, m.Assets, 1)
	assert.True(t, m.Assets[0].Required)
	assert.Equal(t, filepath.Join(runs, "assets", "site.png"), m.Assets[0].Path)
}

func TestLoadManifest_BadVariable(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "run.yaml", "state: \"{{ .vars.missing }}\"\nlock: lock.json\n")

	_, err := NewDocumentLoader().LoadManifest(context.Background(), path)

	assert.ErrorContains(t, err, "variable not found: missing")
}
