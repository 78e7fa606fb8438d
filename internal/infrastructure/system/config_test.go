package system

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigLoader_Load_FileNotExists(t *testing.T) {
	loader := NewConfigLoader()
	cfg, err := loader.Load("/nonexistent/config.yaml")

	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, DefaultConfig(), cfg)
	require.NotNil(t, cfg.Gates.Strict)
	assert.True(t, *cfg.Gates.Strict)
	assert.Equal(t, "sha256", cfg.Gates.HashBackend)
}

func TestConfigLoader_Load_EmptyPath(t *testing.T) {
	cfg, err := NewConfigLoader().Load("")

	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Reasoner.Timeout)
}

func TestConfigLoader_Load_ValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yaml := `
gates:
  strict: false
  drift:
    threshold: 0.2
  fingerprint:
    max_retries: 1
reasoner:
  url: http://localhost:8700/evaluate
  max_retries: 5
images:
  root: /srv/renders
metrics:
  textfile: /var/lib/node_exporter/plumbline.prom
`
	require.NoError(t, os.WriteFile(configPath, []byte(yaml), 0600))

	cfg, err := NewConfigLoader().Load(configPath)

	require.NoError(t, err)
	assert.False(t, *cfg.Gates.Strict)
	assert.InDelta(t, 0.2, cfg.Gates.Drift.Threshold, 1e-9)
	assert.InDelta(t, 0.9, cfg.Gates.Drift.Modify.MinSimilarity, 1e-9, "unset fields keep defaults")
	assert.Equal(t, 1, *cfg.Gates.Fingerprint.MaxRetries)
	assert.Equal(t, "http://localhost:8700/evaluate", cfg.Reasoner.URL)
	assert.Equal(t, 5, cfg.Reasoner.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.Reasoner.Timeout)
	assert.Equal(t, "/srv/renders", cfg.Images.Root)
	assert.Equal(t, "/var/lib/node_exporter/plumbline.prom", cfg.Metrics.Textfile)
}

func TestConfigLoader_Load_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"invalid yaml", "gates: [unclosed", "failed to parse system config"},
		{"invalid threshold", "gates:\n  drift:\n    threshold: 3\n", "drift.threshold"},
		{"negative reasoner retries", "reasoner:\n  max_retries: -1\n", "reasoner.max_retries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0600))

			_, err := NewConfigLoader().Load(path)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestDefaultPaths(t *testing.T) {
	t.Setenv("HOME", "/home/architect")

	assert.Equal(t, "/home/architect/.plumbline/config.yaml", DefaultConfigPath())
	assert.Equal(t, "/home/architect/.plumbline/fingerprints", DefaultFingerprintDir())
}
