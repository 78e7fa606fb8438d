package output

import (
	"bytes"
	"testing"

	"github.com/plumbline-dev/plumbline/internal/application/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatterFactory_Create(t *testing.T) {
	factory := NewFormatterFactory()
	buf := &bytes.Buffer{}

	tests := []struct {
		name        string
		format      string
		options     ports.FormatterOptions
		wantErr     bool
		wantType    interface{}
		errContains string
	}{
		{
			name:     "table format",
			format:   "table",
			wantType: &TableFormatter{},
		},
		{
			name:     "json format",
			format:   "json",
			options:  ports.FormatterOptions{Indent: true},
			wantType: &JSONFormatter{},
		},
		{
			name:     "yaml format",
			format:   "yaml",
			wantType: &YAMLFormatter{},
		},
		{
			name:     "junit format",
			format:   "junit",
			wantType: &JUnitFormatter{},
		},
		{
			name:     "sarif format",
			format:   "sarif",
			options:  ports.FormatterOptions{SourcePath: "run.yaml"},
			wantType: &SARIFFormatter{},
		},
		{
			name:        "unknown format",
			format:      "invalid",
			wantErr:     true,
			errContains: "unknown format: invalid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatter, err := factory.Create(tt.format, buf, tt.options)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}

			require.NoError(t, err)
			assert.NotNil(t, formatter)
			assert.IsType(t, tt.wantType, formatter)
		})
	}
}

func TestFormatterFactory_SupportedFormats(t *testing.T) {
	factory := NewFormatterFactory()
	formats := factory.SupportedFormats()

	assert.Equal(t, []string{"table", "json", "yaml", "junit", "sarif"}, formats)
}

func TestFormatterFactory_EveryFormatRendersResult(t *testing.T) {
	factory := NewFormatterFactory()
	result := createTestResult()

	for _, format := range factory.SupportedFormats() {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			formatter, err := factory.Create(format, &buf, ports.FormatterOptions{Indent: true, SourcePath: result.Source})
			require.NoError(t, err)

			require.NoError(t, formatter.Format(result))
			assert.NotEmpty(t, buf.String())
		})
	}
}
