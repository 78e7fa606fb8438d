// Package ports defines interfaces for infrastructure dependencies.
// These are the "ports" in hexagonal architecture - abstractions that
// the application layer depends on but doesn't implement.
package ports

import (
	"context"
	"errors"
	"io"

	"github.com/plumbline-dev/plumbline/internal/application/dto"
	"github.com/plumbline-dev/plumbline/internal/domain/entities"
	"github.com/plumbline-dev/plumbline/internal/domain/services"
	"github.com/plumbline-dev/plumbline/internal/domain/similarity"
	"github.com/plumbline-dev/plumbline/internal/domain/values"
)

// ErrImageUnavailable signals that no pixel data or byte stream could be
// resolved. Gates treat it as "no data" and fall back.
var ErrImageUnavailable = errors.New("image unavailable")

// ImageResolver resolves artifact image references to pixel data.
type ImageResolver interface {
	// Resolve returns the decoded image and/or raw bytes for ref.
	// Returns ErrImageUnavailable (possibly wrapped) when nothing is available.
	Resolve(ctx context.Context, ref string) (similarity.Sample, error)

	// Exists reports whether ref points at a readable asset.
	Exists(ctx context.Context, ref string) bool
}

// ConstraintReasoner scores geometry candidates and proposes corrections.
type ConstraintReasoner = services.ConstraintReasoner

// DocumentLoader reads input documents.
type DocumentLoader interface {
	// LoadDocument reads a JSON or YAML file and returns it as JSON.
	LoadDocument(ctx context.Context, path string) ([]byte, error)

	// LoadManifest reads a run manifest. Relative paths inside it are
	// resolved against the manifest's directory.
	LoadManifest(ctx context.Context, path string) (*dto.RunManifest, error)
}

// SchemaValidator validates raw JSON documents against their schema.
type SchemaValidator interface {
	Validate(kind dto.DocumentKind, document []byte) error
}

// GateMetrics records gate outcomes.
type GateMetrics interface {
	ObserveReport(report *entities.ValidationReport)
	ObserveRetryDecision(action values.RunAction)
	ObserveCorrection(status values.CorrectionStatus, passes int)
}

// FormatterOptions configures output formatters.
type FormatterOptions struct {
	Indent     bool
	SourcePath string
}

// OutputFormatter formats gate results.
type OutputFormatter interface {
	Format(result *dto.RunResult) error
}

// OutputFormatterFactory creates formatters by name.
type OutputFormatterFactory interface {
	Create(format string, writer io.Writer, options FormatterOptions) (OutputFormatter, error)
	SupportedFormats() []string
}

// Closer is a common interface for resources that need cleanup.
type Closer interface {
	io.Closer
}
