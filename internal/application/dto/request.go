// Package dto contains data transfer objects for application layer use cases.
package dto

import (
	"encoding/json"

	"github.com/plumbline-dev/plumbline/internal/domain/entities"
	"github.com/plumbline-dev/plumbline/internal/domain/values"
)

// RequestMetadata contains metadata for request tracking.
type RequestMetadata struct {
	// RequestID uniquely identifies this request
	RequestID string
}

// ComplianceRequest checks a design against its program lock at one checkpoint.
type ComplianceRequest struct {
	Metadata   RequestMetadata
	RunID      values.RunID
	Checkpoint values.Checkpoint
	State      *entities.DesignState
	Lock       *entities.SpaceProgramLock
	// Artifacts are required for post-render and pre-compose.
	Artifacts entities.ArtifactSet
	// Built is the optional built-geometry model for adjacency checks.
	Built *entities.Geometry
}

// DriftRequest checks that every artifact of a run depicts one state.
type DriftRequest struct {
	Metadata  RequestMetadata
	RunID     values.RunID
	State     *entities.DesignState
	Artifacts entities.ArtifactSet
	// CheckEdges compares rendered views with their geometry control images.
	CheckEdges bool
}

// ModifyDriftRequest compares a modify iteration with its baseline.
type ModifyDriftRequest struct {
	Metadata          RequestMetadata
	RunID             values.RunID
	Baseline          *entities.DesignState
	Current           *entities.DesignState
	BaselineArtifacts entities.ArtifactSet
	CurrentArtifacts  entities.ArtifactSet
}

// FingerprintRequest compares a run's artifacts with its reference fingerprint.
type FingerprintRequest struct {
	Metadata  RequestMetadata
	RunID     values.RunID
	State     *entities.DesignState
	Artifacts entities.ArtifactSet
	// Attempt is the number of retries already performed for this run.
	Attempt int
	// BlockOnFailure enables retries of non-critical failures.
	BlockOnFailure bool
	// Regenerate replaces an existing fingerprint.
	Regenerate bool
}

// CorrectionRequest refines a geometry candidate against opaque constraints.
type CorrectionRequest struct {
	Metadata    RequestMetadata
	RunID       values.RunID
	Constraints json.RawMessage
	Geometry    entities.Geometry
}

// DocumentKind names an input document type with a schema.
type DocumentKind string

const (
	DocumentState     DocumentKind = "design-state"
	DocumentLock      DocumentKind = "program-lock"
	DocumentArtifacts DocumentKind = "artifacts"
	DocumentGeometry  DocumentKind = "geometry"
)

// Document is one raw JSON input.
type Document struct {
	Kind   DocumentKind
	Source string
	Data   []byte
}

// Asset is a file the pipeline depends on.
type Asset struct {
	Name     string `json:"name" yaml:"name"`
	Path     string `json:"path" yaml:"path"`
	Required bool   `json:"required,omitempty" yaml:"required,omitempty"`
}

// PreflightRequest checks inputs before any gate runs.
type PreflightRequest struct {
	Metadata  RequestMetadata
	Documents []Document
	Assets    []Asset
}
