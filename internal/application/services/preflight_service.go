package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/plumbline-dev/plumbline/internal/application/dto"
	apperrors "github.com/plumbline-dev/plumbline/internal/application/errors"
	"github.com/plumbline-dev/plumbline/internal/application/ports"
	"github.com/plumbline-dev/plumbline/internal/domain/entities"
	"github.com/plumbline-dev/plumbline/internal/domain/services"
	"github.com/plumbline-dev/plumbline/internal/domain/values"
)

// currentSchema is the design state format this build writes.
var currentSchema = semver.MustParse(entities.CurrentSchemaVersion)

// PreflightService checks inputs before any gate runs: document schemas,
// structural invariants, schema version compatibility, hash freshness and
// asset presence.
//
// Hash problems are warnings only. In strict mode missing recommended
// assets are errors.
type PreflightService struct {
	hasher  *services.StateHasher
	schemas ports.SchemaValidator
	images  ports.ImageResolver
	strict  bool
	logger  *slog.Logger
	now     func() time.Time
}

// NewPreflightService creates a preflight checker. schemas and images may be
// nil, which skips schema validation and asset checks respectively.
func NewPreflightService(hasher *services.StateHasher, schemas ports.SchemaValidator, images ports.ImageResolver, strict bool, logger *slog.Logger) *PreflightService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PreflightService{
		hasher:  hasher,
		schemas: schemas,
		images:  images,
		strict:  strict,
		logger:  logger,
		now:     time.Now,
	}
}

type preflightFindings struct {
	report   *entities.ValidationReport
	errors   []string
	warnings []string
}

func (f *preflightFindings) fail(code, subject, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	f.report.Check(false, entities.Violation{Code: code, Subject: subject, Message: msg, Severity: values.SeverityHigh})
	f.errors = append(f.errors, fmt.Sprintf("%s: %s", subject, msg))
}

func (f *preflightFindings) warn(code, subject, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	f.report.Checks++
	f.report.AddWarning(entities.Violation{Code: code, Subject: subject, Message: msg})
	f.warnings = append(f.warnings, fmt.Sprintf("%s: %s", subject, msg))
}

func (f *preflightFindings) pass() {
	f.report.Checks++
}

// Check runs every preflight check and returns the findings. The error is a
// *apperrors.PreflightError when any check failed.
func (s *PreflightService) Check(ctx context.Context, req dto.PreflightRequest) (*dto.PreflightResponse, error) {
	f := &preflightFindings{report: entities.NewValidationReport(entities.GatePreflight, "", s.now())}

	var state *entities.DesignState
	var lock *entities.SpaceProgramLock
	for _, doc := range req.Documents {
		if s.schemas != nil {
			if err := s.schemas.Validate(doc.Kind, doc.Data); err != nil {
				f.fail("schema_invalid", doc.Source, "%v", err)
				continue
			}
			f.pass()
		}

		switch doc.Kind {
		case dto.DocumentState:
			state = s.checkState(doc, f)
		case dto.DocumentLock:
			lock = s.checkLock(doc, f)
		case dto.DocumentArtifacts:
			s.checkArtifacts(doc, f)
		case dto.DocumentGeometry:
			if _, err := DecodeGeometry(doc.Data); err != nil {
				f.fail("decode_failed", doc.Source, "%v", err)
			}
		default:
			f.fail("unknown_document", doc.Source, "unknown document kind %q", doc.Kind)
		}
	}

	if state != nil && lock != nil {
		s.checkLockBinding(state, lock, f)
	}

	for _, asset := range req.Assets {
		s.checkAsset(ctx, asset, f)
	}

	f.report.Valid = len(f.errors) == 0
	resp := &dto.PreflightResponse{Errors: f.errors, Warnings: f.warnings, Report: f.report}

	s.logger.Debug("preflight finished", "errors", len(f.errors), "warnings", len(f.warnings))
	if len(f.errors) > 0 {
		return resp, apperrors.NewPreflightError(f.errors, f.warnings)
	}
	return resp, nil
}

func (s *PreflightService) checkState(doc dto.Document, f *preflightFindings) *entities.DesignState {
	state, err := DecodeState(doc.Data)
	if err != nil {
		f.fail("decode_failed", doc.Source, "%v", err)
		return nil
	}
	if err := state.Validate(); err != nil {
		f.fail("state_invalid", doc.Source, "%v", err)
	} else {
		f.pass()
	}

	s.checkSchemaVersion(doc.Source, state.SchemaVersion, f)
	s.checkHash(doc, state.Hash, f)
	return state
}

func (s *PreflightService) checkSchemaVersion(source, raw string, f *preflightFindings) {
	if raw == "" {
		f.warn("schema_version_missing", source, "schemaVersion not set, assuming %s", currentSchema)
		return
	}
	v, err := semver.NewVersion(raw)
	if err != nil {
		f.fail("schema_version_invalid", source, "schemaVersion %q is not a semantic version", raw)
		return
	}
	switch {
	case v.Major() != currentSchema.Major():
		f.fail("schema_version_incompatible", source, "schemaVersion %s is incompatible with %s", v, currentSchema)
	case v.GreaterThan(currentSchema):
		f.warn("schema_version_newer", source, "schemaVersion %s is newer than %s; unknown fields are ignored", v, currentSchema)
	default:
		f.pass()
	}
}

func (s *PreflightService) checkHash(doc dto.Document, stored string, f *preflightFindings) {
	if stored == "" {
		f.warn("unsealed", doc.Source, "document has no hash")
		return
	}
	if !s.hasher.VerifyHash(doc.Data) {
		f.warn("hash_mismatch", doc.Source, "stored hash does not match content")
		return
	}
	f.pass()
}

func (s *PreflightService) checkLock(doc dto.Document, f *preflightFindings) *entities.SpaceProgramLock {
	lock, err := DecodeLock(doc.Data)
	if err != nil {
		f.fail("decode_failed", doc.Source, "%v", err)
		return nil
	}
	if err := lock.Validate(); err != nil {
		f.fail("lock_invalid", doc.Source, "%v", err)
	} else {
		f.pass()
	}
	s.checkHash(doc, lock.Hash, f)
	return lock
}

func (s *PreflightService) checkArtifacts(doc dto.Document, f *preflightFindings) {
	set, err := DecodeArtifacts(doc.Data)
	if err != nil {
		f.fail("decode_failed", doc.Source, "%v", err)
		return
	}
	if len(set) == 0 {
		f.warn("no_artifacts", doc.Source, "artifact list is empty")
		return
	}
	for i := range set {
		if err := set[i].Validate(); err != nil {
			f.fail("artifact_invalid", doc.Source, "%v", err)
			continue
		}
		f.pass()
	}
}

// checkLockBinding compares the lock hash recorded in the state with the
// lock actually supplied.
func (s *PreflightService) checkLockBinding(state *entities.DesignState, lock *entities.SpaceProgramLock, f *preflightFindings) {
	if state.Program.LockHash == "" {
		return
	}
	lockHash := lock.Hash
	if lockHash == "" {
		computed, err := s.hasher.ComputeHash(lock)
		if err != nil {
			return
		}
		lockHash = computed
	}
	if lockHash != state.Program.LockHash {
		f.warn("lock_hash_mismatch", "program", "state was generated against lock %s, got %s", short(state.Program.LockHash), short(lockHash))
		return
	}
	f.pass()
}

func (s *PreflightService) checkAsset(ctx context.Context, asset dto.Asset, f *preflightFindings) {
	if s.images == nil {
		return
	}
	if s.images.Exists(ctx, asset.Path) {
		f.pass()
		return
	}
	switch {
	case asset.Required:
		f.fail("asset_missing", asset.Name, "required asset not found at %s", asset.Path)
	case s.strict:
		f.fail("asset_missing", asset.Name, "recommended asset not found at %s", asset.Path)
	default:
		f.warn("asset_missing", asset.Name, "recommended asset not found at %s", asset.Path)
	}
}

func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
