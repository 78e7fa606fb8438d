// Package services contains application use cases.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/plumbline-dev/plumbline/internal/application/dto"
	apperrors "github.com/plumbline-dev/plumbline/internal/application/errors"
	"github.com/plumbline-dev/plumbline/internal/application/ports"
	"github.com/plumbline-dev/plumbline/internal/domain/entities"
	"github.com/plumbline-dev/plumbline/internal/domain/repositories"
	"github.com/plumbline-dev/plumbline/internal/domain/services"
	"github.com/plumbline-dev/plumbline/internal/domain/similarity"
	"github.com/plumbline-dev/plumbline/internal/domain/values"
)

// ConsistencyService runs the consistency gates for one configuration.
// In strict mode an invalid report becomes a typed error; in non-strict
// mode the report is returned for the caller to act on. Every report is
// recorded in the run history.
type ConsistencyService struct {
	opts         dto.GateOptions
	hasher       *services.StateHasher
	compliance   *services.ProgramComplianceGate
	drift        *services.DriftGate
	fingerprint  *services.FingerprintGate
	retry        *services.RetryPolicy
	fingerprints repositories.FingerprintRepository
	history      repositories.RunHistoryRepository
	images       ports.ImageResolver
	metrics      ports.GateMetrics
	logger       *slog.Logger
	now          func() time.Time
}

// NewConsistencyService creates the service. images, history and metrics
// may be nil; without an image resolver every comparison uses its fallback.
func NewConsistencyService(
	opts dto.GateOptions,
	fingerprints repositories.FingerprintRepository,
	history repositories.RunHistoryRepository,
	images ports.ImageResolver,
	metrics ports.GateMetrics,
	logger *slog.Logger,
) (*ConsistencyService, error) {
	if logger == nil {
		logger = slog.Default()
	}
	backend, err := services.BackendByName(opts.HashBackend)
	if err != nil {
		return nil, apperrors.NewConfigurationError("hash_backend", "unknown hash backend", err)
	}
	hasher := services.NewStateHasher(backend)

	return &ConsistencyService{
		opts:         opts,
		hasher:       hasher,
		compliance:   services.NewProgramComplianceGate(hasher, opts.Compliance),
		drift:        services.NewDriftGate(hasher, opts.Drift),
		fingerprint:  services.NewFingerprintGate(opts.Fingerprint),
		retry:        services.NewRetryPolicy(opts.Fingerprint),
		fingerprints: fingerprints,
		history:      history,
		images:       images,
		metrics:      metrics,
		logger:       logger,
		now:          time.Now,
	}, nil
}

// Hasher returns the hasher the gates were built with.
func (s *ConsistencyService) Hasher() *services.StateHasher {
	return s.hasher
}

// CheckCompliance runs the program compliance gate at the requested checkpoint.
func (s *ConsistencyService) CheckCompliance(ctx context.Context, req dto.ComplianceRequest) (*entities.ValidationReport, error) {
	if req.State == nil || req.Lock == nil {
		return nil, apperrors.NewValidationError("compliance", "design state and program lock are required")
	}

	var report *entities.ValidationReport
	switch req.Checkpoint {
	case values.CheckpointPostSpec:
		report = s.compliance.PostSpec(req.State, req.Lock)
	case values.CheckpointPostRender:
		report = s.compliance.PostRender(req.State, req.Lock, req.Artifacts, req.Built)
	case values.CheckpointPreCompose:
		report = s.compliance.PreCompose(req.State, req.Lock, req.Artifacts, req.Built)
	default:
		return nil, apperrors.NewValidationError("checkpoint", fmt.Sprintf("unknown checkpoint %q", req.Checkpoint))
	}

	s.logger.Info("program compliance checked",
		"checkpoint", string(report.Checkpoint),
		"violations", report.ViolationCount(),
		"tolerance", s.compliance.Tolerance(req.Lock),
		"valid", report.Valid)
	s.record(ctx, req.RunID, req.State.Hash, report)

	if !report.Valid && s.opts.Strict {
		return report, apperrors.NewComplianceError(report)
	}
	return report, nil
}

// CheckDrift runs pre-compose drift detection and, when asked, edge
// alignment of rendered views against their control images.
func (s *ConsistencyService) CheckDrift(ctx context.Context, req dto.DriftRequest) ([]*entities.ValidationReport, error) {
	if req.State == nil {
		return nil, apperrors.NewValidationError("drift", "design state is required")
	}

	report := s.drift.PreCompose(req.State, req.Artifacts)
	s.logger.Info("drift checked", "score", report.ScoreValue(), "checks", report.Checks, "valid", report.Valid)
	s.record(ctx, req.RunID, req.State.Hash, report)
	reports := []*entities.ValidationReport{report}

	if req.CheckEdges {
		edges := s.drift.EdgeAlignment(s.alignmentViews(ctx, req.Artifacts))
		s.logger.Info("edge alignment checked", "meanF1", edges.ScoreValue(), "valid", edges.Valid)
		s.record(ctx, req.RunID, req.State.Hash, edges)
		reports = append(reports, edges)
	}

	if s.opts.Strict {
		for _, r := range reports {
			if !r.Valid {
				return reports, apperrors.NewDriftError(r)
			}
		}
	}
	return reports, nil
}

// CheckModifyDrift compares a modify iteration with its frozen baseline.
func (s *ConsistencyService) CheckModifyDrift(ctx context.Context, req dto.ModifyDriftRequest) (*entities.ValidationReport, error) {
	if req.Baseline == nil || req.Current == nil {
		return nil, apperrors.NewValidationError("modify", "baseline and current states are required")
	}

	report := s.drift.Modify(services.ModifyInput{
		Baseline:        req.Baseline,
		Current:         req.Current,
		BaselineSamples: s.samples(ctx, req.BaselineArtifacts),
		CurrentSamples:  s.samples(ctx, req.CurrentArtifacts),
	})
	s.logger.Info("modify drift checked", "score", report.ScoreValue(), "valid", report.Valid)
	s.record(ctx, req.RunID, req.Current.Hash, report)

	if !report.Valid && s.opts.Strict {
		return report, apperrors.NewDriftError(report)
	}
	return report, nil
}

// CheckFingerprint compares a run's artifacts with its fingerprint and
// decides the next run action. When the run has no fingerprint yet and the
// set contains the reference artifact, the fingerprint is extracted and
// stored first.
//
// Strict mode only fails on ActionAbort; retries are decisions, not errors.
func (s *ConsistencyService) CheckFingerprint(ctx context.Context, req dto.FingerprintRequest) (*dto.FingerprintResponse, error) {
	fp, err := s.ensureFingerprint(ctx, req)
	if err != nil {
		return nil, err
	}

	var reference similarity.Sample
	if fp != nil {
		reference = s.sample(ctx, fp.ReferenceImageRef)
	}

	outcome, err := s.fingerprint.Compare(ctx, services.FingerprintInput{
		Fingerprint: fp,
		Reference:   reference,
		Artifacts:   req.Artifacts,
		Samples:     s.samples(ctx, req.Artifacts),
	})
	if err != nil {
		return nil, err
	}

	decision := s.retry.Decide(outcome, req.Attempt, req.BlockOnFailure)
	s.logger.Info("fingerprint checked",
		"compared", outcome.Compared,
		"passRatio", outcome.PassRatio,
		"action", string(decision.Action))

	stateHash := ""
	if req.State != nil {
		stateHash = req.State.Hash
	}
	s.record(ctx, req.RunID, stateHash, outcome.Report)
	if s.metrics != nil {
		s.metrics.ObserveRetryDecision(decision.Action)
	}

	resp := &dto.FingerprintResponse{
		Fingerprint: fp,
		Results:     outcome.Results,
		PassRatio:   outcome.PassRatio,
		Decision:    decision,
		Report:      outcome.Report,
	}
	if decision.Action == values.ActionAbort && s.opts.Strict {
		return resp, apperrors.NewDriftError(outcome.Report)
	}
	return resp, nil
}

func (s *ConsistencyService) ensureFingerprint(ctx context.Context, req dto.FingerprintRequest) (*entities.Fingerprint, error) {
	if s.fingerprints == nil {
		return nil, nil
	}

	existing, err := s.fingerprints.Get(ctx, req.RunID)
	switch {
	case err == nil && !req.Regenerate:
		return existing, nil
	case err != nil && !errors.Is(err, entities.ErrFingerprintNotSet):
		return nil, fmt.Errorf("failed to load fingerprint: %w", err)
	}

	ref, ok := req.Artifacts.Reference()
	if !ok {
		// Nothing to extract from; the gate reports fingerprint_unavailable.
		return existing, nil
	}

	fp := s.fingerprint.Extract(req.RunID, req.State, ref, s.sample(ctx, ref.ImageRef))
	if err := s.fingerprints.Set(ctx, fp, req.Regenerate); err != nil {
		return nil, err
	}
	s.logger.Info("fingerprint extracted", "reference", fp.ReferenceArtifactID, "hash", fp.ReferenceHash)
	return fp, nil
}

// Correct runs the multi-pass correction loop. It never fails because of
// the reasoner; the outcome's status says whether the geometry is usable.
func (s *ConsistencyService) Correct(ctx context.Context, reasoner ports.ConstraintReasoner, req dto.CorrectionRequest) (*services.CorrectionOutcome, error) {
	if reasoner == nil {
		return nil, apperrors.NewConfigurationError("reasoner", "no constraint reasoner configured", nil)
	}

	loop := services.NewCorrectionLoop(reasoner, services.NewGeometryCorrector(s.logger), s.opts.Correction, s.logger)
	outcome := loop.Run(ctx, req.Constraints, req.Geometry)

	s.logger.Info("correction finished", "status", string(outcome.Status), "passes", outcome.PassesUsed)
	if s.metrics != nil {
		s.metrics.ObserveCorrection(outcome.Status, outcome.PassesUsed)
	}
	s.record(ctx, req.RunID, "", correctionReport(outcome, s.now()))
	return outcome, nil
}

// correctionReport summarizes a loop outcome as a report for the history
// and for formatters. Score is the final reasoner score on a 0..1 scale.
func correctionReport(outcome *services.CorrectionOutcome, now time.Time) *entities.ValidationReport {
	report := entities.NewValidationReport(entities.GateCorrection, "", now)
	if outcome.FinalReport != nil {
		for _, v := range outcome.FinalReport.Violations {
			report.AddViolation(v)
		}
		report.SetScore(outcome.FinalReport.Score/100, 0)
	}
	report.Checks = outcome.PassesUsed
	report.SetDetail("status", string(outcome.Status))
	report.SetDetail("passesUsed", outcome.PassesUsed)
	report.Valid = outcome.Status.IsAccepted()
	return report
}

func (s *ConsistencyService) alignmentViews(ctx context.Context, artifacts entities.ArtifactSet) []services.AlignmentView {
	var views []services.AlignmentView
	for _, a := range artifacts {
		if a.ControlImageRef == "" {
			continue
		}
		views = append(views, services.AlignmentView{
			Name:    a.Key(),
			Render:  s.sample(ctx, a.ImageRef),
			Control: s.sample(ctx, a.ControlImageRef),
		})
	}
	return views
}

func (s *ConsistencyService) samples(ctx context.Context, artifacts entities.ArtifactSet) map[string]similarity.Sample {
	out := make(map[string]similarity.Sample, len(artifacts))
	for _, a := range artifacts {
		if sample := s.sample(ctx, a.ImageRef); !sample.IsEmpty() {
			out[a.Key()] = sample
		}
	}
	return out
}

// sample resolves one image reference. Failures are "no data".
func (s *ConsistencyService) sample(ctx context.Context, ref string) similarity.Sample {
	if s.images == nil || ref == "" {
		return similarity.Sample{}
	}
	sample, err := s.images.Resolve(ctx, ref)
	if err != nil {
		if !errors.Is(err, ports.ErrImageUnavailable) {
			s.logger.Warn("image resolution failed; using fallback", "ref", ref, "error", err)
		}
		return similarity.Sample{}
	}
	return sample
}

func (s *ConsistencyService) record(ctx context.Context, runID values.RunID, stateHash string, report *entities.ValidationReport) {
	if s.metrics != nil {
		s.metrics.ObserveReport(report)
	}
	if s.history == nil {
		return
	}
	if err := s.history.Record(ctx, entities.NewRunSnapshot(runID, stateHash, report)); err != nil {
		s.logger.Debug("failed to record run snapshot", "gate", string(report.Gate), "error", err)
	}
}
