package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/plumbline-dev/plumbline/internal/application/dto"
	"github.com/plumbline-dev/plumbline/internal/application/ports"
	"github.com/plumbline-dev/plumbline/internal/domain/entities"
	"github.com/plumbline-dev/plumbline/internal/domain/values"
)

// RunValidator runs the full consistency pipeline over one run manifest:
// preflight, post-spec compliance, post-render compliance, drift,
// fingerprint, modify drift and pre-compose compliance. Stages whose inputs
// are absent from the manifest are skipped.
//
// In strict mode the first failing stage stops the pipeline and its error
// is returned alongside the partial result.
type RunValidator struct {
	loader      ports.DocumentLoader
	preflight   *PreflightService
	consistency *ConsistencyService
	strict      bool
	logger      *slog.Logger
}

// NewRunValidator wires the pipeline stages.
func NewRunValidator(loader ports.DocumentLoader, preflight *PreflightService, consistency *ConsistencyService, strict bool, logger *slog.Logger) *RunValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunValidator{
		loader:      loader,
		preflight:   preflight,
		consistency: consistency,
		strict:      strict,
		logger:      logger,
	}
}

type runInputs struct {
	runID             values.RunID
	state             *entities.DesignState
	lock              *entities.SpaceProgramLock
	artifacts         entities.ArtifactSet
	built             *entities.Geometry
	baseline          *entities.DesignState
	baselineArtifacts entities.ArtifactSet
}

// Validate runs the pipeline for the manifest at path.
func (v *RunValidator) Validate(ctx context.Context, path string) (*dto.RunResult, error) {
	start := time.Now()
	result := &dto.RunResult{Source: path, Passed: true}
	defer func() {
		result.Metadata = dto.ResponseMetadata{ProcessedAt: time.Now(), Duration: time.Since(start)}
	}()

	manifest, err := v.loader.LoadManifest(ctx, path)
	if err != nil {
		return result, err
	}

	docs, err := v.loadDocuments(ctx, manifest)
	if err != nil {
		return result, err
	}

	pre, err := v.preflight.Check(ctx, dto.PreflightRequest{Documents: docs, Assets: manifest.Assets})
	result.Preflight = pre
	if pre != nil {
		result.AddReport(pre.Report)
	}
	if err != nil {
		return result, err
	}

	in, err := decodeInputs(manifest, docs)
	if err != nil {
		return result, err
	}
	result.RunID = in.runID.String()
	result.StateHash = in.state.Hash

	for _, stage := range v.stages(manifest, in) {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := stage.run(ctx, result); err != nil {
			v.logger.Info("pipeline stopped", "stage", stage.name, "error", err)
			return result, err
		}
	}
	return result, nil
}

type pipelineStage struct {
	name string
	run  func(ctx context.Context, result *dto.RunResult) error
}

func (v *RunValidator) stages(manifest *dto.RunManifest, in *runInputs) []pipelineStage {
	compliance := func(cp values.Checkpoint) pipelineStage {
		return pipelineStage{name: string(cp), run: func(ctx context.Context, result *dto.RunResult) error {
			report, err := v.consistency.CheckCompliance(ctx, dto.ComplianceRequest{
				RunID:      in.runID,
				Checkpoint: cp,
				State:      in.state,
				Lock:       in.lock,
				Artifacts:  in.artifacts,
				Built:      in.built,
			})
			result.AddReport(report)
			return err
		}}
	}

	stages := []pipelineStage{compliance(values.CheckpointPostSpec)}
	if len(in.artifacts) == 0 {
		return stages
	}

	stages = append(stages,
		compliance(values.CheckpointPostRender),
		pipelineStage{name: "drift", run: func(ctx context.Context, result *dto.RunResult) error {
			reports, err := v.consistency.CheckDrift(ctx, dto.DriftRequest{
				RunID:      in.runID,
				State:      in.state,
				Artifacts:  in.artifacts,
				CheckEdges: manifest.CheckEdges,
			})
			for _, r := range reports {
				result.AddReport(r)
			}
			return err
		}},
		pipelineStage{name: "fingerprint", run: func(ctx context.Context, result *dto.RunResult) error {
			resp, err := v.consistency.CheckFingerprint(ctx, dto.FingerprintRequest{
				RunID:          in.runID,
				State:          in.state,
				Artifacts:      in.artifacts,
				Attempt:        manifest.Attempt,
				BlockOnFailure: !manifest.NoBlocking,
			})
			if resp == nil {
				return err
			}
			result.Fingerprint = resp
			result.AddReport(resp.Report)
			if resp.Decision.Action != values.ActionProceed {
				result.Passed = false
			}
			return err
		}},
	)

	if in.baseline != nil {
		stages = append(stages, pipelineStage{name: "modify", run: func(ctx context.Context, result *dto.RunResult) error {
			report, err := v.consistency.CheckModifyDrift(ctx, dto.ModifyDriftRequest{
				RunID:             in.runID,
				Baseline:          in.baseline,
				Current:           in.state,
				BaselineArtifacts: in.baselineArtifacts,
				CurrentArtifacts:  in.artifacts,
			})
			result.AddReport(report)
			return err
		}})
	}

	return append(stages, compliance(values.CheckpointPreCompose))
}

func (v *RunValidator) loadDocuments(ctx context.Context, m *dto.RunManifest) ([]dto.Document, error) {
	if m.State == "" || m.Lock == "" {
		return nil, errors.New("run manifest must name a state and a lock")
	}

	sources := []struct {
		kind dto.DocumentKind
		path string
	}{
		{dto.DocumentState, m.State},
		{dto.DocumentLock, m.Lock},
		{dto.DocumentArtifacts, m.Artifacts},
		{dto.DocumentGeometry, m.Built},
		{dto.DocumentState, m.Baseline},
		{dto.DocumentArtifacts, m.BaselineArtifacts},
	}

	docs := make([]dto.Document, 0, len(sources))
	for _, src := range sources {
		if src.path == "" {
			continue
		}
		data, err := v.loader.LoadDocument(ctx, src.path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", src.kind, err)
		}
		docs = append(docs, dto.Document{Kind: src.kind, Source: src.path, Data: data})
	}
	return docs, nil
}

// decodeInputs maps loaded documents back onto manifest roles. Preflight has
// already rejected undecodable documents.
func decodeInputs(m *dto.RunManifest, docs []dto.Document) (*runInputs, error) {
	in := &runInputs{runID: values.NewRunID()}
	if m.RunID != "" {
		id, err := values.ParseRunID(m.RunID)
		if err != nil {
			return nil, err
		}
		in.runID = id
	}

	var err error
	for _, doc := range docs {
		switch doc.Source {
		case m.State:
			in.state, err = DecodeState(doc.Data)
		case m.Lock:
			in.lock, err = DecodeLock(doc.Data)
		case m.Artifacts:
			in.artifacts, err = DecodeArtifacts(doc.Data)
		case m.Built:
			in.built, err = DecodeGeometry(doc.Data)
		case m.Baseline:
			in.baseline, err = DecodeState(doc.Data)
		case m.BaselineArtifacts:
			in.baselineArtifacts, err = DecodeArtifacts(doc.Data)
		}
		if err != nil {
			return nil, err
		}
	}
	return in, nil
}
