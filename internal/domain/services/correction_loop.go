package services

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/plumbline-dev/plumbline/internal/domain/entities"
	"github.com/plumbline-dev/plumbline/internal/domain/values"
)

// ConstraintReasoner scores a geometry candidate against an opaque
// constraint set and proposes corrections.
type ConstraintReasoner interface {
	Evaluate(ctx context.Context, req entities.ReasoningRequest) (*entities.ReasoningResult, error)
}

// CorrectionOptions bound the validate-and-correct loop. Scores are on the
// reasoner's 0..100 scale.
type CorrectionOptions struct {
	MaxPasses          int
	TargetScore        float64
	MinAcceptableScore float64
}

// DefaultCorrectionOptions returns the standard loop bounds.
func DefaultCorrectionOptions() CorrectionOptions {
	return CorrectionOptions{MaxPasses: 3, TargetScore: 90, MinAcceptableScore: 75}
}

// CorrectionPass is the record of one loop iteration.
type CorrectionPass struct {
	Pass        int                         `json:"pass"`
	Score       float64                     `json:"score"`
	Passed      bool                        `json:"passed"`
	Violations  []entities.Violation        `json:"violations,omitempty"`
	Corrections []entities.CorrectionAction `json:"corrections,omitempty"`
	Applied     int                         `json:"applied"`
	Skipped     []SkippedCorrection         `json:"skipped,omitempty"`
	Error       string                      `json:"error,omitempty"`
}

// CorrectionOutcome is the result of a loop run. Geometry is always the
// candidate that FinalReport scored.
type CorrectionOutcome struct {
	Geometry    entities.Geometry         `json:"geometry"`
	PassesUsed  int                       `json:"passesUsed"`
	Status      values.CorrectionStatus   `json:"status"`
	FinalReport *entities.ReasoningResult `json:"finalReport,omitempty"`
	History     []CorrectionPass          `json:"history"`
}

// CorrectionLoop iterates validate then correct against a ConstraintReasoner
// until the candidate is accepted or the pass budget runs out. It never
// returns an error: reasoner failures end the loop and the status says how
// far the candidate got.
type CorrectionLoop struct {
	reasoner  ConstraintReasoner
	corrector *GeometryCorrector
	opts      CorrectionOptions
	logger    *slog.Logger
}

// NewCorrectionLoop creates a loop. Non-positive MaxPasses selects the default.
func NewCorrectionLoop(reasoner ConstraintReasoner, corrector *GeometryCorrector, opts CorrectionOptions, logger *slog.Logger) *CorrectionLoop {
	if logger == nil {
		logger = slog.Default()
	}
	if corrector == nil {
		corrector = NewGeometryCorrector(logger)
	}
	if opts.MaxPasses <= 0 {
		opts.MaxPasses = DefaultCorrectionOptions().MaxPasses
	}
	return &CorrectionLoop{reasoner: reasoner, corrector: corrector, opts: opts, logger: logger}
}

// Run refines geometry against constraints. The caller's geometry is not
// modified.
func (l *CorrectionLoop) Run(ctx context.Context, constraints json.RawMessage, geometry entities.Geometry) *CorrectionOutcome {
	out := &CorrectionOutcome{Geometry: geometry.Clone()}
	current := out.Geometry

	for pass := 1; pass <= l.opts.MaxPasses; pass++ {
		out.PassesUsed = pass
		record := CorrectionPass{Pass: pass}

		res, err := l.reasoner.Evaluate(ctx, entities.ReasoningRequest{
			Pass:        pass,
			Constraints: constraints,
			Geometry:    current.Clone(),
		})
		if err != nil || res == nil {
			if err != nil {
				record.Error = err.Error()
			} else {
				record.Error = "reasoner returned no result"
			}
			l.logger.Warn("constraint reasoning failed", "pass", pass, "error", record.Error)
			out.History = append(out.History, record)
			break
		}

		out.Geometry = current
		out.FinalReport = res
		record.Score, record.Passed = res.Score, res.Passed
		record.Violations, record.Corrections = res.Violations, res.Corrections

		if res.Passed || res.Score >= l.opts.TargetScore {
			out.History = append(out.History, record)
			out.Status = values.CorrectionValid
			l.logger.Debug("geometry accepted", "pass", pass, "score", res.Score)
			return out
		}
		if pass == l.opts.MaxPasses {
			out.History = append(out.History, record)
			break
		}

		next, applied := l.corrector.Apply(current, res.Corrections)
		record.Applied, record.Skipped = len(applied.Applied), applied.Skipped
		out.History = append(out.History, record)
		if len(applied.Applied) == 0 {
			l.logger.Debug("no applicable corrections; stopping", "pass", pass, "score", res.Score)
			break
		}
		current = next
	}

	out.Status = l.settle(out.FinalReport)
	l.logger.Debug("correction loop finished", "passes", out.PassesUsed, "status", string(out.Status))
	return out
}

// settle decides the status of a loop that never reached the target.
func (l *CorrectionLoop) settle(last *entities.ReasoningResult) values.CorrectionStatus {
	if last != nil && last.Score >= l.opts.MinAcceptableScore {
		return values.CorrectionBestEffort
	}
	return values.CorrectionFailed
}
