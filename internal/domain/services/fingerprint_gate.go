package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/plumbline-dev/plumbline/internal/domain/entities"
	"github.com/plumbline-dev/plumbline/internal/domain/similarity"
	"github.com/plumbline-dev/plumbline/internal/domain/values"
	"golang.org/x/sync/errgroup"
)

// Issue codes raised by the fingerprint gate.
const (
	CodeFingerprintNotSet      = "fingerprint_not_set"
	CodeFingerprintUnavailable = "fingerprint_unavailable"
	CodeReferenceArtifact      = "reference_artifact"
	CodeNonVisual              = "non_visual"
	CodePromptLockMismatch     = "prompt_lock_mismatch"
	CodeFingerprintMismatch    = "fingerprint_mismatch"
	CodePaletteUnreadable      = "palette_unreadable"
)

// Score sources.
const (
	SourcePixels   = "pixels"
	SourceBytes    = "bytes"
	SourceEstimate = "estimate"
)

// Component weights. Without a structural component the visual and color
// weights are renormalized to 0.6/0.4.
const (
	weightVisual     = 0.5
	weightColor      = 0.3
	weightStructural = 0.2

	weightVisualOnly = 0.6
	weightColorOnly  = 0.4
)

// StrictFallbackParams are the escalated generation overrides issued for
// the final attempt of a critical artifact.
type StrictFallbackParams struct {
	ControlStrength   float64 `json:"controlStrength"`
	ReferenceStrength float64 `json:"referenceStrength"`
	GuidanceScale     float64 `json:"guidanceScale"`
	PreserveSeed      bool    `json:"preserveSeed"`
}

// DefaultStrictFallback returns the standard override bundle.
func DefaultStrictFallback() StrictFallbackParams {
	return StrictFallbackParams{
		ControlStrength:   0.95,
		ReferenceStrength: 0.35,
		GuidanceScale:     5.0,
		PreserveSeed:      true,
	}
}

// FingerprintOptions are the thresholds of the fingerprint gate and its
// retry policy.
type FingerprintOptions struct {
	Threshold      float64
	RetryRatio     float64
	MaxRetries     int
	MinPassRatio   float64
	CriticalTypes  []values.ArtifactType
	StrictFallback StrictFallbackParams
	MaxConcurrent  int
}

// DefaultFingerprintOptions returns the standard thresholds.
func DefaultFingerprintOptions() FingerprintOptions {
	return FingerprintOptions{
		Threshold:    0.85,
		RetryRatio:   0.8,
		MaxRetries:   2,
		MinPassRatio: 0.90,
		CriticalTypes: []values.ArtifactType{
			values.ArtifactAxonometric,
			values.ArtifactElevationNorth,
			values.ArtifactElevationSouth,
			values.ArtifactElevationEast,
			values.ArtifactElevationWest,
		},
		StrictFallback: DefaultStrictFallback(),
		MaxConcurrent:  4,
	}
}

// IsCritical reports whether t is in the critical subset.
func (o FingerprintOptions) IsCritical(t values.ArtifactType) bool {
	for _, c := range o.CriticalTypes {
		if strings.EqualFold(string(c), string(t)) {
			return true
		}
	}
	return false
}

// ComponentScores breaks an artifact score into its parts.
type ComponentScores struct {
	Visual           float64  `json:"visual"`
	VisualSource     string   `json:"visualSource"`
	Color            float64  `json:"color"`
	ColorSource      string   `json:"colorSource"`
	Structural       *float64 `json:"structural,omitempty"`
	StructuralSource string   `json:"structuralSource,omitempty"`
}

// ArtifactResult is the fingerprint verdict for one artifact.
type ArtifactResult struct {
	ArtifactID     string                `json:"artifactId"`
	Type           values.ArtifactType   `json:"type"`
	Skipped        bool                  `json:"skipped,omitempty"`
	Critical       bool                  `json:"critical,omitempty"`
	Score          float64               `json:"score"`
	Components     *ComponentScores      `json:"components,omitempty"`
	Passed         bool                  `json:"passed"`
	Recommendation values.Recommendation `json:"recommendation"`
	HardIssues     []entities.Violation  `json:"hardIssues,omitempty"`
	Info           []entities.Violation  `json:"info,omitempty"`
}

// FingerprintInput is everything the gate needs for one run. Samples are
// keyed by artifact ID; a missing entry means no pixel data.
type FingerprintInput struct {
	Fingerprint *entities.Fingerprint
	Reference   similarity.Sample
	Artifacts   entities.ArtifactSet
	Samples     map[string]similarity.Sample
}

// FingerprintOutcome aggregates the per-artifact results of a run.
type FingerprintOutcome struct {
	Results   []ArtifactResult
	Compared  int
	Passed    int
	PassRatio float64
	Report    *entities.ValidationReport
}

// Failed returns the results that did not pass.
func (o *FingerprintOutcome) Failed() []ArtifactResult {
	var out []ArtifactResult
	for _, r := range o.Results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

// FingerprintGate compares every artifact of a run against the run's
// reference fingerprint.
//
// Real pixel comparison is always attempted when both sides have data;
// the seeded estimator is the last resort and is a pure function of
// (component, type, reference hash, artifact identity).
type FingerprintGate struct {
	opts FingerprintOptions
	now  func() time.Time
}

// NewFingerprintGate creates the gate.
func NewFingerprintGate(opts FingerprintOptions) *FingerprintGate {
	return &FingerprintGate{opts: opts, now: time.Now}
}

// Options returns the gate's thresholds.
func (g *FingerprintGate) Options() FingerprintOptions {
	return g.opts
}

// Extract builds a run fingerprint from the reference artifact. Massing,
// roof profile and materials are read from the design style when present.
func (g *FingerprintGate) Extract(
	runID values.RunID,
	state *entities.DesignState,
	reference *entities.Artifact,
	sample similarity.Sample,
) *entities.Fingerprint {
	fp := &entities.Fingerprint{
		RunID:               runID,
		ReferenceArtifactID: reference.Key(),
		ReferenceImageRef:   reference.ImageRef,
		PromptLock:          reference.PromptLock,
		CreatedAt:           g.now().UTC(),
	}

	switch {
	case sample.HasPixels():
		h, _ := similarity.AverageHash(sample.Image)
		fp.ReferenceHash = fmt.Sprintf("ahash:%016x", h)
		if palette, ok := similarity.QuadrantPalette(sample.Image); ok {
			fp.ColorPalette = similarity.PaletteHex(palette)
		}
	case sample.HasBytes():
		h, _ := similarity.ByteStreamHash(sample.Bytes)
		fp.ReferenceHash = fmt.Sprintf("bhash:%016x", h)
	default:
		seed := strings.Join([]string{reference.Key(), reference.ImageRef, reference.StateHash}, "|")
		fp.ReferenceHash = fmt.Sprintf("meta:%016x", xxhash.Sum64String(seed))
	}

	if state != nil {
		fp.Massing = styleString(state.Style, "massing")
		fp.RoofProfile = styleString(state.Style, "roofProfile")
		fp.MaterialsPalette = styleStrings(state.Style, "materials")
	}
	return fp
}

// Compare scores every artifact against the fingerprint. Comparisons run
// concurrently; results keep the input order.
func (g *FingerprintGate) Compare(ctx context.Context, in FingerprintInput) (*FingerprintOutcome, error) {
	results := make([]ArtifactResult, len(in.Artifacts))

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(max(g.opts.MaxConcurrent, 1))
	for i := range in.Artifacts {
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = g.compareOne(&in.Artifacts[i], in)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("fingerprint comparison interrupted: %w", err)
	}

	return g.aggregate(results), nil
}

func (g *FingerprintGate) compareOne(a *entities.Artifact, in FingerprintInput) ArtifactResult {
	res := ArtifactResult{
		ArtifactID: a.Key(),
		Type:       a.Type,
		Critical:   g.opts.IsCritical(a.Type),
	}
	fp := in.Fingerprint

	if !a.Type.IsVisual() {
		return skip(res, CodeNonVisual, "non-visual artifact type; auto-pass")
	}
	if a.Type.IsReference() || (fp != nil && fp.ReferenceArtifactID == a.Key()) {
		if fp == nil {
			return skip(res, CodeFingerprintNotSet, "reference artifact checked before any fingerprint was set; auto-pass")
		}
		return skip(res, CodeReferenceArtifact, "reference artifact is the fingerprint source; auto-pass")
	}
	if fp == nil {
		return skip(res, CodeFingerprintUnavailable, "no fingerprint for this run; comparison skipped")
	}

	if a.PromptLock != "" && fp.PromptLock != "" && a.PromptLock != fp.PromptLock {
		res.HardIssues = append(res.HardIssues, entities.Violation{
			Code:     CodePromptLockMismatch,
			Message:  "artifact was generated with a different prompt lock",
			Severity: values.SeverityCritical,
			Subject:  a.Key(),
			Expected: fp.PromptLock,
			Actual:   a.PromptLock,
		})
	}

	sample := in.Samples[a.Key()]
	comp := &ComponentScores{}
	comp.Visual, comp.VisualSource = g.visual(a, fp, sample, in.Reference)
	comp.Color, comp.ColorSource = g.color(a, fp, sample, &res)

	if a.Type.IsStructural() {
		s, src := g.structural(a, fp, sample, in.Reference)
		comp.Structural, comp.StructuralSource = &s, src
		res.Score = weightVisual*comp.Visual + weightColor*comp.Color + weightStructural*s
	} else {
		res.Score = weightVisualOnly*comp.Visual + weightColorOnly*comp.Color
	}
	res.Components = comp

	res.Passed = res.Score >= g.opts.Threshold && len(res.HardIssues) == 0
	switch {
	case res.Passed:
		res.Recommendation = values.RecommendPass
	case res.Score >= g.opts.RetryRatio*g.opts.Threshold:
		res.Recommendation = values.RecommendRetry
	default:
		res.Recommendation = values.RecommendBlock
	}
	return res
}

func skip(res ArtifactResult, code, msg string) ArtifactResult {
	res.Skipped = true
	res.Passed = true
	res.Score = 1
	res.Recommendation = values.RecommendPass
	res.Info = append(res.Info, entities.Violation{
		Code:     code,
		Message:  msg,
		Severity: values.SeverityInfo,
		Subject:  res.ArtifactID,
	})
	return res
}

func (g *FingerprintGate) visual(a *entities.Artifact, fp *entities.Fingerprint, sample, ref similarity.Sample) (float64, string) {
	mapping := similarity.HashSimilarity
	if a.Type.IsLenient() {
		mapping = similarity.LenientHashSimilarity
	}
	if sample.HasPixels() && ref.HasPixels() {
		ha, _ := similarity.AverageHash(sample.Image)
		hb, _ := similarity.AverageHash(ref.Image)
		return mapping(similarity.HammingDistance(ha, hb)), SourcePixels
	}
	if sample.HasBytes() && ref.HasBytes() {
		ha, _ := similarity.ByteStreamHash(sample.Bytes)
		hb, _ := similarity.ByteStreamHash(ref.Bytes)
		return mapping(similarity.HammingDistance(ha, hb)), SourceBytes
	}
	return EstimateSimilarity("visual", a.Type, fp.ReferenceHash, a.Key()), SourceEstimate
}

func (g *FingerprintGate) color(a *entities.Artifact, fp *entities.Fingerprint, sample similarity.Sample, res *ArtifactResult) (float64, string) {
	if sample.HasPixels() && fp.HasPalette() {
		stored, err := similarity.ParsePalette(fp.ColorPalette)
		if err != nil {
			res.Info = append(res.Info, entities.Violation{
				Code:     CodePaletteUnreadable,
				Message:  err.Error(),
				Severity: values.SeverityInfo,
				Subject:  a.Key(),
			})
		} else if observed, ok := similarity.QuadrantPalette(sample.Image); ok {
			if s, ok := similarity.PaletteSimilarity(observed, stored); ok {
				return s, SourcePixels
			}
		}
	}
	return EstimateSimilarity("color", a.Type, fp.ReferenceHash, a.Key()), SourceEstimate
}

func (g *FingerprintGate) structural(a *entities.Artifact, fp *entities.Fingerprint, sample, ref similarity.Sample) (float64, string) {
	if s, ok := similarity.StructuralSimilarity(sample.Image, ref.Image); ok {
		return s, SourcePixels
	}
	return EstimateSimilarity("structural", a.Type, fp.ReferenceHash, a.Key()), SourceEstimate
}

func (g *FingerprintGate) aggregate(results []ArtifactResult) *FingerprintOutcome {
	report := entities.NewValidationReport(entities.GateFingerprint, "", g.now())
	out := &FingerprintOutcome{Results: results, Report: report}

	var scoreSum float64
	for _, r := range results {
		for _, info := range r.Info {
			report.AddWarning(info)
		}
		if r.Skipped {
			continue
		}
		out.Compared++
		scoreSum += r.Score
		if report.Check(r.Passed, failureViolation(r, g.opts.Threshold)) {
			out.Passed++
		}
	}

	out.PassRatio = 1
	mean := 1.0
	if out.Compared > 0 {
		out.PassRatio = float64(out.Passed) / float64(out.Compared)
		mean = scoreSum / float64(out.Compared)
	}
	report.SetScore(mean, g.opts.Threshold)
	report.SetDetail("passRatio", out.PassRatio)
	report.SetDetail("compared", out.Compared)
	report.Valid = report.ViolationCount() == 0
	return out
}

func failureViolation(r ArtifactResult, threshold float64) entities.Violation {
	severity := values.SeverityHigh
	if r.Critical {
		severity = values.SeverityCritical
	}
	msg := fmt.Sprintf("similarity %.3f below %.3f; recommend %s", r.Score, threshold, r.Recommendation)
	if len(r.HardIssues) > 0 {
		parts := make([]string, len(r.HardIssues))
		for i, h := range r.HardIssues {
			parts[i] = h.Code
		}
		msg = fmt.Sprintf("similarity %.3f with hard issues [%s]; recommend %s",
			r.Score, strings.Join(parts, ", "), r.Recommendation)
	}
	return entities.Violation{
		Code:     CodeFingerprintMismatch,
		Message:  msg,
		Severity: severity,
		Subject:  r.ArtifactID,
		Expected: threshold,
		Actual:   r.Score,
	}
}

// estimateRange is the [lo, hi) band a seeded estimate falls in.
type estimateRange struct{ lo, hi float64 }

var (
	rangeAppearance        = estimateRange{0.80, 0.95}
	rangeStructuralControl = estimateRange{0.88, 0.98}
	rangeStructuralOther   = estimateRange{0.75, 0.90}
)

// EstimateSimilarity is the deterministic fallback score for a component
// when no pixel data is comparable. It depends only on its arguments.
// Structural estimates favor types generated with the reference as a
// control input.
func EstimateSimilarity(component string, t values.ArtifactType, referenceHash, artifactID string) float64 {
	r := rangeAppearance
	if component == "structural" {
		r = rangeStructuralOther
		if t.UsesReferenceControl() {
			r = rangeStructuralControl
		}
	}
	key := strings.Join([]string{component, string(t), referenceHash, artifactID}, "|")
	u := float64(xxhash.Sum64String(key)>>11) / float64(uint64(1)<<53)
	return math.Round((r.lo+u*(r.hi-r.lo))*1e6) / 1e6
}

func styleString(style map[string]any, key string) string {
	if v, ok := style[key].(string); ok {
		return v
	}
	return ""
}

func styleStrings(style map[string]any, key string) []string {
	switch v := style[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
