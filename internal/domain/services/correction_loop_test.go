package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/plumbline-dev/plumbline/internal/domain/entities"
	"github.com/plumbline-dev/plumbline/internal/domain/values"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedReasoner replays one response per pass, repeating the last.
type scriptedReasoner struct {
	responses []*entities.ReasoningResult
	errAt     int
	requests  []entities.ReasoningRequest
}

func (r *scriptedReasoner) Evaluate(_ context.Context, req entities.ReasoningRequest) (*entities.ReasoningResult, error) {
	r.requests = append(r.requests, req)
	if r.errAt > 0 && req.Pass == r.errAt {
		return nil, errors.New("reasoner unavailable")
	}
	i := min(req.Pass-1, len(r.responses)-1)
	return r.responses[i], nil
}

var testConstraints = json.RawMessage(`{"rules":["bath above kitchen"]}`)

func translateLiving() []entities.CorrectionAction {
	return []entities.CorrectionAction{{Kind: entities.CorrectionTranslate, Target: "living", DX: 1}}
}

func Test_CorrectionLoop_AcceptsAtTarget(t *testing.T) {
	reasoner := &scriptedReasoner{responses: []*entities.ReasoningResult{
		{Score: 70, Corrections: translateLiving()},
		{Score: 92},
	}}

	out := NewCorrectionLoop(reasoner, nil, DefaultCorrectionOptions(), nil).Run(context.Background(), testConstraints, correctorLayout())

	assert.Equal(t, values.CorrectionValid, out.Status)
	assert.Equal(t, 2, out.PassesUsed)
	require.Len(t, out.History, 2)
	assert.Equal(t, 1, out.History[0].Applied)
	assert.InDelta(t, 1.0, out.Geometry.Rooms[0].Polygon[0].X, 1e-9, "returned geometry is the one scored")
	assert.JSONEq(t, string(testConstraints), string(reasoner.requests[1].Constraints))
}

func Test_CorrectionLoop_PassedFlagWins(t *testing.T) {
	reasoner := &scriptedReasoner{responses: []*entities.ReasoningResult{{Passed: true, Score: 10}}}

	out := NewCorrectionLoop(reasoner, nil, DefaultCorrectionOptions(), nil).Run(context.Background(), testConstraints, correctorLayout())

	assert.Equal(t, values.CorrectionValid, out.Status)
	assert.Equal(t, 1, out.PassesUsed)
}

func Test_CorrectionLoop_NoCorrectionsStopsEarly(t *testing.T) {
	reasoner := &scriptedReasoner{responses: []*entities.ReasoningResult{{Score: 60}}}

	out := NewCorrectionLoop(reasoner, nil, DefaultCorrectionOptions(), nil).Run(context.Background(), testConstraints, correctorLayout())

	assert.Equal(t, values.CorrectionFailed, out.Status)
	assert.Equal(t, 1, out.PassesUsed)
	assert.Len(t, reasoner.requests, 1)
	assert.Equal(t, 60.0, out.FinalReport.Score)
}

func Test_CorrectionLoop_OnlyInapplicableCorrections(t *testing.T) {
	reasoner := &scriptedReasoner{responses: []*entities.ReasoningResult{
		{Score: 80, Corrections: []entities.CorrectionAction{{Kind: entities.CorrectionReorient, Target: "living"}, {Kind: "paint"}}},
	}}

	out := NewCorrectionLoop(reasoner, nil, DefaultCorrectionOptions(), nil).Run(context.Background(), testConstraints, correctorLayout())

	assert.Equal(t, values.CorrectionBestEffort, out.Status)
	assert.Equal(t, 1, out.PassesUsed)
	assert.Len(t, out.History[0].Skipped, 2)
}

func Test_CorrectionLoop_Terminates(t *testing.T) {
	tests := []struct {
		name   string
		score  float64
		passes int
		want   values.CorrectionStatus
	}{
		{"best_effort", 80, 3, values.CorrectionBestEffort},
		{"failed", 40, 3, values.CorrectionFailed},
		{"floor_inclusive", 75, 2, values.CorrectionBestEffort},
		{"single_pass", 50, 1, values.CorrectionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reasoner := &scriptedReasoner{responses: []*entities.ReasoningResult{{Score: tt.score, Corrections: translateLiving()}}}
			opts := DefaultCorrectionOptions()
			opts.MaxPasses = tt.passes

			out := NewCorrectionLoop(reasoner, nil, opts, nil).Run(context.Background(), testConstraints, correctorLayout())

			assert.Equal(t, tt.want, out.Status)
			assert.Equal(t, tt.passes, out.PassesUsed)
			assert.Len(t, reasoner.requests, tt.passes)
			assert.Len(t, out.History, tt.passes)
			// Corrections from the final pass are never applied.
			assert.InDelta(t, float64(tt.passes-1), out.Geometry.Rooms[0].Polygon[0].X, 1e-9)
			assert.Zero(t, out.History[tt.passes-1].Applied)
		})
	}
}

func Test_CorrectionLoop_ReasonerFailure(t *testing.T) {
	t.Run("first_pass", func(t *testing.T) {
		reasoner := &scriptedReasoner{errAt: 1}
		in := correctorLayout()

		out := NewCorrectionLoop(reasoner, nil, DefaultCorrectionOptions(), nil).Run(context.Background(), testConstraints, in)

		assert.Equal(t, values.CorrectionFailed, out.Status)
		assert.Nil(t, out.FinalReport)
		assert.Equal(t, in, out.Geometry)
		assert.NotEmpty(t, out.History[0].Error)
	})

	t.Run("after_progress", func(t *testing.T) {
		reasoner := &scriptedReasoner{
			errAt:     2,
			responses: []*entities.ReasoningResult{{Score: 78, Corrections: translateLiving()}},
		}

		out := NewCorrectionLoop(reasoner, nil, DefaultCorrectionOptions(), nil).Run(context.Background(), testConstraints, correctorLayout())

		assert.Equal(t, values.CorrectionBestEffort, out.Status)
		assert.Equal(t, 2, out.PassesUsed)
		assert.InDelta(t, 0.0, out.Geometry.Rooms[0].Polygon[0].X, 1e-9, "geometry matches the last scored candidate")
	})
}

func Test_CorrectionLoop_DefaultsPasses(t *testing.T) {
	reasoner := &scriptedReasoner{responses: []*entities.ReasoningResult{{Score: 10, Corrections: translateLiving()}}}

	out := NewCorrectionLoop(reasoner, nil, CorrectionOptions{TargetScore: 90, MinAcceptableScore: 75}, nil).
		Run(context.Background(), testConstraints, correctorLayout())

	assert.Equal(t, 3, out.PassesUsed)
}
