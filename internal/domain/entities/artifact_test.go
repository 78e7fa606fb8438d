package entities

import (
	"testing"

	"github.com/plumbline-dev/plumbline/internal/domain/values"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ArtifactSet_Replace(t *testing.T) {
	set := ArtifactSet{
		{ID: "hero", Type: values.ArtifactHero3D, StateHash: "h"},
		{ID: "plan", Type: values.ArtifactFloorPlanGround, StateHash: "h"},
	}

	retried := Artifact{ID: "plan", Type: values.ArtifactFloorPlanGround, StateHash: "h", Seed: Int64Ptr(9)}
	next := set.Replace(retried)

	require.Len(t, next, 2)
	assert.Nil(t, set[1].Seed, "original set is untouched")
	seed, ok := next[1].SeedValue()
	assert.True(t, ok)
	assert.Equal(t, int64(9), seed)

	next = set.Replace(Artifact{ID: "axo", Type: values.ArtifactAxonometric})
	assert.Len(t, next, 3)
}

func Test_ArtifactSet_Reference(t *testing.T) {
	set := ArtifactSet{
		{ID: "plan", Type: values.ArtifactFloorPlanGround},
		{ID: "hero", Type: values.ArtifactHero3D},
	}
	ref, ok := set.Reference()
	require.True(t, ok)
	assert.Equal(t, "hero", ref.ID)

	_, ok = ArtifactSet{}.Reference()
	assert.False(t, ok)
}

func Test_Artifact_Validate(t *testing.T) {
	assert.NoError(t, (&Artifact{ID: "a", Type: values.ArtifactHero3D, StateHash: "h"}).Validate())
	assert.ErrorContains(t, (&Artifact{ID: "a"}).Validate(), "type is required")
	assert.ErrorContains(t, (&Artifact{Type: values.ArtifactHero3D}).Validate(), "stateHash is required")
}

func Test_CorrectionKind_IsKnown(t *testing.T) {
	for _, k := range KnownCorrectionKinds {
		assert.True(t, k.IsKnown(), k)
	}
	assert.False(t, CorrectionKind("teleport").IsKnown())
}
