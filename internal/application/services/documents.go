package services

import (
	"encoding/json"
	"fmt"

	"github.com/plumbline-dev/plumbline/internal/domain/entities"
)

// DecodeState parses a design state document.
func DecodeState(data []byte) (*entities.DesignState, error) {
	var state entities.DesignState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode design state: %w", err)
	}
	return &state, nil
}

// DecodeLock parses a program lock document.
func DecodeLock(data []byte) (*entities.SpaceProgramLock, error) {
	var lock entities.SpaceProgramLock
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("failed to decode program lock: %w", err)
	}
	return &lock, nil
}

// DecodeArtifacts parses an artifact list. Both a bare array and an object
// with an "artifacts" field are accepted.
func DecodeArtifacts(data []byte) (entities.ArtifactSet, error) {
	var set entities.ArtifactSet
	if err := json.Unmarshal(data, &set); err == nil {
		return set, nil
	}
	var wrapped struct {
		Artifacts entities.ArtifactSet `json:"artifacts"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode artifacts: %w", err)
	}
	return wrapped.Artifacts, nil
}

// DecodeGeometry parses a geometry document.
func DecodeGeometry(data []byte) (*entities.Geometry, error) {
	var g entities.Geometry
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to decode geometry: %w", err)
	}
	return &g, nil
}
