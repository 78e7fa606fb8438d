package main

import (
	"fmt"

	"github.com/plumbline-dev/plumbline/internal/application/services"
	"github.com/plumbline-dev/plumbline/internal/domain/entities"
	"github.com/plumbline-dev/plumbline/internal/domain/values"
)

func (cc *CommandContext) loadRaw(path string) ([]byte, error) {
	return cc.Container.Loader().LoadDocument(cc.Context, path)
}

func (cc *CommandContext) loadState(path string) (*entities.DesignState, error) {
	data, err := cc.loadRaw(path)
	if err != nil {
		return nil, err
	}
	return services.DecodeState(data)
}

func (cc *CommandContext) loadLock(path string) (*entities.SpaceProgramLock, error) {
	data, err := cc.loadRaw(path)
	if err != nil {
		return nil, err
	}
	return services.DecodeLock(data)
}

// loadArtifacts returns nil for an empty path.
func (cc *CommandContext) loadArtifacts(path string) (entities.ArtifactSet, error) {
	if path == "" {
		return nil, nil
	}
	data, err := cc.loadRaw(path)
	if err != nil {
		return nil, err
	}
	return services.DecodeArtifacts(data)
}

// loadGeometry returns nil for an empty path.
func (cc *CommandContext) loadGeometry(path string) (*entities.Geometry, error) {
	if path == "" {
		return nil, nil
	}
	data, err := cc.loadRaw(path)
	if err != nil {
		return nil, err
	}
	return services.DecodeGeometry(data)
}

// runID parses --run-id or generates a fresh identifier.
func (cc *CommandContext) runID() (values.RunID, error) {
	if cc.Options.RunID == "" {
		return values.NewRunID(), nil
	}
	id, err := values.ParseRunID(cc.Options.RunID)
	if err != nil {
		return values.RunID{}, fmt.Errorf("invalid --run-id: %w", err)
	}
	return id, nil
}
