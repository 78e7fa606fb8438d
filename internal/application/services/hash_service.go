package services

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/plumbline-dev/plumbline/internal/application/dto"
	"github.com/plumbline-dev/plumbline/internal/domain/entities"
	"github.com/plumbline-dev/plumbline/internal/domain/services"
)

// HashService computes, verifies and seals document hashes.
type HashService struct {
	hasher *services.StateHasher
	logger *slog.Logger
}

// NewHashService creates a hash service over the given hasher.
func NewHashService(hasher *services.StateHasher, logger *slog.Logger) *HashService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HashService{hasher: hasher, logger: logger}
}

// Hash returns the canonical hash of a JSON document, ignoring any stored hash.
func (s *HashService) Hash(source string, document []byte) (*dto.HashResponse, error) {
	digest, err := s.hasher.ComputeHash(document)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return &dto.HashResponse{
		Source:  source,
		Backend: s.hasher.Backend().Name(),
		Hash:    digest,
		Stored:  storedHash(document),
	}, nil
}

// Verify recomputes a document's hash and compares it with the stored one.
// A mismatch is reported in the response, not as an error.
func (s *HashService) Verify(source string, document []byte) (*dto.HashResponse, error) {
	resp, err := s.Hash(source, document)
	if err != nil {
		return nil, err
	}
	ok := s.hasher.VerifyHash(document)
	resp.Verified = &ok
	if !ok {
		s.logger.Warn("hash verification failed", "source", source, "stored", resp.Stored, "computed", resp.Hash)
	}
	return resp, nil
}

// SealState decodes a design state, stamps the current schema version when
// missing and returns the sealed copy.
func (s *HashService) SealState(document []byte) (*entities.DesignState, error) {
	state, err := DecodeState(document)
	if err != nil {
		return nil, err
	}
	if err := state.Validate(); err != nil {
		return nil, fmt.Errorf("refusing to seal invalid state: %w", err)
	}
	if state.SchemaVersion == "" {
		state.SchemaVersion = entities.CurrentSchemaVersion
	}
	return s.hasher.SealState(state)
}

func storedHash(document []byte) string {
	var doc struct {
		Hash string `json:"hash"`
	}
	if err := json.Unmarshal(document, &doc); err != nil {
		return ""
	}
	return doc.Hash
}
