package services

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
	"github.com/plumbline-dev/plumbline/internal/domain/entities"
)

// hashField is the top-level key excluded from canonical serialization.
const hashField = "hash"

// DigestBackend turns canonical bytes into a prefixed digest string.
// A backend must always produce the same digest for the same input;
// digests from different backends are never compared.
type DigestBackend interface {
	Name() string
	Digest(data []byte) string
}

// SHA256Backend is the cryptographic backend.
type SHA256Backend struct{}

// Name returns the digest prefix.
func (SHA256Backend) Name() string { return "sha256" }

// Digest returns "sha256:<hex>".
func (SHA256Backend) Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// RollingBackend is a deterministic non-cryptographic backend made of two
// independent 32-bit multiplicative rolling hashes.
type RollingBackend struct{}

const (
	rollMulA  uint32 = 31
	rollMulB  uint32 = 16777619
	rollSeedA uint32 = 5381
	rollSeedB uint32 = 2166136261
)

// Name returns the digest prefix.
func (RollingBackend) Name() string { return "roll" }

// Digest returns "roll:<8 hex><8 hex>".
func (RollingBackend) Digest(data []byte) string {
	a, b := rollSeedA, rollSeedB
	for _, c := range data {
		a = a*rollMulA + uint32(c)
		b = (b ^ uint32(c)) * rollMulB
	}
	return fmt.Sprintf("roll:%08x%08x", a, b)
}

// BackendByName resolves a configured backend name.
func BackendByName(name string) (DigestBackend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sha256":
		return SHA256Backend{}, nil
	case "roll", "rolling":
		return RollingBackend{}, nil
	default:
		return nil, fmt.Errorf("unknown hash backend %q (valid: sha256, rolling)", name)
	}
}

// StateHasher computes and verifies canonical hashes of structured state.
// The canonical form is RFC 8785 JSON of the value with its top-level
// "hash" key removed.
type StateHasher struct {
	backend DigestBackend
}

// NewStateHasher creates a hasher. A nil backend selects SHA-256.
func NewStateHasher(backend DigestBackend) *StateHasher {
	if backend == nil {
		backend = SHA256Backend{}
	}
	return &StateHasher{backend: backend}
}

// Backend returns the digest backend in use.
func (h *StateHasher) Backend() DigestBackend {
	return h.backend
}

// Canonicalize returns the canonical bytes that ComputeHash digests.
func (h *StateHasher) Canonicalize(v any) ([]byte, error) {
	doc, err := decodeGeneric(v)
	if err != nil {
		return nil, err
	}
	if obj, ok := doc.(map[string]any); ok {
		delete(obj, hashField)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}
	canonical, err := jsoncanonicalizer.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize state: %w", err)
	}
	return canonical, nil
}

// ComputeHash returns the digest of v's canonical form. Any stale hash
// already stored on v is ignored.
func (h *StateHasher) ComputeHash(v any) (string, error) {
	canonical, err := h.Canonicalize(v)
	if err != nil {
		return "", err
	}
	return h.backend.Digest(canonical), nil
}

// VerifyHash recomputes v's hash and compares it with the stored one.
// It never fails: a missing, empty or mismatched hash, or a value that
// cannot be canonicalized, yields false.
func (h *StateHasher) VerifyHash(v any) bool {
	doc, err := decodeGeneric(v)
	if err != nil {
		return false
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return false
	}
	stored, _ := obj[hashField].(string)
	if stored == "" {
		return false
	}
	computed, err := h.ComputeHash(obj)
	if err != nil {
		return false
	}
	return computed == stored
}

// SealState returns a copy of state with its hash set. The input is not modified.
func (h *StateHasher) SealState(state *entities.DesignState) (*entities.DesignState, error) {
	sealed := state.Clone()
	sealed.Hash = ""
	digest, err := h.ComputeHash(sealed)
	if err != nil {
		return nil, err
	}
	sealed.Hash = digest
	return sealed, nil
}

// SealLock returns a copy of lock with its hash set.
func (h *StateHasher) SealLock(lock *entities.SpaceProgramLock) (*entities.SpaceProgramLock, error) {
	sealed := *lock
	sealed.Hash = ""
	digest, err := h.ComputeHash(&sealed)
	if err != nil {
		return nil, err
	}
	sealed.Hash = digest
	return &sealed, nil
}

// GeometryHash hashes the geometry section on its own.
func (h *StateHasher) GeometryHash(geometry *entities.Geometry) (string, error) {
	return h.ComputeHash(geometry)
}

// decodeGeneric round-trips v through JSON so struct values, raw documents
// and plain maps share one representation. Numbers stay exact.
func decodeGeneric(v any) (any, error) {
	var raw []byte
	switch t := v.(type) {
	case []byte:
		raw = t
	case json.RawMessage:
		raw = t
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode state: %w", err)
		}
		raw = b
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	return doc, nil
}
