package dto

import "github.com/plumbline-dev/plumbline/internal/domain/services"

// GateOptions is the immutable configuration passed into every gate call.
type GateOptions struct {
	// Strict turns invalid reports into errors. Defaults to true.
	Strict bool

	// HashBackend selects the digest used for sealing: "sha256" or "rolling".
	HashBackend string

	Compliance  services.ComplianceOptions
	Drift       services.DriftOptions
	Fingerprint services.FingerprintOptions
	Correction  services.CorrectionOptions
}

// DefaultGateOptions returns strict gates with standard thresholds.
func DefaultGateOptions() GateOptions {
	return GateOptions{
		Strict:      true,
		HashBackend: "sha256",
		Compliance:  services.DefaultComplianceOptions(),
		Drift:       services.DefaultDriftOptions(),
		Fingerprint: services.DefaultFingerprintOptions(),
		Correction:  services.DefaultCorrectionOptions(),
	}
}
