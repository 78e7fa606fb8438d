// Package container provides dependency injection for the application.
package container

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/plumbline-dev/plumbline/internal/application/ports"
	"github.com/plumbline-dev/plumbline/internal/application/services"
	"github.com/plumbline-dev/plumbline/internal/domain/repositories"
	"github.com/plumbline-dev/plumbline/internal/infrastructure/config"
	"github.com/plumbline-dev/plumbline/internal/infrastructure/imaging"
	"github.com/plumbline-dev/plumbline/internal/infrastructure/metrics"
	"github.com/plumbline-dev/plumbline/internal/infrastructure/output"
	"github.com/plumbline-dev/plumbline/internal/infrastructure/persistence/filesystem"
	"github.com/plumbline-dev/plumbline/internal/infrastructure/persistence/memory"
	"github.com/plumbline-dev/plumbline/internal/infrastructure/reasoner"
	"github.com/plumbline-dev/plumbline/internal/infrastructure/system"
	"github.com/plumbline-dev/plumbline/internal/infrastructure/validation"
)

// Container holds all application dependencies.
type Container struct {
	cfg          *system.Config
	loader       *config.DocumentLoader
	images       *imaging.FileResolver
	metrics      *metrics.GateMetrics
	history      *memory.RunHistoryRepository
	fingerprints repositories.FingerprintRepository
	formatters   *output.FormatterFactory
	hash         *services.HashService
	preflight    *services.PreflightService
	consistency  *services.ConsistencyService
	runValidator *services.RunValidator
	logger       *slog.Logger

	reasonerOnce sync.Once
	reasoner     ports.ConstraintReasoner
	reasonerErr  error
}

// Options configure the container. Non-zero overrides win over the
// system config file.
type Options struct {
	Logger           *slog.Logger
	SystemConfigPath string
	// Config replaces loading from SystemConfigPath when set.
	Config *system.Config

	NonStrict   bool
	ImageRoot   string
	ReasonerURL string
}

// New creates a new dependency injection container.
func New(opts Options) (*Container, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	cfg := opts.Config
	if cfg == nil {
		var err error
		cfg, err = system.NewConfigLoader().Load(opts.SystemConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load system config: %w", err)
		}
	}
	if opts.NonStrict {
		strict := false
		cfg.Gates.Strict = &strict
	}
	if opts.ImageRoot != "" {
		cfg.Images.Root = opts.ImageRoot
	}
	if opts.ReasonerURL != "" {
		cfg.Reasoner.URL = opts.ReasonerURL
	}

	gateOpts := cfg.Gates.ToGateOptions()

	history, err := memory.NewRunHistoryRepository(cfg.Gates.HistorySize)
	if err != nil {
		return nil, err
	}

	var fingerprints repositories.FingerprintRepository
	if cfg.Fingerprints.InMemory {
		fingerprints = memory.NewFingerprintRepository()
	} else {
		dir := cfg.Fingerprints.Dir
		if dir == "" {
			dir = system.DefaultFingerprintDir()
		}
		fingerprints = filesystem.NewFingerprintStore(dir)
	}

	images, err := imaging.NewFileResolver(imaging.Options{
		Root:     cfg.Images.Root,
		MaxBytes: cfg.Images.MaxBytes,
		Logger:   opts.Logger,
	})
	if err != nil {
		return nil, err
	}

	schemas, err := validation.NewSchemaValidator()
	if err != nil {
		return nil, err
	}

	gateMetrics := metrics.NewGateMetrics()

	consistency, err := services.NewConsistencyService(gateOpts, fingerprints, history, images, gateMetrics, opts.Logger)
	if err != nil {
		return nil, err
	}

	// Preflight, hashing and the pipeline share the gates' hasher so one
	// backend seals and verifies everything.
	hasher := consistency.Hasher()
	preflight := services.NewPreflightService(hasher, schemas, images, gateOpts.Strict, opts.Logger)
	loader := config.NewDocumentLoader()

	return &Container{
		cfg:          cfg,
		loader:       loader,
		images:       images,
		metrics:      gateMetrics,
		history:      history,
		fingerprints: fingerprints,
		formatters:   output.NewFormatterFactory(),
		hash:         services.NewHashService(hasher, opts.Logger),
		preflight:    preflight,
		consistency:  consistency,
		runValidator: services.NewRunValidator(loader, preflight, consistency, gateOpts.Strict, opts.Logger),
		logger:       opts.Logger,
	}, nil
}

// Config returns the effective system configuration.
func (c *Container) Config() *system.Config {
	return c.cfg
}

// Strict reports whether gates fail with errors.
func (c *Container) Strict() bool {
	return c.cfg.Gates.ToGateOptions().Strict
}

// Loader returns the document loader.
func (c *Container) Loader() ports.DocumentLoader {
	return c.loader
}

// HashService returns the hashing use case.
func (c *Container) HashService() *services.HashService {
	return c.hash
}

// PreflightService returns the preflight checker.
func (c *Container) PreflightService() *services.PreflightService {
	return c.preflight
}

// ConsistencyService returns the gate use cases.
func (c *Container) ConsistencyService() *services.ConsistencyService {
	return c.consistency
}

// RunValidator returns the full pipeline use case.
func (c *Container) RunValidator() *services.RunValidator {
	return c.runValidator
}

// Formatters returns the output formatter factory.
func (c *Container) Formatters() ports.OutputFormatterFactory {
	return c.formatters
}

// Metrics returns the gate metrics.
func (c *Container) Metrics() *metrics.GateMetrics {
	return c.metrics
}

// Reasoner returns the HTTP constraint reasoner, created on first use.
// It fails when no reasoner URL is configured.
func (c *Container) Reasoner() (ports.ConstraintReasoner, error) {
	c.reasonerOnce.Do(func() {
		c.reasoner, c.reasonerErr = reasoner.NewHTTPReasoner(reasoner.Options{
			URL:        c.cfg.Reasoner.URL,
			Timeout:    c.cfg.Reasoner.Timeout,
			MaxRetries: c.cfg.Reasoner.MaxRetries,
			Logger:     c.logger,
		})
	})
	return c.reasoner, c.reasonerErr
}

// Flush writes metrics to the configured textfile, if any.
func (c *Container) Flush() error {
	if c.cfg.Metrics.Textfile == "" {
		return nil
	}
	if err := c.metrics.WriteTextfile(c.cfg.Metrics.Textfile); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	c.logger.Debug("metrics written", "file", c.cfg.Metrics.Textfile)
	return nil
}
