package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/plumbline-dev/plumbline/internal/application/dto"
	"github.com/plumbline-dev/plumbline/internal/application/ports"
	"github.com/plumbline-dev/plumbline/internal/version"
	"github.com/spf13/cobra"
)

// errGatesFailed is returned when a command completes but a gate rejected
// its input.
var errGatesFailed = errors.New("one or more gates failed")

// newResult starts a result for source.
func newResult(source string) *dto.RunResult {
	return &dto.RunResult{
		Source:   source,
		Version:  version.Get().Version,
		Passed:   true,
		Metadata: dto.ResponseMetadata{ProcessedAt: time.Now()},
	}
}

// emit writes result in the requested format and flushes metrics. The
// returned error is runErr when set, otherwise errGatesFailed if the result
// did not pass and failures are fatal.
func emit(cc *CommandContext, cmd *cobra.Command, result *dto.RunResult, runErr error, fatal bool) error {
	if result.Version == "" {
		result.Version = version.Get().Version
	}
	if runErr != nil {
		result.Error = runErr.Error()
		result.Passed = false
	}
	if !result.Metadata.ProcessedAt.IsZero() && result.Metadata.Duration == 0 {
		result.Metadata.Duration = time.Since(result.Metadata.ProcessedAt)
	}

	if err := writeResult(cc, cmd.OutOrStdout(), result); err != nil {
		return err
	}

	if err := cc.Container.Flush(); err != nil {
		cc.Logger.Warn("failed to flush metrics", "error", err)
	}

	if runErr != nil {
		return runErr
	}
	if !result.Passed && fatal {
		return errGatesFailed
	}
	return nil
}

func writeResult(cc *CommandContext, stdout io.Writer, result *dto.RunResult) error {
	writer := stdout
	if path := cc.Options.Output; path != "" {
		//nolint:gosec // G304: User-controlled output file path is intentional
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() {
			_ = file.Close() // Best-effort cleanup
		}()
		writer = file
		slog.Info("writing output", "file", path, "format", cc.Options.Format)
	}

	formatter, err := cc.Container.Formatters().Create(cc.Options.Format, writer, ports.FormatterOptions{
		Indent:     true,
		SourcePath: result.Source,
	})
	if err != nil {
		return err
	}
	if err := formatter.Format(result); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	return nil
}
