package main

import (
	"github.com/plumbline-dev/plumbline/internal/application/dto"
	"github.com/plumbline-dev/plumbline/internal/domain/values"
	"github.com/spf13/cobra"
)

type fingerprintFlags struct {
	artifacts  string
	attempt    int
	noBlock    bool
	regenerate bool
}

func newFingerprintCommand() *cobra.Command {
	opts := DefaultCommonOptions()
	var flags fingerprintFlags

	cmd := &cobra.Command{
		Use:   "fingerprint <state>",
		Short: "Compare artifacts with the run's reference fingerprint",
		Long: `Compare every visual artifact with the run's reference fingerprint and
decide whether to proceed, retry with escalated parameters, or abort.

The first call for a run (--run-id) records the reference fingerprint from
its artifacts. Later calls compare against it. --attempt is the number of
retries already performed for the run.`,
		Args: cobra.ExactArgs(1),
		RunE: withContainer(&opts, func(cc *CommandContext, cmd *cobra.Command, args []string) error {
			return runFingerprint(cc, cmd, args[0], flags)
		}),
	}
	opts.RegisterFlags(cmd)
	cmd.Flags().StringVar(&flags.artifacts, "artifacts", "", "Artifact list file (required)")
	cmd.Flags().IntVar(&flags.attempt, "attempt", 0, "Retries already performed")
	cmd.Flags().BoolVar(&flags.noBlock, "no-block", false, "Never retry non-critical failures")
	cmd.Flags().BoolVar(&flags.regenerate, "regenerate", false, "Replace the stored fingerprint")
	_ = cmd.MarkFlagRequired("artifacts")
	return cmd
}

func init() {
	rootCmd.AddCommand(newFingerprintCommand())
}

func runFingerprint(cc *CommandContext, cmd *cobra.Command, statePath string, flags fingerprintFlags) error {
	if cc.Options.RunID == "" {
		cc.Logger.Warn("no --run-id given; the fingerprint will not match any earlier run")
	}
	runID, err := cc.runID()
	if err != nil {
		return err
	}
	state, err := cc.loadState(statePath)
	if err != nil {
		return err
	}
	artifacts, err := cc.loadArtifacts(flags.artifacts)
	if err != nil {
		return err
	}

	result := newResult(statePath)
	result.RunID = runID.String()
	result.StateHash = state.Hash

	resp, err := cc.Container.ConsistencyService().CheckFingerprint(cc.Context, dto.FingerprintRequest{
		RunID:          runID,
		State:          state,
		Artifacts:      artifacts,
		Attempt:        flags.attempt,
		BlockOnFailure: !flags.noBlock,
		Regenerate:     flags.regenerate,
	})
	if resp != nil {
		result.Fingerprint = resp
		result.AddReport(resp.Report)
		if resp.Decision.Action != values.ActionProceed {
			result.Passed = false
		}
	}
	return emit(cc, cmd, result, err, cc.Container.Strict())
}
