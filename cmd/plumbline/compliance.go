package main

import (
	"github.com/plumbline-dev/plumbline/internal/application/dto"
	"github.com/plumbline-dev/plumbline/internal/domain/values"
	"github.com/spf13/cobra"
)

type complianceFlags struct {
	lock       string
	checkpoint string
	artifacts  string
	built      string
}

func newComplianceCommand() *cobra.Command {
	opts := DefaultCommonOptions()
	var flags complianceFlags

	cmd := &cobra.Command{
		Use:   "compliance <state>",
		Short: "Check a design state against its program lock",
		Long: `Run the program compliance gate at one checkpoint.

Checkpoints:
  post-spec     state only: levels, program counts, areas, invariants
  post-render   also requires the rendered artifact list
  pre-compose   final check before composition; artifacts required`,
		Args: cobra.ExactArgs(1),
		RunE: withContainer(&opts, func(cc *CommandContext, cmd *cobra.Command, args []string) error {
			return runCompliance(cc, cmd, args[0], flags)
		}),
	}
	opts.RegisterFlags(cmd)
	cmd.Flags().StringVar(&flags.lock, "lock", "", "Program lock file (required)")
	cmd.Flags().StringVar(&flags.checkpoint, "checkpoint", string(values.CheckpointPostSpec),
		"Checkpoint: post-spec, post-render, pre-compose")
	cmd.Flags().StringVar(&flags.artifacts, "artifacts", "", "Artifact list file")
	cmd.Flags().StringVar(&flags.built, "built", "", "Built geometry file for adjacency checks")
	_ = cmd.MarkFlagRequired("lock")
	return cmd
}

func init() {
	rootCmd.AddCommand(newComplianceCommand())
}

func runCompliance(cc *CommandContext, cmd *cobra.Command, statePath string, flags complianceFlags) error {
	checkpoint, err := values.ParseCheckpoint(flags.checkpoint)
	if err != nil {
		return err
	}
	runID, err := cc.runID()
	if err != nil {
		return err
	}

	state, err := cc.loadState(statePath)
	if err != nil {
		return err
	}
	lock, err := cc.loadLock(flags.lock)
	if err != nil {
		return err
	}
	artifacts, err := cc.loadArtifacts(flags.artifacts)
	if err != nil {
		return err
	}
	built, err := cc.loadGeometry(flags.built)
	if err != nil {
		return err
	}

	result := newResult(statePath)
	result.RunID = runID.String()
	result.StateHash = state.Hash

	report, err := cc.Container.ConsistencyService().CheckCompliance(cc.Context, dto.ComplianceRequest{
		RunID:      runID,
		Checkpoint: checkpoint,
		State:      state,
		Lock:       lock,
		Artifacts:  artifacts,
		Built:      built,
	})
	result.AddReport(report)
	return emit(cc, cmd, result, err, cc.Container.Strict())
}
