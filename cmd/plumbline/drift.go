package main

import (
	"github.com/plumbline-dev/plumbline/internal/application/dto"
	"github.com/spf13/cobra"
)

func newDriftCommand() *cobra.Command {
	opts := DefaultCommonOptions()
	var (
		artifacts string
		edges     bool
	)

	cmd := &cobra.Command{
		Use:   "drift <state>",
		Short: "Check that every artifact depicts the same design state",
		Long: `Compare the state hash and seed recorded on every artifact with the design
state. With --edges, rendered views are also compared with their geometry
control images by edge alignment.

Use "drift modify" to compare a modify iteration with its baseline.`,
		Args: cobra.ExactArgs(1),
		RunE: withContainer(&opts, func(cc *CommandContext, cmd *cobra.Command, args []string) error {
			return runDrift(cc, cmd, args[0], artifacts, edges)
		}),
	}
	opts.RegisterFlags(cmd)
	cmd.Flags().StringVar(&artifacts, "artifacts", "", "Artifact list file (required)")
	cmd.Flags().BoolVar(&edges, "edges", false, "Check edge alignment against control images")
	_ = cmd.MarkFlagRequired("artifacts")

	cmd.AddCommand(newModifyDriftCommand())
	return cmd
}

type modifyFlags struct {
	baseline          string
	current           string
	baselineArtifacts string
	currentArtifacts  string
}

func newModifyDriftCommand() *cobra.Command {
	opts := DefaultCommonOptions()
	var flags modifyFlags

	cmd := &cobra.Command{
		Use:   "modify",
		Short: "Compare a modify iteration with its baseline",
		Args:  cobra.NoArgs,
		RunE: withContainer(&opts, func(cc *CommandContext, cmd *cobra.Command, _ []string) error {
			return runModifyDrift(cc, cmd, flags)
		}),
	}
	opts.RegisterFlags(cmd)
	cmd.Flags().StringVar(&flags.baseline, "baseline", "", "Baseline design state (required)")
	cmd.Flags().StringVar(&flags.current, "current", "", "Current design state (required)")
	cmd.Flags().StringVar(&flags.baselineArtifacts, "baseline-artifacts", "", "Baseline artifact list")
	cmd.Flags().StringVar(&flags.currentArtifacts, "current-artifacts", "", "Current artifact list")
	_ = cmd.MarkFlagRequired("baseline")
	_ = cmd.MarkFlagRequired("current")
	return cmd
}

func init() {
	rootCmd.AddCommand(newDriftCommand())
}

func runDrift(cc *CommandContext, cmd *cobra.Command, statePath, artifactsPath string, edges bool) error {
	runID, err := cc.runID()
	if err != nil {
		return err
	}
	state, err := cc.loadState(statePath)
	if err != nil {
		return err
	}
	artifacts, err := cc.loadArtifacts(artifactsPath)
	if err != nil {
		return err
	}

	result := newResult(statePath)
	result.RunID = runID.String()
	result.StateHash = state.Hash

	reports, err := cc.Container.ConsistencyService().CheckDrift(cc.Context, dto.DriftRequest{
		RunID:      runID,
		State:      state,
		Artifacts:  artifacts,
		CheckEdges: edges,
	})
	for _, r := range reports {
		result.AddReport(r)
	}
	return emit(cc, cmd, result, err, cc.Container.Strict())
}

func runModifyDrift(cc *CommandContext, cmd *cobra.Command, flags modifyFlags) error {
	runID, err := cc.runID()
	if err != nil {
		return err
	}
	baseline, err := cc.loadState(flags.baseline)
	if err != nil {
		return err
	}
	current, err := cc.loadState(flags.current)
	if err != nil {
		return err
	}
	baselineArtifacts, err := cc.loadArtifacts(flags.baselineArtifacts)
	if err != nil {
		return err
	}
	currentArtifacts, err := cc.loadArtifacts(flags.currentArtifacts)
	if err != nil {
		return err
	}

	result := newResult(flags.current)
	result.RunID = runID.String()
	result.StateHash = current.Hash

	report, err := cc.Container.ConsistencyService().CheckModifyDrift(cc.Context, dto.ModifyDriftRequest{
		RunID:             runID,
		Baseline:          baseline,
		Current:           current,
		BaselineArtifacts: baselineArtifacts,
		CurrentArtifacts:  currentArtifacts,
	})
	result.AddReport(report)
	return emit(cc, cmd, result, err, cc.Container.Strict())
}
