package main

import (
	"encoding/json"
	"fmt"

	"github.com/plumbline-dev/plumbline/internal/application/dto"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type correctFlags struct {
	geometry    string
	constraints string
	write       string
}

func newCorrectCommand() *cobra.Command {
	opts := DefaultCommonOptions()
	var flags correctFlags

	cmd := &cobra.Command{
		Use:   "correct",
		Short: "Refine a geometry candidate with the constraint reasoner",
		Long: `Run the multi-pass correction loop: the reasoner scores the candidate and
proposes corrections, which are applied to the geometry before the next
pass. The loop stops when the target score is reached or passes run out.

The reasoner URL comes from --reasoner-url, PLUMBLINE_REASONER_URL or
reasoner.url in the config file.`,
		Args: cobra.NoArgs,
		RunE: withContainer(&opts, func(cc *CommandContext, cmd *cobra.Command, _ []string) error {
			return runCorrect(cc, cmd, flags)
		}),
	}
	opts.RegisterFlags(cmd)
	cmd.Flags().StringVar(&flags.geometry, "geometry", "", "Geometry candidate file (required)")
	cmd.Flags().StringVar(&flags.constraints, "constraints", "", "Constraint document passed to the reasoner (required)")
	cmd.Flags().StringVar(&flags.write, "write-geometry", "", "Write the corrected geometry to this file")
	cmd.Flags().String("reasoner-url", "", "Constraint reasoner endpoint")
	_ = viper.BindPFlag("reasoner.url", cmd.Flags().Lookup("reasoner-url"))
	_ = cmd.MarkFlagRequired("geometry")
	_ = cmd.MarkFlagRequired("constraints")
	return cmd
}

func init() {
	rootCmd.AddCommand(newCorrectCommand())
}

func runCorrect(cc *CommandContext, cmd *cobra.Command, flags correctFlags) error {
	reasoner, err := cc.Container.Reasoner()
	if err != nil {
		return err
	}
	runID, err := cc.runID()
	if err != nil {
		return err
	}
	geometry, err := cc.loadGeometry(flags.geometry)
	if err != nil {
		return err
	}
	constraints, err := cc.loadRaw(flags.constraints)
	if err != nil {
		return err
	}

	result := newResult(flags.geometry)
	result.RunID = runID.String()

	outcome, err := cc.Container.ConsistencyService().Correct(cc.Context, reasoner, dto.CorrectionRequest{
		RunID:       runID,
		Constraints: constraints,
		Geometry:    *geometry,
	})
	if err != nil {
		return emit(cc, cmd, result, err, true)
	}
	result.Correction = outcome
	result.Passed = outcome.Status.IsAccepted()

	if flags.write != "" {
		data, err := json.Marshal(outcome.Geometry)
		if err != nil {
			return fmt.Errorf("failed to encode geometry: %w", err)
		}
		if err := writeDocument(flags.write, data); err != nil {
			return err
		}
	}

	return emit(cc, cmd, result, nil, cc.Container.Strict())
}
