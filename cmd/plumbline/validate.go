package main

import (
	"github.com/spf13/cobra"
)

func newValidateCommand() *cobra.Command {
	opts := DefaultCommonOptions()

	cmd := &cobra.Command{
		Use:   "validate <run.yaml>",
		Short: "Run every gate over a run manifest",
		Long: `Load a run manifest and run the full pipeline: preflight, post-spec
compliance, post-render compliance, drift, fingerprint, modify drift and
pre-compose compliance. Stages whose inputs the manifest omits are skipped.

Manifest strings may reference {{ .vars.key }} and {{ env "NAME" }}.
Relative paths resolve against the manifest's directory.`,
		Args: cobra.ExactArgs(1),
		RunE: withContainer(&opts, func(cc *CommandContext, cmd *cobra.Command, args []string) error {
			result, err := cc.Container.RunValidator().Validate(cc.Context, args[0])
			if result != nil {
				cc.Logger.Info("pipeline complete",
					"reports", len(result.Reports),
					"violations", result.ViolationCount(),
					"passed", result.Passed)
			}
			return emit(cc, cmd, result, err, cc.Container.Strict())
		}),
	}
	opts.RegisterFlags(cmd)
	return cmd
}

func init() {
	rootCmd.AddCommand(newValidateCommand())
}
