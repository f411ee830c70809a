package cli

import (
	"github.com/spf13/cobra"

	"github.com/dcrew44/llm-social-network/internal/kpis"
	"github.com/dcrew44/llm-social-network/internal/store"
)

// NewKPIsCommand implements `kpis [--json-output]` (§6.2). The global
// --format flag already controls json vs text, so --json-output is
// accepted as a synonym for backward-compatible invocation shape.
func NewKPIsCommand(opts *RootOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "kpis",
		Short: "compute attention-distribution and action-outcome KPIs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if jsonOutput {
				opts.Format = "json"
			}
			f := formatter(opts, cmd)
			s, err := store.Open(opts.DBPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "open database", err)
			}
			defer s.Close()

			report, err := kpis.Compute(cmd.Context(), s)
			if err != nil {
				return WrapExitError(ExitFailure, "kpis", err)
			}
			return f.Success(report)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json-output", false, "force json output regardless of --format")
	return cmd
}
