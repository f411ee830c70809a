package cli

import (
	"github.com/spf13/cobra"

	"github.com/dcrew44/llm-social-network/internal/domain"
	"github.com/dcrew44/llm-social-network/internal/store"
)

// NewInitDBCommand implements `init-db [--force]` (§6.2).
func NewInitDBCommand(opts *RootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init-db",
		Short: "create the event log and projection schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(opts, cmd)
			s, err := store.Open(opts.DBPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "open database", err)
			}
			defer s.Close()

			if err := s.Init(cmd.Context(), force); err != nil {
				if domain.IsAlreadyInitialized(err) {
					_ = f.Error("ALREADY_INITIALIZED", err.Error(), nil)
					return WrapExitError(ExitCommandError, "init-db", err)
				}
				return WrapExitError(ExitFailure, "init-db", err)
			}
			return f.Success(map[string]any{"path": opts.DBPath, "force": force})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "drop and recreate existing schema")
	return cmd
}
