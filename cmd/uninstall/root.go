package uninstall

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stu2116Edward/dockman/cmd/cmdutils"
)

// GetRootCmd returns the uninstall command.
func GetRootCmd(f *cmdutils.Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uninstall <engine|compose|buildx>",
		Short: "Remove the Docker engine or a companion tool",
		Long: `Uninstall detects how the tool got onto the host and removes it the
same way: package manager for packaged installs, file removal for manually
placed binaries and plugins. Removing something that is not installed is a
no-op.`,
		Args: cobra.ExactArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cmdutils.RequireRoot()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, ok := f.TargetByName(args[0])
			if !ok {
				return fmt.Errorf("unknown target %q, expected engine, compose or buildx", args[0])
			}
			return f.Manager(cmd.Context(), target).Uninstall(cmd.Context())
		},
	}
	return cmd
}
