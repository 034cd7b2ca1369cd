package mirrorcfg

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stu2116Edward/dockman/cmd/cmdutils"
	"github.com/stu2116Edward/dockman/internal/install"
)

// GetRootCmd returns the registry-mirror configuration command.
func GetRootCmd(f *cmdutils.Factory) *cobra.Command {
	var (
		mirrors   []string
		clearFlag bool
	)

	cmd := &cobra.Command{
		Use:   "mirrors",
		Short: "Configure registry mirrors for the Docker daemon",
		Long: `Mirrors rewrites the registry-mirrors list in the daemon configuration.
The previous file is kept as a timestamped backup and the engine service is
restarted when it is running. Without --set the configured defaults apply.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cmdutils.RequireRoot()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			dc := install.NewDaemonConfigurator(f.Config.DaemonJSON, "docker", f.Runner)

			if clearFlag {
				if err := dc.SetMirrors(cmd.Context(), nil); err != nil {
					return err
				}
				fmt.Fprintln(os.Stdout, "registry mirrors removed")
				return nil
			}

			list := mirrors
			if len(list) == 0 {
				list = f.Config.RegistryMirrors
			}
			if len(list) == 0 {
				return fmt.Errorf("no mirrors given and none configured")
			}

			confirmed, err := f.Prompter.Confirm(
				fmt.Sprintf("Write %d registry mirror(s) to %s?", len(list), f.Config.DaemonJSON), true)
			if err != nil {
				return err
			}
			if !confirmed {
				return nil
			}

			if err := dc.SetMirrors(cmd.Context(), list); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "registry mirrors set:\n  %s\n", strings.Join(list, "\n  "))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&mirrors, "set", nil, "Mirror URLs to write (default: built-in list)")
	cmd.Flags().BoolVar(&clearFlag, "clear", false, "Remove the registry-mirrors entry")
	return cmd
}
