package selfupdate

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/stu2116Edward/dockman/cmd/cmdutils"
	"github.com/stu2116Edward/dockman/internal/selfupdate"
)

// GetRootCmd returns the self-update command.
func GetRootCmd(f *cmdutils.Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "self-update",
		Short: "Replace this tool with the latest released build",
		Long: `Self-update downloads the current release from the first reachable
source and swaps it over the running executable. The process then exits;
start it again to run the new build.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			confirmed, err := f.Prompter.Confirm("Download and install the latest dockman build?", true)
			if err != nil {
				return err
			}
			if !confirmed {
				return nil
			}

			updater := selfupdate.New(selfupdate.DefaultSources, 5*time.Minute)
			source, err := updater.Apply()
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "updated from %s; restart dockman to use the new build\n", source)
			os.Exit(0)
			return nil
		},
	}
}
