package install

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stu2116Edward/dockman/cmd/cmdutils"
	"github.com/stu2116Edward/dockman/internal/platform"
	"github.com/stu2116Edward/dockman/util/common/errors"
)

const pickAttempts = 3

// GetRootCmd returns the install command.
func GetRootCmd(f *cmdutils.Factory) *cobra.Command {
	var (
		version string
		latest  bool
	)

	cmd := &cobra.Command{
		Use:   "install <engine|compose|buildx>",
		Short: "Install the Docker engine or a companion tool",
		Long: `Install resolves a version, downloads it from the first reachable
mirror, verifies its checksum and places it on the host. Without --version
the available versions are listed for interactive selection.`,
		Args: cobra.ExactArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cmdutils.RequireRoot()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, ok := f.TargetByName(args[0])
			if !ok {
				return fmt.Errorf("unknown target %q, expected engine, compose or buildx", args[0])
			}

			if version == "" && !latest && f.Term.InteractiveEnabled {
				picked, err := pickVersion(f, cmd, target.Name)
				if err != nil {
					return err
				}
				version = picked
			}
			version = strings.TrimPrefix(version, "v")

			return f.Manager(cmd.Context(), target).Install(cmd.Context(), version)
		},
	}

	cmd.Flags().StringVar(&version, "version", "", "Exact version to install (default: choose interactively)")
	cmd.Flags().BoolVar(&latest, "latest", false, "Install the newest advertised version without asking")
	return cmd
}

// pickVersion renders the advertised versions as a numbered catalog and
// maps the operator's 1-based choice back to a version. An empty answer
// takes the newest.
func pickVersion(f *cmdutils.Factory, cmd *cobra.Command, targetName string) (string, error) {
	target, _ := f.TargetByName(targetName)
	arch, err := platform.ResolveWith(target.ArchRemap, target.Name, f.RawArch(cmd.Context()))
	if err != nil {
		return "", err
	}

	catalog, mirrorName, err := f.Selector().Catalog(cmd.Context(), target.Name, target.Endpoints, arch, target.Extract)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(os.Stdout, "Available versions (from %s):\n", mirrorName)
	catalog.Render(os.Stdout, 4)

	for attempt := 0; attempt < pickAttempts; attempt++ {
		answer, err := f.Prompter.Input("Version number to install", "1")
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(answer) == "" {
			answer = "1"
		}
		picked, err := catalog.Pick(answer)
		if err == nil {
			return picked, nil
		}
		if !errors.Is(err, errors.ErrInvalidSelection) {
			return "", err
		}
		fmt.Fprintf(os.Stdout, "Invalid selection %q, enter a number between 1 and %d.\n",
			answer, len(catalog.Versions))
	}
	return "", errors.NewSelectionError("too many invalid answers", len(catalog.Versions))
}
