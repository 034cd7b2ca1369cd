package status

import (
	"github.com/spf13/cobra"

	"github.com/stu2116Edward/dockman/cmd/cmdutils"
	"github.com/stu2116Edward/dockman/internal/dockercli"
	"github.com/stu2116Edward/dockman/internal/install"
	"github.com/stu2116Edward/dockman/util/common/printer"
)

// GetRootCmd returns the status command.
func GetRootCmd(f *cmdutils.Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show what is installed and how",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			docker := dockercli.New(f.Runner)
			services := install.NewServiceManager(f.Runner)

			rows := make([][]string, 0, 3)
			for _, target := range install.Targets(f.Config) {
				rec := install.Detect(target, f.Runner)
				method := rec.Method()

				version := "-"
				if v, ok := versionOf(cmd, docker, target.Name); ok {
					version = v
				}

				state := "not installed"
				if rec.Installed() {
					state = "installed (" + method.String() + ")"
				}

				activity := "-"
				if target.ServiceName != "" {
					if services.IsActive(ctx, target.ServiceName) {
						activity = "active"
					} else {
						activity = "inactive"
					}
				}

				path := target.InstalledPath(method)
				if path == "" {
					path = "-"
				}
				rows = append(rows, []string{target.Name, state, version, activity, path})
			}

			return printer.PrintTable([]string{"TOOL", "STATE", "VERSION", "SERVICE", "PATH"}, rows)
		},
	}
}

func versionOf(cmd *cobra.Command, docker *dockercli.Client, targetName string) (string, bool) {
	ctx := cmd.Context()
	switch targetName {
	case "docker-engine":
		return docker.Version(ctx)
	case "docker-compose":
		return docker.ComposeVersion(ctx)
	case "docker-buildx":
		return docker.BuildxVersion(ctx)
	}
	return "", false
}
