// Package menu is the interactive entry point: a looping action list that
// drives every other command. Action failures print and drop back to the
// menu; only the explicit exit entry leaves the loop.
package menu

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stu2116Edward/dockman/cmd/cmdutils"
	installcmd "github.com/stu2116Edward/dockman/cmd/install"
	mirrorcmd "github.com/stu2116Edward/dockman/cmd/mirrorcfg"
	selfupdatecmd "github.com/stu2116Edward/dockman/cmd/selfupdate"
	statuscmd "github.com/stu2116Edward/dockman/cmd/status"
	uninstallcmd "github.com/stu2116Edward/dockman/cmd/uninstall"
	"github.com/stu2116Edward/dockman/internal/dockercli"
	"github.com/stu2116Edward/dockman/internal/install"
	"github.com/stu2116Edward/dockman/internal/style"
)

type action struct {
	label string
	run   func(ctx context.Context) error
}

// GetRootCmd returns the menu command. It is also what the bare invocation
// of the tool runs in a terminal.
func GetRootCmd(f *cmdutils.Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Interactive operator menu",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cmdutils.RequireRoot()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd.Context(), f)
		},
	}
}

// Run loops the action menu until the operator exits.
func Run(ctx context.Context, f *cmdutils.Factory) error {
	fmt.Fprintln(os.Stdout, style.Banner())

	actions := buildActions(f)
	labels := make([]string, 0, len(actions)+1)
	for _, a := range actions {
		labels = append(labels, a.label)
	}
	const exitLabel = "Exit"
	labels = append(labels, exitLabel)

	for {
		choice, err := f.Prompter.Select("What do you want to do?", labels)
		if err != nil {
			return err
		}
		if choice == exitLabel || choice == "" {
			return nil
		}
		for _, a := range actions {
			if a.label != choice {
				continue
			}
			if err := a.run(ctx); err != nil {
				fmt.Fprintln(os.Stderr, style.ErrorIcon()+" "+err.Error())
			}
		}
	}
}

func buildActions(f *cmdutils.Factory) []action {
	docker := dockercli.New(f.Runner)
	services := install.NewServiceManager(f.Runner)

	run := func(c *cobra.Command, args ...string) func(context.Context) error {
		return func(ctx context.Context) error {
			c.SetArgs(args)
			return c.ExecuteContext(ctx)
		}
	}
	show := func(out string, err error) error {
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, out)
		return nil
	}

	return []action{
		{"Install Docker engine", run(installcmd.GetRootCmd(f), "engine")},
		{"Install docker-compose", run(installcmd.GetRootCmd(f), "compose")},
		{"Install docker-buildx", run(installcmd.GetRootCmd(f), "buildx")},
		{"Uninstall Docker engine", run(uninstallcmd.GetRootCmd(f), "engine")},
		{"Uninstall docker-compose", run(uninstallcmd.GetRootCmd(f), "compose")},
		{"Uninstall docker-buildx", run(uninstallcmd.GetRootCmd(f), "buildx")},
		{"Reinstall Docker engine", run(installcmd.GetRootCmd(f), "engine")},
		{"Show install status", run(statuscmd.GetRootCmd(f))},
		{"Configure registry mirrors", run(mirrorcmd.GetRootCmd(f))},
		{"Start / restart Docker service", func(ctx context.Context) error {
			return services.Restart(ctx, "docker")
		}},
		{"Stop Docker service", func(ctx context.Context) error {
			return services.Stop(ctx, "docker")
		}},
		{"List containers", func(ctx context.Context) error {
			return show(docker.Containers(ctx))
		}},
		{"Clean up stopped containers and dangling images", func(ctx context.Context) error {
			confirmed, err := f.Prompter.Confirm("Remove all stopped containers and dangling images?", true)
			if err != nil || !confirmed {
				return err
			}
			if err := show(docker.RemoveStopped(ctx)); err != nil {
				return err
			}
			return show(docker.RemoveDangling(ctx))
		}},
		{"List images", func(ctx context.Context) error {
			return show(docker.Images(ctx))
		}},
		{"System prune", func(ctx context.Context) error {
			confirmed, err := f.Prompter.Confirm("Reclaim all unused Docker data?", true)
			if err != nil || !confirmed {
				return err
			}
			return show(docker.SystemPrune(ctx))
		}},
		{"Show engine service logs", func(ctx context.Context) error {
			return show(docker.ServiceLogs(ctx, "100"))
		}},
		{"Update dockman itself", run(selfupdatecmd.GetRootCmd(f))},
	}
}
