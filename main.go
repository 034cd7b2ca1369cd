package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/stu2116Edward/dockman/cmd/cmdutils"
	installcmd "github.com/stu2116Edward/dockman/cmd/install"
	menucmd "github.com/stu2116Edward/dockman/cmd/menu"
	mirrorcmd "github.com/stu2116Edward/dockman/cmd/mirrorcfg"
	selfupdatecmd "github.com/stu2116Edward/dockman/cmd/selfupdate"
	statuscmd "github.com/stu2116Edward/dockman/cmd/status"
	uninstallcmd "github.com/stu2116Edward/dockman/cmd/uninstall"
	"github.com/stu2116Edward/dockman/internal/config"
	"github.com/stu2116Edward/dockman/internal/style"
	"github.com/stu2116Edward/dockman/internal/terminal"
)

// version is set via ldflags during build
var version = "dev"

func main() {
	var (
		debug      bool
		jsonLogs   bool
		noColor    bool
		configPath string
	)

	var factory *cmdutils.Factory

	rootCmd := &cobra.Command{
		Use:           "dockman",
		Short:         "Install and manage Docker on Linux hosts",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `dockman installs, upgrades and removes the Docker engine and its
companion tools (docker-compose, docker-buildx) on Linux hosts, picking the
first reachable download mirror and verifying every artifact.

Run without arguments in a terminal for the interactive menu, or use
subcommands for scripted workflows.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			termInfo := terminal.Detect(noColor)
			style.Init(termInfo.ColorEnabled)

			switch {
			case jsonLogs:
				log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
			case debug:
				log.Logger = log.Output(zerolog.ConsoleWriter{
					Out:        os.Stderr,
					TimeFormat: time.RFC3339,
					NoColor:    !termInfo.ColorEnabled,
				})
			default:
				log.Logger = zerolog.Nop()
			}
			if debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			factory.Config = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			termInfo := terminal.Detect(noColor)
			if !termInfo.IsTerminal {
				return cmd.Help()
			}
			if err := cmdutils.RequireRoot(); err != nil {
				fmt.Fprintln(os.Stderr, style.ErrorIcon()+" "+err.Error())
				os.Exit(1)
			}
			return menucmd.Run(cmd.Context(), factory)
		},
	}

	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json", false, "Log as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colour output (also respects NO_COLOR env)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Configuration file path")

	termPre := terminal.Detect(false)
	style.Init(termPre.ColorEnabled)
	factory = cmdutils.NewFactory(config.Default(), termPre)

	rootCmd.AddCommand(menucmd.GetRootCmd(factory))
	rootCmd.AddCommand(installcmd.GetRootCmd(factory))
	rootCmd.AddCommand(uninstallcmd.GetRootCmd(factory))
	rootCmd.AddCommand(statuscmd.GetRootCmd(factory))
	rootCmd.AddCommand(mirrorcmd.GetRootCmd(factory))
	rootCmd.AddCommand(selfupdatecmd.GetRootCmd(factory))

	if err := rootCmd.Execute(); err != nil {
		termInfo := terminal.Detect(noColor)
		if termInfo.IsTerminal && termInfo.ColorEnabled {
			fmt.Fprintln(os.Stderr, style.ErrorIcon()+" "+err.Error())
		} else {
			fmt.Fprintln(os.Stderr, "Error: "+err.Error())
		}
		os.Exit(1)
	}
}
