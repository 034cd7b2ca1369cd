package cmdutils

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/stu2116Edward/dockman/internal/config"
	"github.com/stu2116Edward/dockman/internal/download"
	"github.com/stu2116Edward/dockman/internal/install"
	"github.com/stu2116Edward/dockman/internal/mirror"
	"github.com/stu2116Edward/dockman/internal/terminal"
	"github.com/stu2116Edward/dockman/internal/tui"
	"github.com/stu2116Edward/dockman/util/common/progress"
)

// goArchNames maps the compiler's architecture names onto kernel machine
// tokens, used only when uname itself cannot be run.
var goArchNames = map[string]string{
	"amd64":   "x86_64",
	"arm64":   "aarch64",
	"arm":     "armv7l",
	"s390x":   "s390x",
	"ppc64le": "ppc64le",
}

// Factory builds the shared dependencies command packages need: one place
// decides how prompts, host commands and progress reporting are wired.
type Factory struct {
	Config   *config.Config
	Term     terminal.Info
	Prompter tui.Prompter
	Runner   install.Runner
	Reporter progress.Reporter
}

// NewFactory wires a Factory from loaded configuration and the detected
// terminal.
func NewFactory(cfg *config.Config, term terminal.Info) *Factory {
	return &Factory{
		Config:   cfg,
		Term:     term,
		Prompter: tui.New(term, os.Stdin, os.Stdout),
		Runner:   install.ExecRunner{},
		Reporter: progress.NewAutoReporter(),
	}
}

// RawArch returns the kernel machine token, asking uname first and falling
// back to the compiler's view of the platform.
func (f *Factory) RawArch(ctx context.Context) string {
	if out, err := f.Runner.Run(ctx, "uname", "-m"); err == nil && out != "" {
		return out
	}
	if name, ok := goArchNames[runtime.GOARCH]; ok {
		return name
	}
	return runtime.GOARCH
}

// Selector builds a mirror selector over the configured cache directory.
func (f *Factory) Selector() *mirror.Selector {
	return mirror.NewSelector(f.Config.CacheDir, f.Config.ProbeTimeout.Std())
}

// Manager builds an install manager for one target.
func (f *Factory) Manager(ctx context.Context, t install.Target) *install.Manager {
	dl := download.New(f.Config.CacheDir, f.Config.DownloadTimeout.Std(), f.Term.IsTerminal)
	return install.NewManager(t, f.RawArch(ctx), f.Selector(), dl, f.Prompter, f.Runner, f.Reporter)
}

// TargetByName resolves a target by its user-facing name. Short forms
// without the "docker-" prefix are accepted. The second return is false for
// unknown names.
func (f *Factory) TargetByName(name string) (install.Target, bool) {
	for _, t := range install.Targets(f.Config) {
		if t.Name == name || t.Command == name || strings.TrimPrefix(t.Name, "docker-") == name {
			return t, true
		}
	}
	return install.Target{}, false
}

// RequireRoot rejects invocations without root privileges. Everything that
// mutates the host goes through this.
func RequireRoot() error {
	if os.Geteuid() != 0 {
		return fmt.Errorf("this operation needs root privileges, rerun with sudo")
	}
	return nil
}
