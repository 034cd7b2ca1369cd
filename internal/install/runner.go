package install

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes host commands. The state machine takes this as a
// capability so tests can script package-manager and service-manager
// behaviour without touching the host.
type Runner interface {
	// Run executes name with args and returns combined output. A non-zero
	// exit status is an error carrying the captured output.
	Run(ctx context.Context, name string, args ...string) (string, error)

	// LookPath reports whether name resolves to an executable on PATH.
	LookPath(name string) bool
}

// ExecRunner runs commands on the real host.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	out := strings.TrimSpace(buf.String())
	if err != nil {
		return out, fmt.Errorf("%s %s: %w (%s)", name, strings.Join(args, " "), err, out)
	}
	return out, nil
}

func (ExecRunner) LookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// FakeRunner is a scripted Runner for tests. Outputs maps a space-joined
// command line to its output; missing entries succeed with empty output
// unless the command line appears in Failures.
type FakeRunner struct {
	Outputs  map[string]string
	Failures map[string]error
	OnPath   map[string]bool

	// Calls records every command line, in order.
	Calls []string
}

func (f *FakeRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	line := strings.TrimSpace(name + " " + strings.Join(args, " "))
	f.Calls = append(f.Calls, line)
	if err, ok := f.Failures[line]; ok {
		return "", err
	}
	return f.Outputs[line], nil
}

func (f *FakeRunner) LookPath(name string) bool {
	return f.OnPath[name]
}
