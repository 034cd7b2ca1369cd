package install

import (
	"fmt"

	"github.com/stu2116Edward/dockman/util/common/fileutil"
)

// Method is how a detected install got onto the host.
type Method int

const (
	// MethodNone means no install evidence was found.
	MethodNone Method = iota
	// MethodPackaged is a package-manager install in the system binary dir.
	MethodPackaged
	// MethodManual is a hand-placed binary in the local binary dir.
	MethodManual
	// MethodPlugin is a per-user CLI plugin placement.
	MethodPlugin
)

func (m Method) String() string {
	switch m {
	case MethodPackaged:
		return "package manager"
	case MethodManual:
		return "manual binary"
	case MethodPlugin:
		return "CLI plugin"
	default:
		return "none"
	}
}

// Record is the install evidence for one target, derived fresh from
// filesystem probes at every decision point. Nothing here is cached:
// the operator may remove binaries mid-session and a stale record would
// drive the wrong transition.
type Record struct {
	PackagedBinary bool
	ManualBinary   bool
	PluginBinary   bool
	UnitFile       bool
	CommandOnPath  bool
}

// Installed reports whether ANY evidence resolves. This deliberately
// over-triggers on stale or partial installs; the reconciler disambiguates
// by path before any removal.
func (r Record) Installed() bool {
	return r.PackagedBinary || r.ManualBinary || r.PluginBinary || r.UnitFile || r.CommandOnPath
}

// Evidence lists the probes that resolved, for messages and errors.
func (r Record) Evidence(t Target) []string {
	var out []string
	if r.PackagedBinary {
		out = append(out, t.PackagedBinary)
	}
	if r.ManualBinary {
		out = append(out, t.ManualBinary)
	}
	if r.PluginBinary {
		out = append(out, t.PluginBinary)
	}
	if r.UnitFile {
		out = append(out, t.UnitPath)
	}
	if r.CommandOnPath {
		out = append(out, fmt.Sprintf("%s on PATH", t.Command))
	}
	return out
}

// Residual lists evidence that must be gone after a complete uninstall.
// PATH resolution is excluded: it may legitimately point at the binary
// this very process is about to place, or at a shell hash gone stale.
func (r Record) Residual(t Target) []string {
	var out []string
	if r.PackagedBinary {
		out = append(out, t.PackagedBinary)
	}
	if r.ManualBinary {
		out = append(out, t.ManualBinary)
	}
	if r.PluginBinary {
		out = append(out, t.PluginBinary)
	}
	if r.UnitFile {
		out = append(out, t.UnitPath)
	}
	return out
}

// Method returns the install method the evidence points at, in detection
// precedence order: packaged before manual before plugin. When both a
// packaged and a manual install are present the packaged one wins; the
// reconciler removes the manual leftover in a second pass.
func (r Record) Method() Method {
	switch {
	case r.PackagedBinary:
		return MethodPackaged
	case r.ManualBinary:
		return MethodManual
	case r.PluginBinary:
		return MethodPlugin
	default:
		return MethodNone
	}
}

// Detect probes the filesystem and PATH for target's install evidence.
func Detect(t Target, r Runner) Record {
	rec := Record{
		CommandOnPath: r.LookPath(t.Command),
	}
	if t.PackagedBinary != "" {
		rec.PackagedBinary = fileutil.IsFile(t.PackagedBinary)
	}
	if t.ManualBinary != "" {
		rec.ManualBinary = fileutil.IsFile(t.ManualBinary)
	}
	if t.PluginBinary != "" {
		rec.PluginBinary = fileutil.IsFile(t.PluginBinary)
	}
	if t.UnitPath != "" {
		rec.UnitFile = fileutil.IsFile(t.UnitPath)
	}
	return rec
}
