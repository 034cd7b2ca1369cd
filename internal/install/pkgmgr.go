package install

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// PkgFamily is a host package-manager family.
type PkgFamily string

const (
	PkgApt    PkgFamily = "apt"
	PkgDnf    PkgFamily = "dnf"
	PkgYum    PkgFamily = "yum"
	PkgZypper PkgFamily = "zypper"
	PkgNone   PkgFamily = ""
)

// DetectPkgFamily finds the host's package manager by command availability,
// preferring the most specific tool (dnf over yum on modern Fedora/RHEL).
func DetectPkgFamily(r Runner) PkgFamily {
	for _, f := range []PkgFamily{PkgApt, PkgDnf, PkgYum, PkgZypper} {
		if r.LookPath(familyCommand(f)) {
			return f
		}
	}
	return PkgNone
}

func familyCommand(f PkgFamily) string {
	if f == PkgApt {
		return "apt-get"
	}
	return string(f)
}

// removeArgs builds the removal command line for a family. Unknown packages
// are tolerated so one command covers every distro's package set.
func removeArgs(f PkgFamily, packages []string) []string {
	switch f {
	case PkgApt, PkgDnf, PkgYum:
		return append([]string{"remove", "-y"}, packages...)
	case PkgZypper:
		return append([]string{"--non-interactive", "remove"}, packages...)
	default:
		return nil
	}
}

// RemovePackages removes the given packages with the detected family.
func RemovePackages(ctx context.Context, r Runner, f PkgFamily, packages []string) error {
	if f == PkgNone {
		return fmt.Errorf("no supported package manager found")
	}
	args := removeArgs(f, packages)
	out, err := r.Run(ctx, familyCommand(f), args...)
	if err != nil {
		return fmt.Errorf("package removal failed: %w", err)
	}
	log.Debug().Str("family", string(f)).Strs("packages", packages).Str("output", out).Msg("packages removed")
	return nil
}
