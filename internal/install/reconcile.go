package install

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/stu2116Edward/dockman/util/common/errors"
	"github.com/stu2116Edward/dockman/util/common/fileutil"
)

// engineTarballMembers are the binaries a static engine tarball places in
// the system binary directory.
var engineTarballMembers = []string{
	"docker", "dockerd", "docker-init", "docker-proxy",
	"containerd", "containerd-shim-runc-v2", "ctr", "runc",
}

// Reconciler infers how a detected install got onto the host and drives
// the matching removal path. Removing a packaged install by deleting files
// or a manual install through the package manager both look like success
// while changing nothing; the reconciler refuses to guess.
type Reconciler struct {
	runner   Runner
	services *ServiceManager
}

// NewReconciler creates a Reconciler.
func NewReconciler(r Runner) *Reconciler {
	return &Reconciler{runner: r, services: NewServiceManager(r)}
}

// ownedByPackageManager reports whether any of the target's packages is
// registered in the host package database.
func (rc *Reconciler) ownedByPackageManager(ctx context.Context, f PkgFamily, packages []string) bool {
	for _, pkg := range packages {
		var err error
		switch f {
		case PkgApt:
			_, err = rc.runner.Run(ctx, "dpkg-query", "-W", pkg)
		case PkgDnf, PkgYum, PkgZypper:
			_, err = rc.runner.Run(ctx, "rpm", "-q", pkg)
		default:
			continue
		}
		if err == nil {
			return true
		}
	}
	return false
}

// Remove drives the removal path matching rec's evidence. Precedence:
// the packaged location is resolved before the manual one; remaining
// manual/plugin leftovers are swept in a second pass so a reinstall never
// finds half of two installs.
func (rc *Reconciler) Remove(ctx context.Context, t Target, rec Record) error {
	method := rec.Method()
	if method == MethodNone {
		return nil
	}

	logger := log.With().Str("target", t.Name).Str("method", method.String()).Logger()

	// The engine's service must be down before its binaries go away.
	if t.ServiceName != "" && (rec.UnitFile || rec.CommandOnPath || rec.PackagedBinary) {
		if err := rc.services.Stop(ctx, t.ServiceName); err != nil {
			logger.Warn().Err(err).Msg("service stop failed, continuing with removal")
		}
	}

	switch method {
	case MethodPackaged:
		if err := rc.removePackaged(ctx, t, rec); err != nil {
			return err
		}
	case MethodManual:
		if err := os.Remove(t.ManualBinary); err != nil && !os.IsNotExist(err) {
			return errors.NewFileError(t.ManualBinary, "remove", err)
		}
	case MethodPlugin:
		if err := os.Remove(t.PluginBinary); err != nil && !os.IsNotExist(err) {
			return errors.NewFileError(t.PluginBinary, "remove", err)
		}
	}

	// Sweep leftovers from other install methods. Packaged evidence is
	// never swept here: only its own removal path may touch it.
	if method != MethodManual && rec.ManualBinary && t.ManualBinary != "" {
		if err := os.Remove(t.ManualBinary); err != nil && !os.IsNotExist(err) {
			return errors.NewFileError(t.ManualBinary, "remove", err)
		}
	}
	if method != MethodPlugin && rec.PluginBinary && t.PluginBinary != "" {
		if err := os.Remove(t.PluginBinary); err != nil && !os.IsNotExist(err) {
			return errors.NewFileError(t.PluginBinary, "remove", err)
		}
	}
	if rec.UnitFile && t.UnitPath != "" {
		if err := os.Remove(t.UnitPath); err != nil && !os.IsNotExist(err) {
			return errors.NewFileError(t.UnitPath, "remove", err)
		}
		if err := rc.services.DaemonReload(ctx); err != nil {
			logger.Warn().Err(err).Msg("daemon-reload after unit removal failed")
		}
	}

	logger.Info().Msg("removal pass complete")
	return nil
}

// removePackaged handles evidence in the system binary directory: a real
// package-manager install, or a static tarball unpacked into the same dir.
func (rc *Reconciler) removePackaged(ctx context.Context, t Target, rec Record) error {
	family := DetectPkgFamily(rc.runner)
	if family != PkgNone && rc.ownedByPackageManager(ctx, family, t.Packages) {
		if err := RemovePackages(ctx, rc.runner, family, t.Packages); err != nil {
			return err
		}
		// A removal that "succeeds" but leaves the binary behind was a
		// no-op against files the package manager never owned.
		if fileutil.IsFile(t.PackagedBinary) {
			return errors.NewMethodError(t.Name, rec.Evidence(t))
		}
		return nil
	}

	// Not in the package database. A tarball install into the system dir
	// is removable by known member names; anything else is unidentifiable.
	if t.Kind == KindTarball && t.BinDir != "" {
		members := append([]string{filepath.Base(t.PackagedBinary)}, engineTarballMembers...)
		for _, name := range members {
			path := filepath.Join(t.BinDir, name)
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return errors.NewFileError(path, "remove", err)
			}
		}
		return nil
	}
	return errors.NewMethodError(t.Name, rec.Evidence(t))
}
