package install

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/stu2116Edward/dockman/internal/download"
	"github.com/stu2116Edward/dockman/internal/mirror"
	"github.com/stu2116Edward/dockman/internal/platform"
	"github.com/stu2116Edward/dockman/internal/tui"
	"github.com/stu2116Edward/dockman/internal/verify"
	"github.com/stu2116Edward/dockman/util/common/errors"
	"github.com/stu2116Edward/dockman/util/common/fileutil"
	"github.com/stu2116Edward/dockman/util/common/progress"
)

// State is where a target sits in its install lifecycle.
type State int

const (
	StateNotInstalled State = iota
	StateInstalling
	StateInstalled
	StateRemoving
)

func (s State) String() string {
	switch s {
	case StateInstalling:
		return "installing"
	case StateInstalled:
		return "installed"
	case StateRemoving:
		return "removing"
	default:
		return "not-installed"
	}
}

// Manager drives one target through install and uninstall. Every public
// entry point re-detects host state first, so repeated invocations converge
// instead of stacking a second install on top of the first.
type Manager struct {
	target     Target
	rawArch    string
	selector   *mirror.Selector
	downloader *download.Downloader
	prompter   tui.Prompter
	runner     Runner
	services   *ServiceManager
	reconciler *Reconciler
	reporter   progress.Reporter

	state State
}

// NewManager wires a Manager for one target. rawArch is the machine token
// as the kernel reports it (uname -m).
func NewManager(t Target, rawArch string, sel *mirror.Selector, dl *download.Downloader, p tui.Prompter, r Runner, rep progress.Reporter) *Manager {
	return &Manager{
		target:     t,
		rawArch:    rawArch,
		selector:   sel,
		downloader: dl,
		prompter:   p,
		runner:     r,
		services:   NewServiceManager(r),
		reconciler: NewReconciler(r),
		reporter:   rep,
		state:      StateNotInstalled,
	}
}

// State returns the manager's last observed lifecycle state.
func (m *Manager) State() State { return m.state }

func (m *Manager) transition(logger zerolog.Logger, next State) {
	logger.Debug().Stringer("from", m.state).Stringer("to", next).Msg("state transition")
	m.state = next
}

// InstalledVersion reports the placed binary's version string, or false
// when the target is absent or the binary refuses to answer.
func (m *Manager) InstalledVersion(ctx context.Context) (string, bool) {
	rec := Detect(m.target, m.runner)
	path := m.target.InstalledPath(rec.Method())
	if path == "" {
		return "", false
	}
	out, err := m.runner.Run(ctx, path, m.target.VersionArgs...)
	if err != nil || out == "" {
		return "", false
	}
	return out, true
}

// Install puts the target's requested version on the host. An empty version
// means the newest one any mirror advertises. A pre-existing install is
// reported and only replaced after explicit confirmation.
func (m *Manager) Install(ctx context.Context, version string) error {
	logger := log.With().
		Str("op", uuid.NewString()).
		Str("target", m.target.Name).
		Logger()

	rec := Detect(m.target, m.runner)
	if rec.Installed() {
		m.state = StateInstalled
		current, ok := m.InstalledVersion(ctx)
		if !ok {
			current = "unknown version"
		}
		m.reporter.Step(fmt.Sprintf("%s is already installed (%s)", m.target.Name, current))
		replace, err := m.prompter.Confirm(fmt.Sprintf("Reinstall %s?", m.target.Name), true)
		if err != nil {
			return err
		}
		if !replace {
			m.reporter.Success("keeping the existing install")
			return nil
		}
		if err := m.remove(ctx, logger, rec); err != nil {
			return err
		}
	}

	arch, err := platform.ResolveWith(m.target.ArchRemap, m.target.Name, m.rawArch)
	if err != nil {
		return err
	}

	m.transition(logger, StateInstalling)
	m.reporter.Start(fmt.Sprintf("Installing %s", m.target.Name))

	var res mirror.Result
	var filename string
	if version == "" {
		// The mirror that answered the listing already won the failover,
		// so its file URL is used as-is rather than probed again.
		latest, err := m.selector.PickLatest(ctx, m.target.Name, m.target.Endpoints, arch, m.target.Extract)
		if err != nil {
			m.reporter.Error("no mirror could resolve the latest version")
			return err
		}
		version = latest.Version
		logger.Info().Str("version", version).Str("mirror", latest.Mirror).Msg("resolved latest version")
		filename = m.target.CacheName(version, arch)
		if path, ok := m.selector.Cached(filename); ok {
			res = mirror.Result{Version: version, LocalPath: path}
		} else {
			res = latest
		}
	} else {
		filename = m.target.CacheName(version, arch)
		res, err = m.selector.PickPinned(ctx, m.target.Name, m.target.Endpoints, arch, version, filename)
		if err != nil {
			m.reporter.Error(fmt.Sprintf("no mirror serves %s %s", m.target.Name, version))
			return err
		}
	}

	artifactPath, digestPath, fromCache, err := m.acquire(ctx, logger, res, filename)
	if err != nil {
		return err
	}

	ok, err := m.checkIntegrity(logger, res, artifactPath, digestPath, m.target.AssetName(version, arch))
	if err != nil {
		return err
	}
	if !ok {
		m.reporter.Error("installation cancelled")
		m.transition(logger, StateNotInstalled)
		return nil
	}

	if err := m.place(ctx, logger, artifactPath); err != nil {
		return err
	}

	out, err := m.runner.Run(ctx, m.placedPath(), m.target.VersionArgs...)
	if err != nil {
		return errors.NewServiceError(m.target.Name, "post-install check", err)
	}
	m.reporter.Step(out)

	if !fromCache {
		m.offerCleanup(artifactPath, digestPath)
	}

	m.transition(logger, StateInstalled)
	m.reporter.Success(fmt.Sprintf("%s %s installed", m.target.Name, version))
	m.reporter.End()
	return nil
}

// Uninstall removes the target however it got onto the host. Removing an
// absent target is a no-op, not an error.
func (m *Manager) Uninstall(ctx context.Context) error {
	logger := log.With().
		Str("op", uuid.NewString()).
		Str("target", m.target.Name).
		Logger()

	rec := Detect(m.target, m.runner)
	if !rec.Installed() {
		m.state = StateNotInstalled
		m.reporter.Success(fmt.Sprintf("%s is not installed", m.target.Name))
		return nil
	}

	confirmed, err := m.prompter.Confirm(fmt.Sprintf("Remove %s?", m.target.Name), true)
	if err != nil {
		return err
	}
	if !confirmed {
		m.reporter.Success("keeping the existing install")
		return nil
	}

	if err := m.remove(ctx, logger, rec); err != nil {
		return err
	}
	m.reporter.Success(fmt.Sprintf("%s removed", m.target.Name))
	return nil
}

// remove drives the reconciler and refuses to report success while any
// evidence of the install survives.
func (m *Manager) remove(ctx context.Context, logger zerolog.Logger, rec Record) error {
	m.transition(logger, StateRemoving)
	if err := m.reconciler.Remove(ctx, m.target, rec); err != nil {
		return err
	}
	after := Detect(m.target, m.runner)
	if residual := after.Residual(m.target); len(residual) > 0 {
		return errors.NewUninstallError(m.target.Name, residual)
	}
	m.transition(logger, StateNotInstalled)
	return nil
}

// acquire produces a local artifact path, either from the mirror cache or
// by downloading, plus the digest sidecar when one could be fetched.
func (m *Manager) acquire(ctx context.Context, logger zerolog.Logger, res mirror.Result, filename string) (artifact, digest string, fromCache bool, err error) {
	if res.LocalPath != "" {
		logger.Info().Str("path", res.LocalPath).Msg("using cached artifact")
		m.reporter.Step(fmt.Sprintf("using cached %s", filepath.Base(res.LocalPath)))
		digest = res.LocalPath + ".sha256"
		if !fileutil.IsFile(digest) {
			digest = ""
		}
		return res.LocalPath, digest, true, nil
	}

	m.reporter.Step(fmt.Sprintf("downloading from %s", res.Mirror))
	artifact, err = m.downloader.Fetch(ctx, res.URL, filename)
	if err != nil {
		m.reporter.Error("download failed")
		return "", "", false, err
	}
	if res.SumURL != "" {
		digest, err = m.downloader.FetchDigest(ctx, res.SumURL, filename)
		if err != nil {
			logger.Warn().Err(err).Msg("digest fetch failed, artifact stays unverified")
			digest = ""
		}
	}
	return artifact, digest, false, nil
}

// checkIntegrity verifies the artifact and asks the operator what to do
// with anything short of a clean match. assetName is the file's published
// name, which digest listings reference even when the cache stores the
// artifact under a version-qualified name. The second return is nil only
// when a corrupt artifact is declined, in which case both files are
// deleted so a retry cannot resurrect them from the cache.
func (m *Manager) checkIntegrity(logger zerolog.Logger, res mirror.Result, artifactPath, digestPath, assetName string) (bool, error) {
	outcome, sum, err := verify.Artifact(artifactPath, digestPath, assetName)
	if err != nil {
		return false, err
	}
	logger.Info().Stringer("outcome", outcome).Str("sha256", sum).Msg("integrity check")

	switch outcome {
	case verify.Verified:
		m.reporter.Step("checksum verified")
		return true, nil
	case verify.Corrupt:
		m.reporter.Error("checksum mismatch, the download does not match its published digest")
		proceed, err := m.prompter.Confirm("Install the corrupt artifact anyway?", false)
		if err != nil {
			return false, err
		}
		if !proceed {
			os.Remove(artifactPath)
			if digestPath != "" {
				os.Remove(digestPath)
			}
			url := res.URL
			if url == "" {
				url = artifactPath
			}
			return false, errors.NewDownloadError(url, fmt.Errorf("checksum mismatch"))
		}
		logger.Warn().Msg("operator accepted a corrupt artifact")
		return true, nil
	default:
		m.reporter.Step("no published digest available, artifact is unverified")
		proceed, err := m.prompter.Confirm("Continue without verification?", true)
		if err != nil {
			return false, err
		}
		return proceed, nil
	}
}

// place installs the acquired artifact according to the target kind.
func (m *Manager) place(ctx context.Context, logger zerolog.Logger, artifactPath string) error {
	switch m.target.Kind {
	case KindTarball:
		members, err := extractTarball(artifactPath, m.target.BinDir)
		if err != nil {
			return err
		}
		logger.Info().Strs("members", members).Str("dir", m.target.BinDir).Msg("unpacked archive")
		if m.target.UnitPath != "" {
			if err := m.services.MaterializeUnit(ctx, m.target.UnitPath); err != nil {
				return err
			}
			if err := m.services.Activate(ctx, m.target.ServiceName); err != nil {
				return err
			}
			m.reporter.Step(fmt.Sprintf("%s service is enabled and running", m.target.ServiceName))
		}
	case KindBinary:
		if err := fileutil.CopyFile(artifactPath, m.target.ManualBinary, 0o755); err != nil {
			return err
		}
	case KindPlugin:
		if err := os.MkdirAll(filepath.Dir(m.target.PluginBinary), 0o755); err != nil {
			return errors.NewFileError(filepath.Dir(m.target.PluginBinary), "mkdir", err)
		}
		if err := fileutil.CopyFile(artifactPath, m.target.PluginBinary, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// placedPath is where this manager's own install puts the executable.
func (m *Manager) placedPath() string {
	switch m.target.Kind {
	case KindTarball:
		return m.target.PackagedBinary
	case KindPlugin:
		return m.target.PluginBinary
	default:
		return m.target.ManualBinary
	}
}

// offerCleanup asks whether to keep the downloaded files for later reuse.
func (m *Manager) offerCleanup(artifactPath, digestPath string) {
	drop, err := m.prompter.Confirm("Delete the downloaded artifact?", true)
	if err != nil || !drop {
		return
	}
	os.Remove(artifactPath)
	if digestPath != "" {
		os.Remove(digestPath)
	}
}
