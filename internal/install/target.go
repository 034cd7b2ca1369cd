// Package install holds the installation state machine: detecting what is
// already on the host, acquiring and verifying artifacts, placing them into
// the live system, and driving the matching removal path.
package install

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/stu2116Edward/dockman/internal/config"
	"github.com/stu2116Edward/dockman/internal/mirror"
	"github.com/stu2116Edward/dockman/internal/release"
)

// Kind describes how a target's artifact is placed into the system.
type Kind int

const (
	// KindTarball is an archive unpacked into the system binary directory.
	KindTarball Kind = iota
	// KindBinary is a single executable copied to a fixed path.
	KindBinary
	// KindPlugin is a single executable copied into the CLI plugin dir.
	KindPlugin
)

// Target is one installable tool: the engine or a companion.
type Target struct {
	// Name identifies the target in logs and errors.
	Name string
	// Command is the executable the target provides.
	Command string
	// Kind selects the placement strategy.
	Kind Kind

	// ArchRemap renames canonical architecture tokens for this target's
	// download naming. Missing entries pass through.
	ArchRemap map[string]string
	// Endpoints is the prioritized mirror list.
	Endpoints []mirror.Endpoint
	// Extract parses this target's catalog listing into version strings.
	Extract release.ExtractFunc
	// CachePattern names the locally cached artifact ({version}, {arch}).
	CachePattern string
	// AssetPattern names the published remote file ({version}, {arch}).
	// Digest files reference this name, which can differ from the cache
	// name.
	AssetPattern string

	// PackagedBinary is where a package-manager install puts the binary.
	PackagedBinary string
	// ManualBinary is where a manually placed binary lives.
	ManualBinary string
	// PluginBinary is the CLI plugin path (buildx only).
	PluginBinary string
	// BinDir receives tarball members (engine only).
	BinDir string
	// UnitPath is the systemd unit file (engine only).
	UnitPath string
	// ServiceName is the systemd unit name (engine only).
	ServiceName string
	// Packages are the package names a packaged uninstall removes.
	Packages []string
	// VersionArgs query the installed tool's version.
	VersionArgs []string
}

// CacheName expands CachePattern for a concrete version and architecture.
func (t Target) CacheName(version, arch string) string {
	out := strings.ReplaceAll(t.CachePattern, "{version}", version)
	return strings.ReplaceAll(out, "{arch}", arch)
}

// AssetName expands AssetPattern for a concrete version and architecture.
func (t Target) AssetName(version, arch string) string {
	out := strings.ReplaceAll(t.AssetPattern, "{version}", version)
	return strings.ReplaceAll(out, "{arch}", arch)
}

// InstalledPath returns where this target's executable lands for the given
// install method.
func (t Target) InstalledPath(m Method) string {
	switch m {
	case MethodPackaged:
		return t.PackagedBinary
	case MethodManual:
		return t.ManualBinary
	case MethodPlugin:
		return t.PluginBinary
	default:
		return ""
	}
}

var engineListingPattern = regexp.MustCompile(`docker-(\d+\.\d+\.\d+)\.tgz`)

func endpointsFrom(mirrors []config.MirrorConfig) []mirror.Endpoint {
	out := make([]mirror.Endpoint, 0, len(mirrors))
	for _, m := range mirrors {
		out = append(out, mirror.Endpoint{
			Name:    m.Name,
			ListURL: m.List,
			FileURL: m.File,
			SumURL:  m.Sum,
		})
	}
	return out
}

// EngineTarget builds the Docker engine target from configuration.
func EngineTarget(cfg *config.Config) Target {
	return Target{
		Name:           "docker-engine",
		Command:        "docker",
		Kind:           KindTarball,
		Endpoints:      endpointsFrom(cfg.Engine.Mirrors),
		Extract:        release.ListingExtractor(engineListingPattern),
		CachePattern:   "docker-{version}.tgz",
		AssetPattern:   "docker-{version}.tgz",
		PackagedBinary: "/usr/bin/docker",
		ManualBinary:   "/usr/local/bin/docker",
		BinDir:         "/usr/bin",
		UnitPath:       "/etc/systemd/system/docker.service",
		ServiceName:    "docker",
		Packages:       []string{"docker-ce", "docker-ce-cli", "containerd.io", "docker.io"},
		VersionArgs:    []string{"--version"},
	}
}

// ComposeTarget builds the docker-compose target from configuration.
func ComposeTarget(cfg *config.Config) Target {
	return Target{
		Name:    "docker-compose",
		Command: "docker-compose",
		Kind:    KindBinary,
		ArchRemap: map[string]string{
			"armhf": "armv7",
			"armel": "armv6",
		},
		Endpoints:      endpointsFrom(cfg.Compose.Mirrors),
		Extract:        release.GitHubTagsExtractor,
		CachePattern:   "docker-compose-v{version}-{arch}",
		AssetPattern:   "docker-compose-linux-{arch}",
		PackagedBinary: "/usr/bin/docker-compose",
		ManualBinary:   "/usr/local/bin/docker-compose",
		Packages:       []string{"docker-compose"},
		VersionArgs:    []string{"--version"},
	}
}

// BuildxTarget builds the docker-buildx target from configuration.
func BuildxTarget(cfg *config.Config) Target {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "/root"
	}
	return Target{
		Name:    "docker-buildx",
		Command: "docker-buildx",
		Kind:    KindPlugin,
		ArchRemap: map[string]string{
			"x86_64":  "amd64",
			"aarch64": "arm64",
			"armhf":   "arm-v7",
			"armel":   "arm-v6",
		},
		Endpoints:      endpointsFrom(cfg.Buildx.Mirrors),
		Extract:        release.GitHubTagsExtractor,
		CachePattern:   "buildx-v{version}.linux-{arch}",
		AssetPattern:   "buildx-v{version}.linux-{arch}",
		PackagedBinary: "/usr/libexec/docker/cli-plugins/docker-buildx",
		PluginBinary:   filepath.Join(home, ".docker", "cli-plugins", "docker-buildx"),
		Packages:       []string{"docker-buildx-plugin"},
		VersionArgs:    []string{"version"},
	}
}

// Targets returns all installable targets, engine first.
func Targets(cfg *config.Config) []Target {
	return []Target{EngineTarget(cfg), ComposeTarget(cfg), BuildxTarget(cfg)}
}
