// Package config loads the dockman configuration file. Everything has a
// compiled-in default so the tool works with no file present.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the configuration file lives unless --config says
// otherwise.
const DefaultPath = "/etc/dockman/config.yaml"

// Duration wraps time.Duration so YAML can carry values like "10s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// MirrorConfig is one prioritized download source. URL fields are templates
// expanded with {arch} and {version}.
type MirrorConfig struct {
	Name string `yaml:"name"`
	List string `yaml:"list"`
	File string `yaml:"file"`
	Sum  string `yaml:"sum,omitempty"`
}

// TargetConfig holds the per-target mirror list, highest priority first.
type TargetConfig struct {
	Mirrors []MirrorConfig `yaml:"mirrors"`
}

// Config represents the top-level configuration structure
type Config struct {
	// CacheDir is where downloaded artifacts and digest files are kept.
	CacheDir string `yaml:"cacheDir"`
	// ProbeTimeout bounds each mirror probe attempt.
	ProbeTimeout Duration `yaml:"probeTimeout"`
	// DownloadTimeout bounds a whole artifact download attempt.
	DownloadTimeout Duration `yaml:"downloadTimeout"`

	Engine  TargetConfig `yaml:"engine"`
	Compose TargetConfig `yaml:"compose"`
	Buildx  TargetConfig `yaml:"buildx"`

	// RegistryMirrors is written to the engine's daemon.json by the
	// mirror-configuration action.
	RegistryMirrors []string `yaml:"registryMirrors"`
	// DaemonJSON is the engine configuration file path.
	DaemonJSON string `yaml:"daemonJson"`
}

// Default returns the compiled-in configuration.
func Default() *Config {
	return &Config{
		CacheDir:        "/var/cache/dockman",
		ProbeTimeout:    Duration(10 * time.Second),
		DownloadTimeout: Duration(15 * time.Minute),
		DaemonJSON:      "/etc/docker/daemon.json",
		Engine: TargetConfig{
			Mirrors: []MirrorConfig{
				{
					Name: "docker.com",
					List: "https://download.docker.com/linux/static/stable/{arch}/",
					File: "https://download.docker.com/linux/static/stable/{arch}/docker-{version}.tgz",
				},
				{
					Name: "aliyun",
					List: "https://mirrors.aliyun.com/docker-ce/linux/static/stable/{arch}/",
					File: "https://mirrors.aliyun.com/docker-ce/linux/static/stable/{arch}/docker-{version}.tgz",
				},
				{
					Name: "ustc",
					List: "https://mirrors.ustc.edu.cn/docker-ce/linux/static/stable/{arch}/",
					File: "https://mirrors.ustc.edu.cn/docker-ce/linux/static/stable/{arch}/docker-{version}.tgz",
				},
			},
		},
		Compose: TargetConfig{
			Mirrors: []MirrorConfig{
				{
					Name: "github",
					List: "https://api.github.com/repos/docker/compose/releases?per_page=100",
					File: "https://github.com/docker/compose/releases/download/v{version}/docker-compose-linux-{arch}",
					Sum:  "https://github.com/docker/compose/releases/download/v{version}/docker-compose-linux-{arch}.sha256",
				},
				{
					Name: "ghproxy",
					List: "https://ghproxy.net/https://api.github.com/repos/docker/compose/releases?per_page=100",
					File: "https://ghproxy.net/https://github.com/docker/compose/releases/download/v{version}/docker-compose-linux-{arch}",
					Sum:  "https://ghproxy.net/https://github.com/docker/compose/releases/download/v{version}/docker-compose-linux-{arch}.sha256",
				},
			},
		},
		Buildx: TargetConfig{
			Mirrors: []MirrorConfig{
				{
					Name: "github",
					List: "https://api.github.com/repos/docker/buildx/releases?per_page=100",
					File: "https://github.com/docker/buildx/releases/download/v{version}/buildx-v{version}.linux-{arch}",
					Sum:  "https://github.com/docker/buildx/releases/download/v{version}/checksums.txt",
				},
				{
					Name: "ghproxy",
					List: "https://ghproxy.net/https://api.github.com/repos/docker/buildx/releases?per_page=100",
					File: "https://ghproxy.net/https://github.com/docker/buildx/releases/download/v{version}/buildx-v{version}.linux-{arch}",
					Sum:  "https://ghproxy.net/https://github.com/docker/buildx/releases/download/v{version}/checksums.txt",
				},
			},
		},
		RegistryMirrors: []string{
			"https://docker.m.daocloud.io",
			"https://dockerproxy.com",
			"https://mirror.baidubce.com",
		},
	}
}

// Load reads the configuration at path, layered over the defaults. A
// missing file at the default path is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && path == DefaultPath {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = Duration(10 * time.Second)
	}
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = Duration(15 * time.Minute)
	}
	return cfg, nil
}
