// Package dockercli is a thin wrapper over the installed docker CLI. It
// never interprets output beyond version extraction; the menu shows captured
// output as-is.
package dockercli

import (
	"context"
	"regexp"

	"github.com/stu2116Edward/dockman/internal/install"
)

var versionPattern = regexp.MustCompile(`(\d+\.\d+\.\d+)`)

// Client shells out to the docker CLI through a Runner.
type Client struct {
	runner install.Runner
}

// New creates a Client.
func New(r install.Runner) *Client {
	return &Client{runner: r}
}

// Present reports whether the docker CLI resolves on PATH.
func (c *Client) Present() bool {
	return c.runner.LookPath("docker")
}

// Version returns the CLI's bare version number, or false when docker is
// absent or its output has no recognizable version.
func (c *Client) Version(ctx context.Context) (string, bool) {
	if !c.Present() {
		return "", false
	}
	out, err := c.runner.Run(ctx, "docker", "--version")
	if err != nil {
		return "", false
	}
	m := versionPattern.FindStringSubmatch(out)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ComposeVersion returns the docker-compose version number, trying the
// standalone binary first and the plugin form second.
func (c *Client) ComposeVersion(ctx context.Context) (string, bool) {
	if c.runner.LookPath("docker-compose") {
		if out, err := c.runner.Run(ctx, "docker-compose", "--version"); err == nil {
			if m := versionPattern.FindStringSubmatch(out); m != nil {
				return m[1], true
			}
		}
	}
	if out, err := c.runner.Run(ctx, "docker", "compose", "version"); err == nil {
		if m := versionPattern.FindStringSubmatch(out); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// BuildxVersion returns the buildx plugin version number.
func (c *Client) BuildxVersion(ctx context.Context) (string, bool) {
	out, err := c.runner.Run(ctx, "docker", "buildx", "version")
	if err != nil {
		return "", false
	}
	m := versionPattern.FindStringSubmatch(out)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Containers lists all containers, running or not.
func (c *Client) Containers(ctx context.Context) (string, error) {
	return c.runner.Run(ctx, "docker", "ps", "-a")
}

// Images lists local images.
func (c *Client) Images(ctx context.Context) (string, error) {
	return c.runner.Run(ctx, "docker", "images")
}

// RemoveStopped deletes every stopped container.
func (c *Client) RemoveStopped(ctx context.Context) (string, error) {
	return c.runner.Run(ctx, "docker", "container", "prune", "-f")
}

// RemoveDangling deletes dangling images.
func (c *Client) RemoveDangling(ctx context.Context) (string, error) {
	return c.runner.Run(ctx, "docker", "image", "prune", "-f")
}

// SystemPrune reclaims unused data: stopped containers, unused networks,
// dangling images and build cache.
func (c *Client) SystemPrune(ctx context.Context) (string, error) {
	return c.runner.Run(ctx, "docker", "system", "prune", "-f")
}

// ServiceLogs returns the engine service's recent journal entries.
func (c *Client) ServiceLogs(ctx context.Context, lines string) (string, error) {
	return c.runner.Run(ctx, "journalctl", "-u", "docker", "-n", lines, "--no-pager")
}
