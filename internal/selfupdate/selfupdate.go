// Package selfupdate replaces the running executable with a freshly
// downloaded build. The swap is a sidecar write plus rename; the process
// never re-execs itself, the operator relaunches.
package selfupdate

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"

	"github.com/stu2116Edward/dockman/util/common/errors"
)

// Source is one place the released binary can be fetched from.
type Source struct {
	Name string
	URL  string
}

// DefaultSources are tried in order; the proxy front loses to the origin
// only when the origin answers first.
var DefaultSources = []Source{
	{Name: "github", URL: "https://github.com/stu2116Edward/dockman/releases/latest/download/dockman-linux-amd64"},
	{Name: "ghproxy", URL: "https://ghproxy.com/https://github.com/stu2116Edward/dockman/releases/latest/download/dockman-linux-amd64"},
}

// Updater fetches and swaps in a replacement executable.
type Updater struct {
	client  *retryablehttp.Client
	sources []Source
}

// New creates an Updater over the given sources.
func New(sources []Source, timeout time.Duration) *Updater {
	client := retryablehttp.NewClient()
	client.RetryMax = 1
	client.Logger = nil
	client.HTTPClient.Timeout = timeout
	return &Updater{client: client, sources: sources}
}

// Apply downloads the first source that yields a non-empty file and renames
// it over the current executable. It returns the winning source name; the
// caller is expected to exit so the next launch runs the new build.
func (u *Updater) Apply() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return u.ApplyTo(exe)
}

// ApplyTo swaps the binary at path, trying each source in order.
func (u *Updater) ApplyTo(path string) (string, error) {
	var probes []string
	for _, src := range u.sources {
		if err := u.fetchTo(src.URL, path+".new"); err != nil {
			probes = append(probes, fmt.Sprintf("%s: %v", src.Name, err))
			log.Debug().Str("source", src.Name).Err(err).Msg("self-update source failed")
			continue
		}
		if err := os.Rename(path+".new", path); err != nil {
			os.Remove(path + ".new")
			return "", errors.NewFileError(path, "replace", err)
		}
		return src.Name, nil
	}
	return "", errors.NewMirrorError("dockman", "self-update", probes)
}

// fetchTo downloads url into path. An empty body is rejected so a source
// serving a zero-length placeholder cannot brick the tool.
func (u *Updater) fetchTo(url, path string) error {
	resp, err := u.client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o755)
	if err != nil {
		return err
	}
	n, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return err
	}
	if n == 0 {
		os.Remove(path)
		return fmt.Errorf("source served an empty file")
	}
	return nil
}
