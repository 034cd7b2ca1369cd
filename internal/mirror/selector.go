// Package mirror selects a working download source from an ordered list of
// candidate endpoints, with per-attempt timeouts and strict probe-order
// failover.
package mirror

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"

	"github.com/stu2116Edward/dockman/internal/release"
	"github.com/stu2116Edward/dockman/util/common/errors"
)

// Endpoint is one prioritized download source. URL fields are templates
// expanded with {arch} and {version}; list order across a slice of
// Endpoints defines probe priority.
type Endpoint struct {
	// Name identifies the mirror in logs and probe records.
	Name string
	// ListURL is the catalog/listing URL template ({arch}).
	ListURL string
	// FileURL is the artifact URL template ({arch}, {version}).
	FileURL string
	// SumURL is the reference-digest URL template ({arch}, {version}).
	// Empty when the mirror publishes no digests.
	SumURL string
}

func expand(tpl, arch, version string) string {
	out := strings.ReplaceAll(tpl, "{arch}", arch)
	return strings.ReplaceAll(out, "{version}", version)
}

// Result is a usable (mirror, resolved URL) pair. LocalPath is set instead
// of URL when the pinned artifact was already present in the cache.
type Result struct {
	Mirror    string
	Version   string
	URL       string
	SumURL    string
	LocalPath string
}

// Selector probes endpoints one at a time. Probing failures are non-fatal
// per mirror; only exhausting the whole list is terminal.
type Selector struct {
	client   *retryablehttp.Client
	cacheDir string
}

// DefaultProbeTimeout bounds each individual mirror attempt so one dead
// mirror cannot stall the whole resolution.
const DefaultProbeTimeout = 10 * time.Second

// NewSelector creates a Selector that consults cacheDir before the network
// and bounds every probe by timeout.
func NewSelector(cacheDir string, timeout time.Duration) *Selector {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	client := retryablehttp.NewClient()
	client.RetryMax = 0 // failover is the retry strategy
	client.Logger = nil
	client.HTTPClient.Timeout = timeout
	return &Selector{client: client, cacheDir: cacheDir}
}

// CacheDir returns the local artifact cache directory.
func (s *Selector) CacheDir() string { return s.cacheDir }

// Cached reports the cache path for filename when the exact file already
// exists locally.
func (s *Selector) Cached(filename string) (string, bool) {
	if s.cacheDir == "" {
		return "", false
	}
	entries, err := os.ReadDir(s.cacheDir)
	if err != nil {
		return "", false
	}
	matcher := glob.MustCompile(filename)
	for _, e := range entries {
		if !e.IsDir() && matcher.Match(e.Name()) {
			return filepath.Join(s.cacheDir, e.Name()), true
		}
	}
	return "", false
}

// PickPinned resolves a source for an exact version. The local cache is
// consulted first: a hit skips all network probing. Otherwise each mirror
// gets one lightweight existence probe for the expected filename, in list
// order, and the first success wins.
func (s *Selector) PickPinned(ctx context.Context, target string, endpoints []Endpoint, arch, version, filename string) (Result, error) {
	if path, ok := s.Cached(filename); ok {
		log.Debug().Str("target", target).Str("path", path).Msg("artifact already cached, skipping mirror probes")
		return Result{Version: version, LocalPath: path}, nil
	}

	var probes []string
	for _, ep := range endpoints {
		url := expand(ep.FileURL, arch, version)
		if err := s.probe(ctx, url); err != nil {
			probes = append(probes, fmt.Sprintf("%s: %v", ep.Name, err))
			log.Debug().Str("mirror", ep.Name).Str("url", url).Err(err).Msg("mirror probe failed")
			continue
		}
		log.Debug().Str("mirror", ep.Name).Str("url", url).Msg("mirror probe succeeded")
		return Result{
			Mirror:  ep.Name,
			Version: version,
			URL:     url,
			SumURL:  expand(ep.SumURL, arch, version),
		}, nil
	}
	return Result{}, errors.NewMirrorError(target, version, probes)
}

// PickLatest resolves the newest available version. Each mirror's listing
// is fetched in order; the first mirror yielding any version match settles
// the choice (semver maximum) and later mirrors are never probed.
func (s *Selector) PickLatest(ctx context.Context, target string, endpoints []Endpoint, arch string, extract release.ExtractFunc) (Result, error) {
	var probes []string
	for _, ep := range endpoints {
		url := expand(ep.ListURL, arch, "")
		body, err := s.fetch(ctx, url)
		if err != nil {
			probes = append(probes, fmt.Sprintf("%s: %v", ep.Name, err))
			log.Debug().Str("mirror", ep.Name).Str("url", url).Err(err).Msg("listing fetch failed")
			continue
		}
		versions := extract(body)
		if len(versions) == 0 {
			probes = append(probes, fmt.Sprintf("%s: listing had no version entries", ep.Name))
			continue
		}
		latest := release.Latest(versions)
		if latest == "" {
			probes = append(probes, fmt.Sprintf("%s: no parseable versions", ep.Name))
			continue
		}
		log.Debug().Str("mirror", ep.Name).Str("version", latest).Msg("resolved latest version")
		return Result{
			Mirror:  ep.Name,
			Version: latest,
			URL:     expand(ep.FileURL, arch, latest),
			SumURL:  expand(ep.SumURL, arch, latest),
		}, nil
	}
	return Result{}, errors.NewMirrorError(target, "", probes)
}

// Catalog fetches the full version listing from the first mirror that
// serves one, already de-duplicated and sorted descending.
func (s *Selector) Catalog(ctx context.Context, target string, endpoints []Endpoint, arch string, extract release.ExtractFunc) (release.Catalog, string, error) {
	var probes []string
	for _, ep := range endpoints {
		url := expand(ep.ListURL, arch, "")
		body, err := s.fetch(ctx, url)
		if err != nil {
			probes = append(probes, fmt.Sprintf("%s: %v", ep.Name, err))
			continue
		}
		versions := extract(body)
		if len(versions) == 0 {
			probes = append(probes, fmt.Sprintf("%s: listing had no version entries", ep.Name))
			continue
		}
		return release.NewCatalog(versions), ep.Name, nil
	}
	return release.Catalog{}, "", errors.NewMirrorError(target, "", probes)
}

// probe issues a HEAD-style existence check for the exact expected file.
func (s *Selector) probe(ctx context.Context, url string) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}

func (s *Selector) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}
