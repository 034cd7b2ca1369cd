// Package download fetches artifacts over HTTP(S) into the local cache,
// with a small retry budget and a console progress bar.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"

	"github.com/stu2116Edward/dockman/util/common/errors"
	"github.com/stu2116Edward/dockman/util/common/progress"
)

// Downloader saves remote files into destDir.
type Downloader struct {
	client   *retryablehttp.Client
	destDir  string
	showBars bool
}

// New creates a Downloader writing into destDir. Each attempt is bounded by
// timeout; transient failures are retried twice before giving up.
func New(destDir string, timeout time.Duration, showBars bool) *Downloader {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = time.Second
	client.Logger = nil
	client.HTTPClient.Timeout = timeout
	return &Downloader{client: client, destDir: destDir, showBars: showBars}
}

// Fetch downloads url into destDir under filename and returns the saved
// path. Partial files are written to a sidecar and renamed only on success.
func (d *Downloader) Fetch(ctx context.Context, url, filename string) (string, error) {
	if err := os.MkdirAll(d.destDir, 0755); err != nil {
		return "", errors.NewDownloadError(url, err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.NewDownloadError(url, err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return "", errors.NewDownloadError(url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errors.NewDownloadError(url, fmt.Errorf("unexpected status %s", resp.Status))
	}

	var body io.ReadCloser = resp.Body
	if d.showBars {
		body = progress.ReadCloser(resp.ContentLength, resp.Body, filename)
		defer body.Close()
	}

	dest := filepath.Join(d.destDir, filename)
	partial := dest + ".partial"
	out, err := os.Create(partial)
	if err != nil {
		return "", errors.NewDownloadError(url, err)
	}

	written, err := io.Copy(out, body)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(partial)
		return "", errors.NewDownloadError(url, err)
	}
	if err := os.Rename(partial, dest); err != nil {
		os.Remove(partial)
		return "", errors.NewDownloadError(url, err)
	}

	log.Debug().Str("url", url).Str("path", dest).Int64("bytes", written).Msg("download complete")
	return dest, nil
}

// FetchDigest downloads the reference-digest file next to the artifact.
// Best-effort: a failure returns an empty path and the error for reporting,
// leaving the verification outcome to the caller.
func (d *Downloader) FetchDigest(ctx context.Context, sumURL, artifactFilename string) (string, error) {
	if sumURL == "" {
		return "", fmt.Errorf("mirror publishes no digest")
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, sumURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	dest := filepath.Join(d.destDir, artifactFilename+".sha256")
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return "", err
	}
	return dest, nil
}
