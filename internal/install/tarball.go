package install

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// extractTarball unpacks the engine's static tgz into binDir. Members live
// under a single leading "docker/" directory which is stripped; only
// regular files are placed, each made executable.
func extractTarball(archivePath, binDir string) ([]string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", archivePath, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("gunzip %s: %w", archivePath, err)
	}
	defer gz.Close()

	if err := os.MkdirAll(binDir, 0755); err != nil {
		return nil, err
	}

	var placed []string
	reader := tar.NewReader(gz)
	for {
		header, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return placed, fmt.Errorf("read %s: %w", archivePath, err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		name := filepath.Base(header.Name)
		// Refuse anything trying to escape the member directory.
		if name == "" || name == "." || strings.Contains(header.Name, "..") {
			continue
		}
		dest := filepath.Join(binDir, name)
		out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0755)
		if err != nil {
			return placed, err
		}
		if _, err := io.Copy(out, reader); err != nil {
			out.Close()
			return placed, err
		}
		if err := out.Close(); err != nil {
			return placed, err
		}
		placed = append(placed, dest)
	}
	if len(placed) == 0 {
		return nil, fmt.Errorf("%s contained no binaries", archivePath)
	}
	return placed, nil
}
