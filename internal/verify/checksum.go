// Package verify computes and checks SHA-256 digests of downloaded
// artifacts against their published reference files.
package verify

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Outcome is the result of comparing an artifact against its reference digest.
type Outcome int

const (
	// Verified means the reference digest was present and matched.
	Verified Outcome = iota
	// Corrupt means the reference digest was present and did not match.
	// The caller must get an explicit override before using the artifact.
	Corrupt
	// Unverified means no usable reference digest was available.
	// The caller must get an explicit override before using the artifact.
	Unverified
)

func (o Outcome) String() string {
	switch o {
	case Verified:
		return "verified"
	case Corrupt:
		return "corrupt"
	case Unverified:
		return "unverified"
	default:
		return "unknown"
	}
}

const hexDigestLen = sha256.Size * 2

// Checksum computes the SHA-256 digest of the file at path as a lowercase
// hex string.
func Checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Artifact verifies the artifact at artifactPath against the reference
// digest file at digestPath. assetName is the filename the publisher uses
// in sha256sum-layout entries; it may differ from the local cache name and
// may be empty, in which case only the local basename is matched. A missing
// or unusable digest file yields Unverified; a present-but-mismatched one
// yields Corrupt. The computed digest is returned for reporting in either
// case.
func Artifact(artifactPath, digestPath, assetName string) (Outcome, string, error) {
	actual, err := Checksum(artifactPath)
	if err != nil {
		return Unverified, "", err
	}

	data, err := os.ReadFile(digestPath)
	if err != nil {
		return Unverified, actual, nil
	}

	names := []string{filepath.Base(artifactPath)}
	if assetName != "" && assetName != names[0] {
		names = append(names, assetName)
	}
	want, err := extractDigest(data, names)
	if err != nil {
		return Unverified, actual, nil
	}

	if want != actual {
		return Corrupt, actual, nil
	}
	return Verified, actual, nil
}

// extractDigest pulls the expected digest out of a reference file. Both a
// bare digest and the common "<digest>  <filename>" sha256sum layout are
// accepted; in the latter case the entry for any of the candidate names
// wins.
func extractDigest(data []byte, assetNames []string) (string, error) {
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("digest file is empty")
	}
	if isHexDigest(text) {
		return strings.ToLower(text), nil
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || !isHexDigest(fields[0]) {
			continue
		}
		candidate := filepath.Base(strings.TrimPrefix(fields[len(fields)-1], "*"))
		for _, name := range assetNames {
			if candidate == name {
				return strings.ToLower(fields[0]), nil
			}
		}
	}
	return "", fmt.Errorf("digest for %s not found", strings.Join(assetNames, " or "))
}

func isHexDigest(value string) bool {
	if len(value) != hexDigestLen {
		return false
	}
	for _, ch := range value {
		if (ch < '0' || ch > '9') && (ch < 'a' || ch > 'f') && (ch < 'A' || ch > 'F') {
			return false
		}
	}
	return true
}
