// Package release resolves installable versions: programmatic "latest"
// lookups and full catalog enumeration with operator selection.
package release

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ExtractFunc pulls version strings out of a mirror's catalog body.
// Each target wires the extractor matching its listing format.
type ExtractFunc func(body []byte) []string

// ListingExtractor returns an ExtractFunc that scans an HTML/plain directory
// listing with the given pattern. The pattern's first capture group is the
// version string.
func ListingExtractor(pattern *regexp.Regexp) ExtractFunc {
	return func(body []byte) []string {
		var out []string
		for _, m := range pattern.FindAllSubmatch(body, -1) {
			if len(m) > 1 {
				out = append(out, string(m[1]))
			}
		}
		return out
	}
}

// githubRelease is the slice of fields we read from the releases API.
type githubRelease struct {
	TagName    string `json:"tag_name"`
	Draft      bool   `json:"draft"`
	Prerelease bool   `json:"prerelease"`
}

// GitHubTagsExtractor parses a GitHub releases API response (array form)
// into version strings, skipping drafts and prereleases. A leading "v" on
// tags is stripped.
func GitHubTagsExtractor(body []byte) []string {
	var releases []githubRelease
	if err := json.Unmarshal(body, &releases); err != nil {
		// Single-release form (releases/latest).
		var one githubRelease
		if err := json.Unmarshal(body, &one); err != nil || one.TagName == "" {
			return nil
		}
		releases = []githubRelease{one}
	}
	var out []string
	for _, r := range releases {
		if r.Draft || r.Prerelease || r.TagName == "" {
			continue
		}
		out = append(out, strings.TrimPrefix(r.TagName, "v"))
	}
	return out
}

// SortDesc de-duplicates versions and sorts them in strictly descending
// semver order. Strings that do not parse as semver are dropped.
func SortDesc(versions []string) []string {
	seen := make(map[string]bool, len(versions))
	parsed := make([]*semver.Version, 0, len(versions))
	for _, raw := range versions {
		v, err := semver.NewVersion(raw)
		if err != nil {
			continue
		}
		key := v.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		parsed = append(parsed, v)
	}
	sort.Sort(sort.Reverse(semver.Collection(parsed)))

	out := make([]string, len(parsed))
	for i, v := range parsed {
		out[i] = v.Original()
	}
	return out
}

// Latest returns the maximum entry by semver ordering, not the first
// listed. Empty input returns "".
func Latest(versions []string) string {
	sorted := SortDesc(versions)
	if len(sorted) == 0 {
		return ""
	}
	return sorted[0]
}
