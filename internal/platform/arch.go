// Package platform maps the host CPU architecture to the naming conventions
// used by each download target.
package platform

import (
	"strings"

	"github.com/stu2116Edward/dockman/util/common/errors"
)

// base maps raw `uname -m` style strings to the engine's static-build
// directory naming. This is the canonical token every target starts from.
var base = map[string]string{
	"x86_64":  "x86_64",
	"amd64":   "x86_64",
	"aarch64": "aarch64",
	"arm64":   "aarch64",
	"armv7l":  "armhf", // 32-bit ARM, hard-float
	"armv6l":  "armel", // 32-bit ARM, soft-float
	"s390x":   "s390x",
	"ppc64le": "ppc64le",
}

// Resolve maps a raw machine architecture string to the engine's download
// token. Unknown input yields a wrapped ErrUnsupportedArch and never a
// partial token.
func Resolve(raw string) (string, error) {
	token, ok := base[strings.TrimSpace(strings.ToLower(raw))]
	if !ok {
		return "", errors.NewArchError(raw, "")
	}
	return token, nil
}

// ResolveWith resolves raw to the canonical token and then applies a
// target-specific rename layer. Tokens absent from the remap table pass
// through unchanged, so targets only list the names they disagree on.
func ResolveWith(remap map[string]string, targetName, raw string) (string, error) {
	token, err := Resolve(raw)
	if err != nil {
		return "", errors.NewArchError(raw, targetName)
	}
	if renamed, ok := remap[token]; ok {
		return renamed, nil
	}
	return token, nil
}

// Supported lists the raw architecture strings Resolve accepts.
func Supported() []string {
	out := make([]string, 0, len(base))
	for k := range base {
		out = append(out, k)
	}
	return out
}
