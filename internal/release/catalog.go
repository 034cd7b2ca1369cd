package release

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/stu2116Edward/dockman/util/common/errors"
)

// Catalog is an enumerated, descending list of installable versions the
// operator picks from by number.
type Catalog struct {
	Versions []string
}

// NewCatalog builds a catalog from raw version strings: de-duplicated and
// strictly descending.
func NewCatalog(raw []string) Catalog {
	return Catalog{Versions: SortDesc(raw)}
}

// Render writes the catalog as a numbered, column-formatted menu.
// cols <= 0 defaults to 4 columns.
func (c Catalog) Render(w io.Writer, cols int) {
	if cols <= 0 {
		cols = 4
	}
	width := 0
	for _, v := range c.Versions {
		if len(v) > width {
			width = len(v)
		}
	}
	numWidth := len(strconv.Itoa(len(c.Versions)))

	var b strings.Builder
	for i, v := range c.Versions {
		fmt.Fprintf(&b, "%*d) %-*s", numWidth, i+1, width+2, v)
		if (i+1)%cols == 0 || i == len(c.Versions)-1 {
			b.WriteByte('\n')
		}
	}
	io.WriteString(w, b.String())
}

// Pick maps a 1-based selection string back to the version it numbers.
// Non-numeric or out-of-range input returns ErrInvalidSelection so the
// caller can re-prompt.
func (c Catalog) Pick(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	n, err := strconv.Atoi(trimmed)
	if err != nil || n < 1 || n > len(c.Versions) {
		return "", errors.NewSelectionError(input, len(c.Versions))
	}
	return c.Versions[n-1], nil
}
