// Package terminal provides TTY detection helpers. It centralises all
// "is this a terminal?" logic so commands make consistent decisions about
// colour and interactivity without duplicating platform-specific checks.
package terminal

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// Info holds the resolved terminal state for the current process.
// Create one at startup via Detect() and pass it down.
type Info struct {
	// IsTerminal is true when stdout is connected to a TTY.
	IsTerminal bool
	// ColorEnabled is true when ANSI colours should be emitted.
	ColorEnabled bool
	// InteractiveEnabled is true when interactive prompts are allowed.
	InteractiveEnabled bool
}

// Detect inspects the environment and returns a populated Info.
//
//	noColor – true when --no-color was passed (or NO_COLOR env is set)
func Detect(noColor bool) Info {
	isTTY := term.IsTerminal(int(os.Stdout.Fd()))

	// Honour the NO_COLOR convention (https://no-color.org/).
	envNoColor := os.Getenv("NO_COLOR") != ""

	return Info{
		IsTerminal:         isTTY,
		ColorEnabled:       isTTY && !noColor && !envNoColor,
		InteractiveEnabled: isTTY && !IsDumb(),
	}
}

// IsDumb returns true when the terminal is known to have no capabilities
// (e.g. TERM=dumb or running inside Emacs).
func IsDumb() bool {
	t := strings.ToLower(os.Getenv("TERM"))
	return t == "dumb"
}
