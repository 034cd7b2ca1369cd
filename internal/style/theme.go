// Package style defines the visual theme for dockman.
// All colours and text styles are defined here so that every prompt, table
// and formatted message uses a consistent look-and-feel.
//
// Call Init(colorEnabled) once at startup. After that, use the exported
// styles and helper functions freely.
package style

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// ─── Colour palette ──────────────────────────────────────────────────────────

var (
	// Brand / primary
	Blue = lipgloss.Color("#1D63ED")
	Cyan = lipgloss.Color("#00B4D8")

	// Semantic
	Green  = lipgloss.Color("#22C55E")
	Yellow = lipgloss.Color("#FACC15")
	Red    = lipgloss.Color("#EF4444")

	// Neutral
	White  = lipgloss.Color("#FAFAFA")
	Dim    = lipgloss.Color("#6B7280")
	Subtle = lipgloss.Color("#374151")
)

// ─── Reusable text styles ────────────────────────────────────────────────────

var (
	// Title is used for top-level headings and the main menu banner.
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Blue).
		PaddingBottom(1)

	// Subtitle is used for section headers.
	Subtitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Cyan)

	// Success style for positive confirmations.
	Success = lipgloss.NewStyle().
		Foreground(Green).
		Bold(true)

	// Warning style for non-fatal alerts.
	Warning = lipgloss.NewStyle().
		Foreground(Yellow)

	// Error style for error messages.
	Error = lipgloss.NewStyle().
		Foreground(Red).
		Bold(true)

	// DimText is used for hints, secondary info and disabled items.
	DimText = lipgloss.NewStyle().
			Foreground(Dim)

	// Bold is a simple bold helper.
	Bold = lipgloss.NewStyle().Bold(true)
)

// ─── Banner ──────────────────────────────────────────────────────────────────

// Banner returns the dockman ASCII banner.
func Banner() string {
	banner := `
     _            _
  __| | ___   ___| | ___ __ ___   __ _ _ __
 / _` + "`" + ` |/ _ \ / __| |/ / '_ ` + "`" + ` _ \ / _` + "`" + ` | '_ \
| (_| | (_) | (__|   <| | | | | | (_| | | | |
 \__,_|\___/ \___|_|\_\_| |_| |_|\__,_|_| |_|`

	return lipgloss.NewStyle().Foreground(Blue).Bold(true).Render(banner)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// Enabled tracks whether styles should render ANSI output.
// When false, all styles degrade to plain text.
var Enabled = true

// Init configures the style package. Call once at startup.
func Init(colorEnabled bool) {
	Enabled = colorEnabled
	if !colorEnabled {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// SuccessIcon returns a themed check mark.
func SuccessIcon() string {
	if Enabled {
		return Success.Render("✓")
	}
	return "OK"
}

// ErrorIcon returns a themed X mark.
func ErrorIcon() string {
	if Enabled {
		return Error.Render("✗")
	}
	return "ERROR"
}

// WarningIcon returns a themed warning indicator.
func WarningIcon() string {
	if Enabled {
		return Warning.Render("!")
	}
	return "WARN"
}

// Hint renders a "next step" hint message.
func Hint(msg string) string {
	return DimText.Render("→ " + msg)
}
