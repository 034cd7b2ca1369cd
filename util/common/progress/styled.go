package progress

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/stu2116Edward/dockman/internal/style"
)

// StyledReporter implements Reporter with lipgloss-themed output.
type StyledReporter struct{}

// NewStyledReporter creates a reporter with lipgloss-styled output.
func NewStyledReporter() *StyledReporter {
	return &StyledReporter{}
}

// NewAutoReporter returns a StyledReporter when stdout is a TTY and colours
// are enabled, otherwise falls back to the plain ConsoleReporter.
func NewAutoReporter() Reporter {
	if term.IsTerminal(int(os.Stdout.Fd())) && style.Enabled {
		return NewStyledReporter()
	}
	return NewConsoleReporter()
}

var (
	startStyle   = lipgloss.NewStyle().Bold(true).Foreground(style.Cyan)
	stepStyle    = lipgloss.NewStyle().Foreground(style.Dim).PaddingLeft(2)
	errorStyle   = lipgloss.NewStyle().Foreground(style.Red).Bold(true).PaddingLeft(2)
	successStyle = lipgloss.NewStyle().Foreground(style.Green).Bold(true).PaddingLeft(2)
)

func (r *StyledReporter) Start(message string) {
	fmt.Println(startStyle.Render("⚡ " + message + "..."))
}

func (r *StyledReporter) Step(message string) {
	fmt.Println(stepStyle.Render("→ " + message + "..."))
}

func (r *StyledReporter) Error(message string) {
	fmt.Println(errorStyle.Render("✗ " + message))
}

func (r *StyledReporter) Success(message string) {
	fmt.Println(successStyle.Render("✓ " + message))
}

func (r *StyledReporter) End() {}
