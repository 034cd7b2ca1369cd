// Package tui holds the interactive prompt surface. The install state
// machine never talks to a terminal directly; it receives a Prompter so
// tests can drive every confirmation with a scripted source.
package tui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/stu2116Edward/dockman/internal/style"
	"github.com/stu2116Edward/dockman/internal/terminal"
)

// Prompter is the capability the core operations use for every point where
// the operator must answer something.
type Prompter interface {
	// Confirm asks a yes/no question. Bare input resolves to defaultYes.
	Confirm(prompt string, defaultYes bool) (bool, error)

	// Select presents options and returns the chosen one.
	Select(title string, options []string) (string, error)

	// Input reads a free-form line.
	Input(title, placeholder string) (string, error)
}

// New returns the right Prompter for the detected terminal: huh forms on an
// interactive TTY, a plain line-oriented reader otherwise.
func New(info terminal.Info, in io.Reader, out io.Writer) Prompter {
	if info.InteractiveEnabled {
		return &huhPrompter{}
	}
	return &stdioPrompter{in: bufio.NewReader(in), out: out}
}

type huhPrompter struct{}

func (p *huhPrompter) Confirm(prompt string, defaultYes bool) (bool, error) {
	confirmed := defaultYes
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(prompt).
				Affirmative("Yes").
				Negative("No").
				Value(&confirmed),
		),
	)
	if err := form.Run(); err != nil {
		return false, err
	}
	return confirmed, nil
}

func (p *huhPrompter) Select(title string, options []string) (string, error) {
	var value string
	opts := make([]huh.Option[string], len(options))
	for i, o := range options {
		opts[i] = huh.NewOption(o, o)
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(title).
				Options(opts...).
				Value(&value),
		),
	)
	if err := form.Run(); err != nil {
		return "", err
	}
	return value, nil
}

func (p *huhPrompter) Input(title, placeholder string) (string, error) {
	var value string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(title).
				Placeholder(placeholder).
				Value(&value),
		),
	)
	if err := form.Run(); err != nil {
		return "", err
	}
	return value, nil
}

// stdioPrompter reads plain lines. It backs non-TTY runs (pipes, CI) where
// the interactive forms cannot render.
type stdioPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func (p *stdioPrompter) Confirm(prompt string, defaultYes bool) (bool, error) {
	suffix := "[Y/n]"
	if !defaultYes {
		suffix = "[y/N]"
	}
	fmt.Fprintf(p.out, "%s %s: ", prompt, suffix)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "":
		return defaultYes, nil
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (p *stdioPrompter) Select(title string, options []string) (string, error) {
	fmt.Fprintln(p.out, style.Subtitle.Render(title))
	for i, o := range options {
		fmt.Fprintf(p.out, "%3d) %s\n", i+1, o)
	}
	fmt.Fprint(p.out, "Enter choice: ")
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	choice := strings.TrimSpace(line)
	for i, o := range options {
		if choice == fmt.Sprint(i+1) || choice == o {
			return options[i], nil
		}
	}
	return "", fmt.Errorf("no such option: %q", choice)
}

func (p *stdioPrompter) Input(title, placeholder string) (string, error) {
	if placeholder != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", title, placeholder)
	} else {
		fmt.Fprintf(p.out, "%s: ", title)
	}
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	value := strings.TrimSpace(line)
	if value == "" {
		return placeholder, nil
	}
	return value, nil
}

// Scripted is a Prompter fed from queued answers, for tests.
type Scripted struct {
	// Confirms is consumed front to back; when exhausted, Confirm returns
	// the default.
	Confirms []bool
	// Selections and Inputs are consumed the same way.
	Selections []string
	Inputs     []string

	// Asked records every Confirm prompt, in order.
	Asked []string
}

func (s *Scripted) Confirm(prompt string, defaultYes bool) (bool, error) {
	s.Asked = append(s.Asked, prompt)
	if len(s.Confirms) == 0 {
		return defaultYes, nil
	}
	answer := s.Confirms[0]
	s.Confirms = s.Confirms[1:]
	return answer, nil
}

func (s *Scripted) Select(title string, options []string) (string, error) {
	if len(s.Selections) == 0 {
		return "", fmt.Errorf("scripted prompter: no selection queued for %q", title)
	}
	answer := s.Selections[0]
	s.Selections = s.Selections[1:]
	return answer, nil
}

func (s *Scripted) Input(title, placeholder string) (string, error) {
	if len(s.Inputs) == 0 {
		return placeholder, nil
	}
	answer := s.Inputs[0]
	s.Inputs = s.Inputs[1:]
	return answer, nil
}
