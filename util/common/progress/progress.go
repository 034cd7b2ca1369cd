// Package progress reports the stages of a long-running operation to the
// operator. The styled reporter covers interactive terminals; this file
// holds the plain fallback for pipes and captured logs, plus the silent
// reporter tests use.
package progress

import "fmt"

// Reporter receives operation milestones. Implementations decide how, or
// whether, each one reaches the operator.
type Reporter interface {
	// Start announces the operation about to run.
	Start(message string)
	// Step reports an intermediate milestone.
	Step(message string)
	// Error reports a failed step.
	Error(message string)
	// Success reports a completed step or operation.
	Success(message string)
	// End closes out the operation's reporting.
	End()
}

// ConsoleReporter prints milestones as unstyled text.
type ConsoleReporter struct{}

// NewConsoleReporter creates a plain-text Reporter.
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{}
}

func (r *ConsoleReporter) Start(message string) {
	fmt.Printf("==> %s\n", message)
}

func (r *ConsoleReporter) Step(message string) {
	fmt.Printf("    %s\n", message)
}

func (r *ConsoleReporter) Error(message string) {
	fmt.Printf("    error: %s\n", message)
}

func (r *ConsoleReporter) Success(message string) {
	fmt.Printf("    ok: %s\n", message)
}

func (r *ConsoleReporter) End() {}

// NopReporter discards every milestone.
type NopReporter struct{}

// NewNopReporter creates a Reporter that reports nothing.
func NewNopReporter() *NopReporter {
	return &NopReporter{}
}

func (r *NopReporter) Start(string)   {}
func (r *NopReporter) Step(string)    {}
func (r *NopReporter) Error(string)   {}
func (r *NopReporter) Success(string) {}
func (r *NopReporter) End()           {}
