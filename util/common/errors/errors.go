package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across packages. Callers match these with
// errors.Is; the typed errors below carry the detail.
var (
	ErrUnsupportedArch      = errors.New("unsupported architecture")
	ErrNoMirrorAvailable    = errors.New("no mirror available")
	ErrDownloadFailed       = errors.New("download failed")
	ErrInvalidSelection     = errors.New("invalid selection")
	ErrUninstallIncomplete  = errors.New("uninstall incomplete")
	ErrUnknownInstallMethod = errors.New("unknown install method")
	ErrServiceActivation    = errors.New("service activation failed")
)

// ArchError reports a machine architecture this tool has no mapping for.
type ArchError struct {
	Raw    string
	Target string
}

func (e *ArchError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("architecture %q is not supported by %s", e.Raw, e.Target)
	}
	return fmt.Sprintf("architecture %q is not supported", e.Raw)
}

func (e *ArchError) Unwrap() error { return ErrUnsupportedArch }

// NewArchError creates a new ArchError
func NewArchError(raw, target string) error {
	return &ArchError{Raw: raw, Target: target}
}

// MirrorError reports that every candidate mirror failed to serve a request.
// Probes records one human-readable line per mirror tried, in probe order.
type MirrorError struct {
	Target  string
	Version string
	Probes  []string
}

func (e *MirrorError) Error() string {
	if e.Version != "" {
		return fmt.Sprintf("no mirror can serve %s %s (%d probed)", e.Target, e.Version, len(e.Probes))
	}
	return fmt.Sprintf("no mirror can serve %s (%d probed)", e.Target, len(e.Probes))
}

func (e *MirrorError) Unwrap() error { return ErrNoMirrorAvailable }

// NewMirrorError creates a new MirrorError
func NewMirrorError(target, version string, probes []string) error {
	return &MirrorError{Target: target, Version: version, Probes: probes}
}

// DownloadError reports a failed artifact download.
type DownloadError struct {
	URL     string
	Wrapped error
}

func (e *DownloadError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("download of %s failed: %v", e.URL, e.Wrapped)
	}
	return fmt.Sprintf("download of %s failed", e.URL)
}

func (e *DownloadError) Unwrap() error { return ErrDownloadFailed }

// NewDownloadError creates a new DownloadError
func NewDownloadError(url string, wrapped error) error {
	return &DownloadError{URL: url, Wrapped: wrapped}
}

// SelectionError reports an out-of-range or non-numeric catalog selection.
// Recoverable: the caller re-prompts.
type SelectionError struct {
	Input string
	Max   int
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("selection %q is not a number between 1 and %d", e.Input, e.Max)
}

func (e *SelectionError) Unwrap() error { return ErrInvalidSelection }

// NewSelectionError creates a new SelectionError
func NewSelectionError(input string, max int) error {
	return &SelectionError{Input: input, Max: max}
}

// UninstallError reports residual install evidence after an uninstall pass.
// Fatal to the current operation; a subsequent install must not proceed.
type UninstallError struct {
	Target   string
	Residual []string
}

func (e *UninstallError) Error() string {
	return fmt.Sprintf("uninstall of %s left residual artifacts: %v", e.Target, e.Residual)
}

func (e *UninstallError) Unwrap() error { return ErrUninstallIncomplete }

// NewUninstallError creates a new UninstallError
func NewUninstallError(target string, residual []string) error {
	return &UninstallError{Target: target, Residual: residual}
}

// MethodError reports install evidence that matches no known install method,
// so no removal path can be chosen safely.
type MethodError struct {
	Target   string
	Evidence []string
}

func (e *MethodError) Error() string {
	return fmt.Sprintf("cannot determine how %s was installed (evidence: %v)", e.Target, e.Evidence)
}

func (e *MethodError) Unwrap() error { return ErrUnknownInstallMethod }

// NewMethodError creates a new MethodError
func NewMethodError(target string, evidence []string) error {
	return &MethodError{Target: target, Evidence: evidence}
}

// ServiceError reports a service-manager operation that did not take effect.
type ServiceError struct {
	Unit    string
	Op      string
	Wrapped error
}

func (e *ServiceError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("service %s %s failed: %v", e.Unit, e.Op, e.Wrapped)
	}
	return fmt.Sprintf("service %s %s failed", e.Unit, e.Op)
}

func (e *ServiceError) Unwrap() error { return ErrServiceActivation }

// NewServiceError creates a new ServiceError
func NewServiceError(unit, op string, wrapped error) error {
	return &ServiceError{Unit: unit, Op: op, Wrapped: wrapped}
}

// FileError represents an error that occurs during file operations
type FileError struct {
	Path    string
	Op      string
	Wrapped error
}

func (e *FileError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s operation failed on %s: %v", e.Op, e.Path, e.Wrapped)
	}
	return fmt.Sprintf("%s operation failed on %s", e.Op, e.Path)
}

func (e *FileError) Unwrap() error {
	return e.Wrapped
}

// NewFileError creates a new FileError
func NewFileError(path, op string, wrapped error) error {
	return &FileError{
		Path:    path,
		Op:      op,
		Wrapped: wrapped,
	}
}

// Is reports whether target matches err.
// It enables errors.Is() to work with our custom error types.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// It enables errors.As() to work with our custom error types.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
