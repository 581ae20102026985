// Package apperr defines the error kinds shared across the pipeline.
// Callers classify failures with errors.Is against the sentinel values;
// the helpers attach entity context at the point of failure.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed input: bad rating range, mismatched
	// list lengths, unparsable parameter JSON.
	ErrValidation = errors.New("validation error")

	// ErrProvider marks generation-provider failures: unreachable,
	// non-2xx, or an unexpected payload shape.
	ErrProvider = errors.New("provider error")

	// ErrPersistence marks graph or file write/read failures.
	ErrPersistence = errors.New("persistence error")

	// ErrExport marks curation-system failures: unreachable, non-success
	// envelope, or undecodable JSON.
	ErrExport = errors.New("export error")
)

func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func Providerf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrProvider, fmt.Sprintf(format, args...))
}

func Persistencef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPersistence, fmt.Sprintf(format, args...))
}

func Exportf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrExport, fmt.Sprintf(format, args...))
}
