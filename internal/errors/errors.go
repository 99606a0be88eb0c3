package errors

import (
	"errors"
	"fmt"
	"os"

	"github.com/habiter/habiter/internal/logger"
)

// ErrNotFound signals an operation referencing an id that does not
// exist or has been soft-deleted.
var ErrNotFound = errors.New("resource could not be found")

// ErrNotReady signals a write against a repository whose store is not
// open yet (or already closed). Reads never return it, they degrade to
// empty results instead so callers can render while storage initializes.
var ErrNotReady = errors.New("storage is not ready")

// ErrSlotUnavailable signals a check-in against a slot that expired or
// filled up between selection and submission.
var ErrSlotUnavailable = errors.New("this entry is no longer available")

// ValidationError reports a payload field outside an entity's declared
// schema.
type ValidationError struct {
	Table string
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %q is not part of the %s schema", e.Field, e.Table)
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}

// Fatalf logs and formats an error message, then exits the program with exit code 1
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Error("Command execution failed", "error", msg)
	fmt.Fprintf(os.Stderr, "%s\n", Formatf(format, args...))
	os.Exit(1)
}
