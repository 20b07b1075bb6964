package tools

import (
	"errors"
	"fmt"
)

// ErrUnknownTool is returned when an invocation names a tool that is not registered.
var ErrUnknownTool = errors.New("unknown tool")

// ValidationError reports invocation arguments that do not satisfy the
// tool's input schema. It is raised before any network call.
type ValidationError struct {
	Tool   string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, e.Detail())
}

// Detail is the message without the tool prefix: "field: reason", or just
// the reason when no single field is at fault.
func (e *ValidationError) Detail() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

// IsValidationError reports whether err is, or wraps, a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
