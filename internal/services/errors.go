package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external service error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")

	// ErrUserPause and ErrUserCancel are cancellation causes attached to an
	// in-flight transfer's context. They let the uploader tell a deliberate
	// abort apart from a genuine transport failure.
	ErrUserPause  = errors.New("paused by user")
	ErrUserCancel = errors.New("cancelled by user")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsUserAbort reports whether an error traces back to a deliberate pause or
// cancel rather than a transport failure.
func IsUserAbort(err error) bool {
	return errors.Is(err, ErrUserPause) || errors.Is(err, ErrUserCancel)
}

// Retryable reports whether a failed external call is worth retrying.
// Validation and configuration problems will not heal on their own.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case IsUserAbort(err):
		return false
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration), errors.Is(err, ErrNotFound):
		return false
	default:
		return true
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
