package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration  = errors.New("configuration error")
	ErrLaunch         = errors.New("launch error")
	ErrToolFatal      = errors.New("tool fatal error")
	ErrUnknownFailure = errors.New("unknown failure")
	ErrAssembly       = errors.New("assembly error")
	ErrCleanup        = errors.New("cleanup failed")
	ErrCancelled      = errors.New("cancelled")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrUnknownFailure
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a stable short name for the marker carried by err. It is used
// as a log attribute and as the persisted failure kind in the import history.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrLaunch):
		return "launch"
	case errors.Is(err, ErrToolFatal):
		return "tool_fatal"
	case errors.Is(err, ErrAssembly):
		return "assembly"
	case errors.Is(err, ErrCleanup):
		return "cleanup"
	default:
		return "unknown_failure"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
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
