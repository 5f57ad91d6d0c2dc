package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransient marks failures worth retrying within the current sweep:
	// network timeouts, rate limits, 5xx responses, truncated downloads.
	ErrTransient = errors.New("transient failure")
	// ErrPermanent marks failures retrying cannot fix this run: malformed
	// responses, 4xx statuses, missing required inputs. The unit is skipped
	// and stays pending for a future invocation.
	ErrPermanent = errors.New("permanent failure")
	// ErrConfiguration marks missing or invalid configuration (credentials,
	// paths). Configuration errors abort the whole stage.
	ErrConfiguration = errors.New("configuration error")
	// ErrExternalTool marks a failure reported by an external binary such as
	// ffprobe. Treated as permanent for retry purposes.
	ErrExternalTool = errors.New("external tool error")
	// ErrTimeout marks an external call that exceeded its deadline. Treated
	// as transient.
	ErrTimeout = errors.New("timeout")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether a unit failure is worth retrying with backoff
// within the same sweep. Unmarked errors are treated as transient so an
// unexpected network hiccup gets a second chance rather than a skip.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrConfiguration):
		return false
	case errors.Is(err, ErrPermanent), errors.Is(err, ErrExternalTool):
		return false
	case errors.Is(err, ErrTransient), errors.Is(err, ErrTimeout):
		return true
	default:
		return true
	}
}

// Fatal reports whether the error must abort the whole stage instead of
// skipping a single unit.
func Fatal(err error) bool {
	return errors.Is(err, ErrConfiguration)
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
