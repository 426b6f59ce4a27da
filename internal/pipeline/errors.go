package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrCancelled     = errors.New("cancelled")
	ErrComparison    = errors.New("comparison failure")
	ErrEnumeration   = errors.New("enumeration skipped")
	ErrModel         = errors.New("model initialization failure")
	ErrConfiguration = errors.New("configuration error")
)

// Terminal states of a duplicate search run.
const (
	OutcomeCompleted = "completed"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
)

// Wrap builds an error message that includes phase context while tagging it
// with the provided marker. The marker should be one of the exported sentinel
// errors above.
func Wrap(marker error, phase, operation, message string, err error) error {
	detail := buildDetail(phase, operation, message)
	if marker == nil {
		marker = ErrComparison
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Cancelled tags a context error so it matches both ErrCancelled and the
// original context error.
func Cancelled(err error) error {
	if err == nil {
		err = context.Canceled
	}
	if errors.Is(err, ErrCancelled) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrCancelled, err)
}

// IsCancelled reports whether err represents cooperative cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Outcome maps a run error to its terminal state.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeCompleted
	case IsCancelled(err):
		return OutcomeCancelled
	default:
		return OutcomeFailed
	}
}

func buildDetail(phase, operation, message string) string {
	parts := make([]string, 0, 3)
	if phase = strings.TrimSpace(phase); phase != "" {
		parts = append(parts, phase)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
