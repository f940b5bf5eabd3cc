package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrValidation    = errors.New("invalid moderation request")
	ErrForbidden     = errors.New("actor is not allowed to moderate")
	ErrPersistence   = errors.New("moderation state could not be persisted")
	ErrSchedulerRace = errors.New("timed action already fired or cancelled")
)

// ValidationError rejects a request before any state is touched.
type ValidationError struct {
	Reason    string
	Forbidden bool
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func (e *ValidationError) Is(target error) bool {
	if target == ErrValidation {
		return true
	}
	return e.Forbidden && target == ErrForbidden
}

func invalid(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

func forbidden(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...), Forbidden: true}
}

// PersistenceError means the durable store rejected or timed out a write.
// The operation that hit it left no partial state behind and may be retried.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// IsRetryable reports whether err is worth retrying. Only persistence
// failures are.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrPersistence)
}

// persist runs fn against the store with the configured timeout and wraps any
// failure as a PersistenceError.
func persist(ctx context.Context, timeout time.Duration, op string, fn func(ctx context.Context) error) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := fn(ctx); err != nil {
		persistenceErrors.WithLabelValues(op).Inc()
		return &PersistenceError{Op: op, Err: err}
	}
	return nil
}
