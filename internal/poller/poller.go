// Package poller waits for an eventually-consistent object listing to
// converge. Listings lag behind writes (especially multipart uploads),
// so verification has to retry until the state stabilizes rather than
// trusting a single read.
package poller

import (
	"context"
	"fmt"
	"time"

	"github.com/quantica-technologies/kafka-backup-harness/internal/domain"
	"github.com/quantica-technologies/kafka-backup-harness/pkg/errors"
	"github.com/quantica-technologies/kafka-backup-harness/pkg/metrics"
)

const (
	DefaultAttempts = 10
	DefaultDelay    = time.Second
)

// Options bounds a single wait
type Options struct {
	Attempts int
	Delay    time.Duration
}

// DefaultOptions returns the standard attempt budget
func DefaultOptions() Options {
	return Options{Attempts: DefaultAttempts, Delay: DefaultDelay}
}

// Outcome is the tagged result of evaluating one listing snapshot
type Outcome[T any] struct {
	value  T
	ready  bool
	reason string
}

// Ready marks the wait as satisfied, carrying the extracted value
func Ready[T any](value T) Outcome[T] {
	return Outcome[T]{value: value, ready: true}
}

// NotReady keeps the poller retrying; the reason surfaces in the
// exhaustion error. The type argument must be supplied explicitly
// since the reason alone does not determine it.
func NotReady[T any](reason string) Outcome[T] {
	return Outcome[T]{reason: reason}
}

// ListFunc produces one listing snapshot
type ListFunc func(ctx context.Context) ([]domain.ObjectInfo, error)

// EvalFunc doubles as extraction and readiness predicate
type EvalFunc[T any] func(snapshot []domain.ObjectInfo) Outcome[T]

// WaitFor calls list and evaluates the snapshot once per attempt,
// sleeping a fixed delay between attempts. Attempts are sequential:
// each one observes the outcome of the prior before retrying. Listing
// errors count as not-ready, since a freshly created bucket can
// briefly fail to list at all. After the final failed attempt the wait
// fails with POLLING_EXHAUSTED carrying the last reason.
func WaitFor[T any](ctx context.Context, list ListFunc, eval EvalFunc[T], opts Options) (T, error) {
	var zero T

	if opts.Attempts <= 0 {
		opts.Attempts = DefaultAttempts
	}
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}

	var lastErr error
	lastReason := "no attempt completed"

	for attempt := 1; attempt <= opts.Attempts; attempt++ {
		snapshot, err := list(ctx)
		if err != nil {
			lastErr = err
			lastReason = "listing failed"
		} else {
			lastErr = nil
			outcome := eval(snapshot)
			if outcome.ready {
				metrics.PollAttempts.Observe(float64(attempt))
				return outcome.value, nil
			}
			lastReason = outcome.reason
		}

		if attempt == opts.Attempts {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(opts.Delay):
		}
	}

	metrics.PollAttempts.Observe(float64(opts.Attempts))
	message := fmt.Sprintf("storage state did not converge after %d attempts: %s", opts.Attempts, lastReason)
	if lastErr != nil {
		return zero, errors.Wrap(lastErr, errors.ErrCodePollingExhausted, message)
	}
	return zero, errors.New(errors.ErrCodePollingExhausted, message)
}
