package app

import (
	"context"
	"errors"

	"github.com/example/propcheck/internal/metrics"
	"github.com/example/propcheck/internal/ports/secondary"
)

// maxConflictAttempts bounds re-read-and-retry after a lost version race.
const maxConflictAttempts = 3

// retryOnConflict runs fn until it succeeds, fails with anything other than
// ErrConcurrentModification, or runs out of attempts. fn must re-read the
// state it writes.
func retryOnConflict(ctx context.Context, op string, fn func() error) error {
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !errors.Is(err, secondary.ErrConcurrentModification) || attempt >= maxConflictAttempts {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		metrics.ConflictRetriesTotal.WithLabelValues(op).Inc()
	}
}
