// Package retry implements bounded retries over a sequence of candidates,
// stopping at the first candidate that succeeds.
package retry

import (
	"context"
	"errors"
	"fmt"
)

// ErrExhausted is returned (wrapped) when every candidate failed.
var ErrExhausted = errors.New("all candidates exhausted")

// Until tries next(1), next(2), ... next(max) in order and returns the first
// candidate for which try returns nil, together with its attempt number.
//
// A try error only advances the loop; the per-attempt errors are joined into the
// returned error once max is reached. Context cancellation stops immediately.
func Until[T any](ctx context.Context, max int, next func(attempt int) T, try func(ctx context.Context, candidate T) error) (T, int, error) {
	var zero T
	if max < 1 {
		return zero, 0, fmt.Errorf("retry: max attempts must be >= 1, got %d", max)
	}

	var errs []error
	for attempt := 1; attempt <= max; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, attempt, err
		}
		c := next(attempt)
		err := try(ctx, c)
		if err == nil {
			return c, attempt, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, attempt, ctxErr
		}
		errs = append(errs, fmt.Errorf("attempt %d: %w", attempt, err))
	}
	return zero, max, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, max, errors.Join(errs...))
}
