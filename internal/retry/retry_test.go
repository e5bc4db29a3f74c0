package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func suffix(attempt int) string { return fmt.Sprintf("file.%d", attempt) }

func TestUntil_StopsAtFirstSuccess(t *testing.T) {
	var tried []string
	got, attempt, err := Until(context.Background(), 5, suffix, func(_ context.Context, c string) error {
		tried = append(tried, c)
		if c == "file.3" {
			return nil
		}
		return errors.New("empty")
	})
	require.NoError(t, err)
	assert.Equal(t, "file.3", got)
	assert.Equal(t, 3, attempt)
	assert.Equal(t, []string{"file.1", "file.2", "file.3"}, tried)
}

func TestUntil_Exhausted(t *testing.T) {
	calls := 0
	_, attempt, err := Until(context.Background(), 4, suffix, func(_ context.Context, _ string) error {
		calls++
		return errors.New("empty")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 4, calls)
	assert.Equal(t, 4, attempt)
	assert.Contains(t, err.Error(), "attempt 4")
}

func TestUntil_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, _, err := Until(ctx, 5, suffix, func(_ context.Context, _ string) error {
		calls++
		cancel()
		return errors.New("network down")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestUntil_InvalidMax(t *testing.T) {
	_, _, err := Until(context.Background(), 0, suffix, func(_ context.Context, _ string) error { return nil })
	assert.Error(t, err)
}
