package retry_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"skyfed/pkg/retry"
)

var errFlaky = errors.New("flaky")

func TestWrapWithRetry(t *testing.T) {
	t.Parallel()

	t.Run("retries until success", func(t *testing.T) {
		t.Parallel()

		calls := 0
		err := retry.WrapWithRetry(func() error {
			calls++
			if calls < 3 {
				return errFlaky
			}
			return nil
		}, func(error, int) bool { return true }, 100, time.Millisecond)()

		require.NoError(t, err)
		require.Equal(t, 3, calls)
	})

	t.Run("stops when shouldRetry refuses", func(t *testing.T) {
		t.Parallel()

		calls := 0
		err := retry.WrapWithRetry(func() error {
			calls++
			return errFlaky
		}, func(_ error, attempt int) bool { return attempt < 2 }, 100, time.Millisecond)()

		require.ErrorIs(t, err, errFlaky)
		require.Equal(t, 2, calls)
	})

	t.Run("gives up when errors come too fast", func(t *testing.T) {
		t.Parallel()

		calls := 0
		err := retry.WrapWithRetry(func() error {
			calls++
			return errFlaky
		}, func(error, int) bool { return true }, 2, 0)()

		require.ErrorIs(t, err, errFlaky)
		require.Equal(t, 3, calls)
	})
}
