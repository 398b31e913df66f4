package retry

import (
	"time"
)

type fn func() error
type shouldRetry func(err error, attempt int) bool

// WrapWithRetry wraps the given function and retries it after delay while shouldRetry returns true.
// It gives up when failures arrive faster than rate per second.
func WrapWithRetry(f fn, shouldRetry shouldRetry, rate float32, delay time.Duration) func() error {
	size := int(rate + 1)
	var errorTimestamps []time.Time

	return func() error {
		attempt := 0

		for {
			err := f()
			if err == nil {
				return nil
			}

			attempt++
			if !shouldRetry(err, attempt) {
				return err
			}

			errorTimestamps = append(errorTimestamps, time.Now())
			if len(errorTimestamps) > size {
				errorTimestamps = errorTimestamps[1:]
			}

			if len(errorTimestamps) == size {
				duration := errorTimestamps[len(errorTimestamps)-1].Sub(errorTimestamps[0])
				if duration <= time.Second && float32(len(errorTimestamps))/float32(max(duration.Seconds(), 0.001)) >= rate {
					return err
				}
			}

			time.Sleep(delay)
		}
	}
}
