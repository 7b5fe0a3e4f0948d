package common

import (
	"context"
	"fmt"
	"time"
)

func Contains[T comparable](elems []T, v T) bool {
	for _, s := range elems {
		if v == s {
			return true
		}
	}

	return false
}

func TypeOf(v interface{}) string {
	return fmt.Sprintf("%T", v)
}

func IsContextDone(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// RetryWithContext retries operation up to maxRetries times, waiting delay
// between attempts, and gives up early when the context is cancelled.
func RetryWithContext(ctx context.Context, operation func(attempt int, retryIn time.Duration) error, maxRetries int,
	delay time.Duration,
) error {
	err := operation(1, delay)

	for attempt := 1; err != nil && attempt < maxRetries; attempt++ {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return err
		}

		err = operation(attempt+1, delay)
	}

	return err
}
