package mcpclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb := newCircuitBreaker(circuitBreakerConfig{FailureThreshold: 2, SuccessThreshold: 1, Timeout: time.Minute})

	require.True(t, cb.allow())
	cb.recordResult("svc", errors.New("boom"))
	require.Equal(t, circuitClosed, cb.State())

	require.True(t, cb.allow())
	cb.recordResult("svc", errors.New("boom again"))
	require.Equal(t, circuitOpen, cb.State())
	require.False(t, cb.allow())
}

func TestCircuitBreakerHalfOpenRecovers(t *testing.T) {
	cb := newCircuitBreaker(circuitBreakerConfig{FailureThreshold: 1, SuccessThreshold: 1, Timeout: time.Millisecond})
	cb.recordResult("svc", errors.New("fail"))
	require.Equal(t, circuitOpen, cb.State())

	time.Sleep(5 * time.Millisecond)
	require.True(t, cb.allow())
	require.Equal(t, circuitHalfOpen, cb.State())

	cb.recordResult("svc", nil)
	require.Equal(t, circuitClosed, cb.State())
}

func TestWithRetrySucceedsAfterTransientFailure(t *testing.T) {
	attempts := 0
	result, err := withRetry(context.Background(), retryConfig{
		MaxAttempts:     3,
		InitialDelay:    time.Millisecond,
		MaxDelay:        5 * time.Millisecond,
		BackoffFactor:   2,
		RetryableErrors: []string{"timeout"},
	}, "op", func() (string, error) {
		attempts++
		if attempts < 2 {
			return "", errors.New("timeout talking to server")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	require.Equal(t, "ok", result)
	require.Equal(t, 2, attempts)
}

func TestWithRetryStopsOnNonRetryable(t *testing.T) {
	attempts := 0
	_, err := withRetry(context.Background(), defaultRetryConfig(), "op", func() (string, error) {
		attempts++
		return "", errors.New("permission denied")
	})
	require.Error(t, err)
	require.Equal(t, 1, attempts)
}
