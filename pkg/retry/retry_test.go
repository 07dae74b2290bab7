package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 5 * time.Millisecond
	cfg.JitterFraction = 0
	return cfg
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	attempts := 0

	err := Do(context.Background(), fastConfig(), func() error {
		attempts++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	attempts := 0

	err := Do(context.Background(), fastConfig(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoExhaustsAttempts(t *testing.T) {
	lastErr := errors.New("still failing")
	attempts := 0

	cfg := fastConfig()
	cfg.MaxAttempts = 4

	err := Do(context.Background(), cfg, func() error {
		attempts++
		return lastErr
	})

	require.ErrorIs(t, err, lastErr)
	assert.Equal(t, 4, attempts)
}

func TestDoNonRetryableErrorStopsImmediately(t *testing.T) {
	retryable := errors.New("retryable")
	fatal := errors.New("fatal")
	attempts := 0

	cfg := fastConfig()
	cfg.RetryableErrors = []error{retryable}

	err := Do(context.Background(), cfg, func() error {
		attempts++
		return fatal
	})

	require.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, attempts)
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	cfg := fastConfig()
	cfg.MaxAttempts = 100
	cfg.InitialDelay = 50 * time.Millisecond

	err := Do(ctx, cfg, func() error {
		attempts++
		cancel()
		return errors.New("transient")
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}
