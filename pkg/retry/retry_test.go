package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nimbusdfir/nimbus/pkg/schema"
)

func TestExecuteSucceedsFirstAttempt(t *testing.T) {
	executor := New(schema.RetryConfig{
		MaxAttempts:     3,
		BackoffStrategy: schema.BackoffConstant,
		InitialDelay:    time.Millisecond,
	})

	calls := 0
	err := executor.Execute(context.Background(), func() error {
		calls++
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestExecuteRetriesUntilSuccess(t *testing.T) {
	executor := New(schema.RetryConfig{
		MaxAttempts:     5,
		BackoffStrategy: schema.BackoffConstant,
		InitialDelay:    time.Millisecond,
	})

	calls := 0
	err := executor.Execute(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestExecuteExhaustsAttempts(t *testing.T) {
	executor := New(schema.RetryConfig{
		MaxAttempts:     3,
		BackoffStrategy: schema.BackoffConstant,
		InitialDelay:    time.Millisecond,
	})

	boom := errors.New("boom")
	calls := 0
	err := executor.Execute(context.Background(), func() error {
		calls++
		return boom
	})

	assert.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestExecuteWithPredicateStopsOnNonRetryable(t *testing.T) {
	executor := New(schema.RetryConfig{
		MaxAttempts:     5,
		BackoffStrategy: schema.BackoffConstant,
		InitialDelay:    time.Millisecond,
	})

	fatal := errors.New("fatal")
	calls := 0
	err := executor.ExecuteWithPredicate(context.Background(), func() error {
		calls++
		return fatal
	}, func(err error) bool {
		return false
	})

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestExecuteMaxElapsedTime(t *testing.T) {
	executor := New(schema.RetryConfig{
		MaxAttempts:     1000,
		BackoffStrategy: schema.BackoffConstant,
		InitialDelay:    10 * time.Millisecond,
		MaxElapsedTime:  30 * time.Millisecond,
	})

	err := executor.Execute(context.Background(), func() error {
		return errors.New("still failing")
	})

	var maxElapsed MaxElapsedTimeError
	assert.ErrorAs(t, err, &maxElapsed)
}

func TestExecuteContextCancellation(t *testing.T) {
	executor := New(schema.RetryConfig{
		MaxAttempts:     1000,
		BackoffStrategy: schema.BackoffConstant,
		InitialDelay:    50 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := executor.Execute(ctx, func() error {
		return errors.New("still failing")
	})

	assert.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCalculateDelayStrategies(t *testing.T) {
	tests := []struct {
		name     string
		strategy schema.BackoffStrategy
		attempt  int
		expected time.Duration
	}{
		{"constant attempt 1", schema.BackoffConstant, 1, 100 * time.Millisecond},
		{"constant attempt 5", schema.BackoffConstant, 5, 100 * time.Millisecond},
		{"linear attempt 3", schema.BackoffLinear, 3, 300 * time.Millisecond},
		{"exponential attempt 1", schema.BackoffExponential, 1, 100 * time.Millisecond},
		{"exponential attempt 3", schema.BackoffExponential, 3, 400 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executor := New(schema.RetryConfig{
				BackoffStrategy: tt.strategy,
				InitialDelay:    100 * time.Millisecond,
				Multiplier:      2.0,
			})
			assert.Equal(t, tt.expected, executor.calculateDelay(tt.attempt))
		})
	}
}

func TestCalculateDelayRespectsMaxDelay(t *testing.T) {
	executor := New(schema.RetryConfig{
		BackoffStrategy: schema.BackoffExponential,
		InitialDelay:    100 * time.Millisecond,
		MaxDelay:        150 * time.Millisecond,
		Multiplier:      2.0,
	})

	assert.Equal(t, 150*time.Millisecond, executor.calculateDelay(10))
}

func TestSSHReadinessConfig(t *testing.T) {
	cfg := SSHReadinessConfig()

	assert.Equal(t, 60, cfg.MaxAttempts)
	assert.Equal(t, schema.BackoffConstant, cfg.BackoffStrategy)
	assert.Equal(t, time.Second, cfg.InitialDelay)
	assert.False(t, cfg.RandomJitter)
}
