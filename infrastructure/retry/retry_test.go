package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")

func isTransient(err error) bool { return errors.Is(err, errTransient) }

var fast = Policy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fast, nil, "test", isTransient, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_DoesNotRetryPermanentErrors(t *testing.T) {
	permanent := errors.New("permanent")
	calls := 0
	err := Do(context.Background(), fast, nil, "test", isTransient, func(ctx context.Context) error {
		calls++
		return permanent
	})

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDo_GivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fast, nil, "test", isTransient, func(ctx context.Context) error {
		calls++
		return errTransient
	})

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 4, calls, "one attempt plus three retries")
}

func TestDo_NonePolicyMakesOneAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), None, nil, "test", isTransient, func(ctx context.Context) error {
		calls++
		return errTransient
	})

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 1, calls)
}

func TestDo_StopsWhenContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, Policy{MaxRetries: 10, BaseDelay: time.Hour}, nil, "test", isTransient, func(ctx context.Context) error {
		calls++
		cancel()
		return errTransient
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
