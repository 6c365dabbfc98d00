package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffDelay(t *testing.T) {
	b := Backoff{Initial: 100 * time.Millisecond, Max: time.Second, Factor: 3}

	assert.Equal(t, 100*time.Millisecond, b.Delay(1))
	assert.Equal(t, 300*time.Millisecond, b.Delay(2))
	assert.Equal(t, 900*time.Millisecond, b.Delay(3))
	assert.Equal(t, time.Second, b.Delay(4))
	assert.Equal(t, time.Second, b.Delay(40))

	assert.Equal(t, time.Duration(0), Backoff{}.Delay(5))
}

func TestBackoffDo(t *testing.T) {
	fast := Backoff{Attempts: 3}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := fast.Do(context.Background(), "write", func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after every attempt", func(t *testing.T) {
		calls := 0
		cause := errors.New("unavailable")
		err := fast.Do(context.Background(), "write", func(context.Context) error {
			calls++
			return cause
		})
		require.Error(t, err)
		assert.Equal(t, 3, calls)
		assert.ErrorIs(t, err, ErrRetriesExhausted)
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "write")
	})

	t.Run("permanent errors stop immediately", func(t *testing.T) {
		calls := 0
		cause := errors.New("bad request")
		err := fast.Do(context.Background(), "format", func(context.Context) error {
			calls++
			return Permanent(cause)
		})
		assert.Equal(t, 1, calls)
		assert.True(t, IsPermanent(err))
		assert.ErrorIs(t, err, cause)
		assert.NotErrorIs(t, err, ErrRetriesExhausted)
	})

	t.Run("cancelled context stops the wait", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		slow := Backoff{Attempts: 5, Initial: time.Hour}
		calls := 0
		err := slow.Do(ctx, "write", func(context.Context) error {
			calls++
			cancel()
			return errors.New("transient")
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}

func TestPermanentNil(t *testing.T) {
	require.NoError(t, Permanent(nil))
	assert.False(t, IsPermanent(errors.New("plain")))
}
