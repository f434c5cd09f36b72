package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewOverdueSweeper(t *testing.T) {
	sweep := func(ctx context.Context, cutoff time.Time) (int, error) { return 0, nil }

	t.Run("rejects nil sweep func", func(t *testing.T) {
		_, err := NewOverdueSweeper(nil, time.Minute, zap.NewNop())
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("rejects non-positive interval", func(t *testing.T) {
		_, err := NewOverdueSweeper(sweep, 0, zap.NewNop())
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("creates sweeper with valid config", func(t *testing.T) {
		s, err := NewOverdueSweeper(sweep, time.Minute, zap.NewNop())
		require.NoError(t, err)
		assert.NotNil(t, s)
	})
}

func TestOverdueSweeper_RunOnce(t *testing.T) {
	t.Run("reports marked count", func(t *testing.T) {
		s, err := NewOverdueSweeper(func(ctx context.Context, cutoff time.Time) (int, error) {
			return 3, nil
		}, time.Minute, zap.NewNop())
		require.NoError(t, err)

		marked, err := s.RunOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 3, marked)

		lastRunAt, lastMarked, totalMarked, lastErr := s.Stats()
		require.NotNil(t, lastRunAt)
		assert.Equal(t, 3, lastMarked)
		assert.Equal(t, int64(3), totalMarked)
		assert.NoError(t, lastErr)
	})

	t.Run("surfaces sweep errors", func(t *testing.T) {
		sweepErr := errors.New("db down")
		s, err := NewOverdueSweeper(func(ctx context.Context, cutoff time.Time) (int, error) {
			return 0, sweepErr
		}, time.Minute, zap.NewNop())
		require.NoError(t, err)

		_, err = s.RunOnce(context.Background())
		assert.ErrorIs(t, err, sweepErr)

		_, _, _, lastErr := s.Stats()
		assert.ErrorIs(t, lastErr, sweepErr)
	})
}

func TestOverdueSweeper_StartStop(t *testing.T) {
	t.Run("runs an immediate sweep then ticks", func(t *testing.T) {
		var calls atomic.Int64
		s, err := NewOverdueSweeper(func(ctx context.Context, cutoff time.Time) (int, error) {
			calls.Add(1)
			return 0, nil
		}, 10*time.Millisecond, zap.NewNop())
		require.NoError(t, err)

		require.NoError(t, s.Start(context.Background()))

		assert.Eventually(t, func() bool {
			return calls.Load() >= 2
		}, time.Second, 5*time.Millisecond)

		require.NoError(t, s.Stop(context.Background()))
	})

	t.Run("rejects double start", func(t *testing.T) {
		s, err := NewOverdueSweeper(func(ctx context.Context, cutoff time.Time) (int, error) {
			return 0, nil
		}, time.Minute, zap.NewNop())
		require.NoError(t, err)

		require.NoError(t, s.Start(context.Background()))
		assert.ErrorIs(t, s.Start(context.Background()), ErrSweeperAlreadyRunning)
		require.NoError(t, s.Stop(context.Background()))
	})

	t.Run("stop without start is a no-op", func(t *testing.T) {
		s, err := NewOverdueSweeper(func(ctx context.Context, cutoff time.Time) (int, error) {
			return 0, nil
		}, time.Minute, zap.NewNop())
		require.NoError(t, err)

		assert.NoError(t, s.Stop(context.Background()))
	})
}
