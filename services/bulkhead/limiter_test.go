package bulkhead

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/grocerlink/commerce-router/services"
)

func TestAcquireRelease(t *testing.T) {
	l := NewLimiter(2, zap.NewNop())

	release1, err := l.Acquire(context.Background(), "freshmart")
	require.NoError(t, err)
	release2, err := l.Acquire(context.Background(), "freshmart")
	require.NoError(t, err)
	assert.Equal(t, 2, l.InFlight("freshmart"))

	release1()
	assert.Equal(t, 1, l.InFlight("freshmart"))
	release2()
	assert.Equal(t, 0, l.InFlight("freshmart"))
}

func TestAcquireBlocksAtCapacity(t *testing.T) {
	l := NewLimiter(1, zap.NewNop())

	release, err := l.Acquire(context.Background(), "freshmart")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err = l.Acquire(ctx, "freshmart")
	require.Error(t, err)
	assert.Equal(t, services.ErrCodeTimeout, services.CodeOf(err))

	release()

	// slot is free again
	release2, err := l.Acquire(context.Background(), "freshmart")
	require.NoError(t, err)
	release2()
}

func TestProvidersAreIsolated(t *testing.T) {
	l := NewLimiter(1, zap.NewNop())

	releaseA, err := l.Acquire(context.Background(), "freshmart")
	require.NoError(t, err)
	defer releaseA()

	// freshmart being saturated must not affect quickbasket
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	releaseB, err := l.Acquire(ctx, "quickbasket")
	require.NoError(t, err)
	releaseB()
}

func TestConcurrentAcquireNeverExceedsLimit(t *testing.T) {
	const limit = 3
	l := NewLimiter(limit, zap.NewNop())

	var (
		mu      sync.Mutex
		current int
		peak    int
		wg      sync.WaitGroup
	)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), "freshmart")
			if err != nil {
				return
			}
			mu.Lock()
			current++
			if current > peak {
				peak = current
			}
			mu.Unlock()

			time.Sleep(2 * time.Millisecond)

			mu.Lock()
			current--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak, limit)
	assert.Equal(t, 0, l.InFlight("freshmart"))
}

func TestZeroLimitFallsBackToDefault(t *testing.T) {
	l := NewLimiter(0, zap.NewNop())
	assert.Equal(t, DefaultLimit, l.Limit())
}
