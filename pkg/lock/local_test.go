package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestLocal_SerializesSameKey(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewLocal()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)

	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), "clinic-a")
			if !assert.NoError(t, err) {
				return
			}
			defer release()

			mu.Lock()
			inside++
			maxSeen = max(maxSeen, inside)
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 0, l.held())
}

func TestLocal_DifferentKeysDoNotBlock(t *testing.T) {
	l := NewLocal()

	releaseA, err := l.Acquire(context.Background(), "clinic-a")
	require.NoError(t, err)
	defer releaseA()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	releaseB, err := l.Acquire(ctx, "clinic-b")
	require.NoError(t, err)
	releaseB()
}

func TestLocal_TimesOut(t *testing.T) {
	l := NewLocal()

	release, err := l.Acquire(context.Background(), "clinic-a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = l.Acquire(ctx, "clinic-a")
	require.ErrorIs(t, err, ErrNotAcquired)

	release()
	release() // second call is a no-op
	assert.Equal(t, 0, l.held())
}
