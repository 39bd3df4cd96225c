package claim

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedLocker(t *testing.T) {
	t.Run("serializes holders of the same key", func(t *testing.T) {
		l := NewKeyedLocker()
		var inside, maxInside atomic.Int32
		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock, err := l.Lock(context.Background(), "reg-1")
				require.NoError(t, err)
				n := inside.Add(1)
				for {
					m := maxInside.Load()
					if n <= m || maxInside.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				inside.Add(-1)
				unlock()
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), maxInside.Load())
		assert.Equal(t, 0, l.held())
	})

	t.Run("different keys do not block each other", func(t *testing.T) {
		l := NewKeyedLocker()
		unlockA, err := l.Lock(context.Background(), "reg-a")
		require.NoError(t, err)
		defer unlockA()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		unlockB, err := l.Lock(ctx, "reg-b")
		require.NoError(t, err)
		unlockB()
	})

	t.Run("waiter gives up when its context ends", func(t *testing.T) {
		l := NewKeyedLocker()
		unlock, err := l.Lock(context.Background(), "reg-1")
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err = l.Lock(ctx, "reg-1")
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		unlock()
		assert.Equal(t, 0, l.held())
	})

	t.Run("unlock is idempotent", func(t *testing.T) {
		l := NewKeyedLocker()
		unlock, err := l.Lock(context.Background(), "reg-1")
		require.NoError(t, err)
		unlock()
		unlock()
		assert.Equal(t, 0, l.held())
	})
}
