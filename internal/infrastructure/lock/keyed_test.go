package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()
	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := km.Lock(context.Background(), "u1")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Zero(t, km.size())
}

func TestKeyedMutex_DifferentKeysDoNotBlock(t *testing.T) {
	km := NewKeyedMutex()
	r1, err := km.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer r1()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	r2, err := km.Lock(ctx, "b")
	require.NoError(t, err)
	r2()
}

func TestKeyedMutex_HonoursContext(t *testing.T) {
	km := NewKeyedMutex()
	release, err := km.Lock(context.Background(), "u1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = km.Lock(ctx, "u1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release()
	assert.Zero(t, km.size())
}
