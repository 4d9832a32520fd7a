package validation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolBoundsConcurrency(t *testing.T) {
	pool := NewPool(2)

	var inFlight, peak atomic.Int32
	release := make(chan struct{})

	var pending []*Pending
	for i := 0; i < 6; i++ {
		pending = append(pending, pool.Submit(context.Background(), func(context.Context) error {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			<-release
			inFlight.Add(-1)
			return nil
		}))
	}

	// Submit returned for every job while none of them could finish
	require.Eventually(t, func() bool { return inFlight.Load() == 2 }, time.Second, 5*time.Millisecond)
	close(release)

	for _, pd := range pending {
		assert.NoError(t, pd.Wait(context.Background()))
	}
	assert.Equal(t, int32(2), peak.Load())
}

func TestPendingCarriesError(t *testing.T) {
	pool := NewPool(1)
	boom := errors.New("boom")

	pd := pool.Submit(context.Background(), func(context.Context) error { return boom })
	assert.ErrorIs(t, pd.Wait(context.Background()), boom)
}

func TestSubmitAfterCancel(t *testing.T) {
	pool := NewPool(1)

	var wg sync.WaitGroup
	wg.Add(1)
	block := make(chan struct{})
	first := pool.Submit(context.Background(), func(context.Context) error {
		wg.Done()
		<-block
		return nil
	})
	wg.Wait()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Bool
	second := pool.Submit(ctx, func(context.Context) error {
		ran.Store(true)
		return nil
	})
	assert.ErrorIs(t, second.Wait(context.Background()), context.Canceled)
	assert.False(t, ran.Load())

	close(block)
	assert.NoError(t, first.Wait(context.Background()))
}
