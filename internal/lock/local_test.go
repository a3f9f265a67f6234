package lock

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

func TestNormalizeKeys(t *testing.T) {
	assert.Equal(t, []string{"product:1", "product:2", "voucher:9"},
		normalizeKeys([]string{"voucher:9", "product:2", "", "product:1", "product:2"}))
}

func TestLocal_SerializesSameKey(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	var active, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Lock(ctx, "product:1")
			if !assert.NoError(t, err) {
				return
			}
			defer release()

			n := atomic.AddInt32(&active, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), peak)
	assert.Empty(t, l.slots, "idle keys are dropped")
}

func TestLocal_OverlappingSetsDoNotDeadlock(t *testing.T) {
	l := NewLocal()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		keys := []string{"product:1", "product:2"}
		if i%2 == 0 {
			keys = []string{"product:2", "product:1"}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Lock(ctx, keys...)
			if assert.NoError(t, err) {
				release()
			}
		}()
	}
	wg.Wait()
}

func TestLocal_ContextCancel(t *testing.T) {
	l := NewLocal()
	release, err := l.Lock(context.Background(), "voucher:7")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "product:1", "voucher:7")
	assert.True(t, errors.Is(err, ErrNotObtained), "got %v", err)

	// product:1 was released when voucher:7 could not be taken.
	other, err := l.Lock(context.Background(), "product:1")
	require.NoError(t, err)
	other()

	release()
	release()
	again, err := l.Lock(context.Background(), "voucher:7")
	require.NoError(t, err)
	again()
}
