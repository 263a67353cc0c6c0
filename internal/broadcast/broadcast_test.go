package broadcast

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive[T any](t *testing.T, sub *Subscription[T]) T {
	t.Helper()
	select {
	case v, ok := <-sub.C():
		require.True(t, ok, "subscription closed unexpectedly")
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for value")
	}
	var zero T
	return zero
}

func TestChannel_ReplaysCurrentValue(t *testing.T) {
	c := New("initial")
	c.Publish("second")

	sub := c.Subscribe()
	defer sub.Unsubscribe()

	assert.Equal(t, "second", receive(t, sub))
	assert.Equal(t, "second", c.Get())
}

func TestChannel_DeliversInPublishOrderWithoutCoalescing(t *testing.T) {
	c := New(0)
	sub := c.Subscribe()
	defer sub.Unsubscribe()

	require.Equal(t, 0, receive(t, sub))

	// Publish a burst before reading anything.
	for i := 1; i <= 100; i++ {
		c.Publish(i)
	}
	for i := 1; i <= 100; i++ {
		assert.Equal(t, i, receive(t, sub))
	}
}

func TestChannel_MultipleReadersSeeSameSequence(t *testing.T) {
	c := New("a")
	subs := []*Subscription[string]{c.Subscribe(), c.Subscribe(), c.Subscribe()}
	c.Publish("b")
	c.Publish("c")

	for _, sub := range subs {
		assert.Equal(t, []string{"a", "b", "c"}, []string{receive(t, sub), receive(t, sub), receive(t, sub)})
		sub.Unsubscribe()
	}
}

func TestSubscription_UnsubscribeClosesAndIsIdempotent(t *testing.T) {
	c := New(1)
	sub := c.Subscribe()
	sub.Unsubscribe()
	sub.Unsubscribe()

	// Drain until closed.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-sub.C():
			if !ok {
				c.Publish(2) // must not panic or block
				return
			}
		case <-deadline:
			t.Fatal("subscription channel was not closed")
		}
	}
}

func TestChannel_CloseStopsSubscribers(t *testing.T) {
	c := New(1)
	sub := c.Subscribe()
	c.Close()
	c.Publish(5)

	late := c.Subscribe()
	_, ok := <-late.C()
	assert.False(t, ok)
	late.Unsubscribe()

	for range sub.C() {
	}
	assert.Equal(t, 1, c.Get())
}

func TestChannel_ConcurrentReadersAndPublisher(t *testing.T) {
	c := New(0)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub := c.Subscribe()
			defer sub.Unsubscribe()
			last := -1
			for v := range sub.C() {
				assert.Greater(t, v, last)
				last = v
				if v == 50 {
					return
				}
			}
		}()
	}
	for i := 1; i <= 50; i++ {
		c.Publish(i)
		_ = c.Get()
	}
	wg.Wait()
}
