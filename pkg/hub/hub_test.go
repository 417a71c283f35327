package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub[int], context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h := New[int]("test")
	go h.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-h.Done()
	})
	return h, cancel
}

func recv(t *testing.T, c <-chan int) (int, bool) {
	t.Helper()
	select {
	case v, ok := <-c:
		return v, ok
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for value")
		return 0, false
	}
}

func TestHub_FanOut(t *testing.T) {
	h, _ := startHub(t)

	a := h.Subscribe("a", 4)
	b := h.Subscribe("b", 4)
	require.Equal(t, 2, h.Count())
	assert.NotEqual(t, a.ID, b.ID)

	require.True(t, h.Publish(7))

	v, ok := recv(t, a.C)
	assert.True(t, ok)
	assert.Equal(t, 7, v)

	v, ok = recv(t, b.C)
	assert.True(t, ok)
	assert.Equal(t, 7, v)
}

func TestHub_PreservesOrder(t *testing.T) {
	h, _ := startHub(t)
	sub := h.Subscribe("ordered", 16)

	for i := 0; i < 10; i++ {
		require.True(t, h.Publish(i))
	}
	for i := 0; i < 10; i++ {
		v, ok := recv(t, sub.C)
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	h, _ := startHub(t)
	sub := h.Subscribe("leaver", 1)

	h.Unsubscribe(sub)
	_, ok := recv(t, sub.C)
	assert.False(t, ok, "channel should be closed")
	assert.Equal(t, 0, h.Count())

	// Second call is a no-op
	h.Unsubscribe(sub)
}

func TestHub_DropsSlowSubscriber(t *testing.T) {
	h, _ := startHub(t)
	slow := h.Subscribe("slow", 1)
	fast := h.Subscribe("fast", 8)

	require.True(t, h.Publish(1))
	require.True(t, h.Publish(2))

	// fast sees both values; by then the hub has processed the second
	// broadcast and dropped slow
	v, _ := recv(t, fast.C)
	assert.Equal(t, 1, v)
	v, _ = recv(t, fast.C)
	assert.Equal(t, 2, v)

	v, ok := recv(t, slow.C)
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	_, ok = recv(t, slow.C)
	assert.False(t, ok, "slow subscriber should be closed")

	assert.Eventually(t, func() bool { return h.Count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestHub_StopClosesSubscribers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := New[int]("stop")
	go h.Run(ctx)

	sub := h.Subscribe("s", 1)
	assert.Eventually(t, h.IsRunning, time.Second, time.Millisecond)

	cancel()
	<-h.Done()

	_, ok := recv(t, sub.C)
	assert.False(t, ok)
	assert.False(t, h.IsRunning())

	late := h.Subscribe("late", 1)
	_, ok = recv(t, late.C)
	assert.False(t, ok, "subscribing to a stopped hub yields a closed channel")

	h.Unsubscribe(late)
}

func TestHub_PublishWithoutRunDropsWhenFull(t *testing.T) {
	h := New[int]("idle")
	for i := 0; i < cap(h.broadcast); i++ {
		require.True(t, h.Publish(i))
	}
	assert.False(t, h.Publish(-1))
	assert.Equal(t, uint64(1), h.Dropped())
}

func TestHub_RunsOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := New[int]("once")
	go h.Run(ctx)
	require.Eventually(t, h.IsRunning, time.Second, time.Millisecond)

	// A second loop on a running hub returns without touching its state
	returned := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("second Run blocked")
	}
	assert.True(t, h.IsRunning())

	cancel()
	<-h.Done()

	// Restarting a stopped hub must not close done twice
	assert.NotPanics(t, func() { h.Run(context.Background()) })
	assert.False(t, h.IsRunning())

	sub := h.Subscribe("late", 1)
	_, ok := <-sub.C
	assert.False(t, ok, "subscription on a stopped hub is closed")
}
