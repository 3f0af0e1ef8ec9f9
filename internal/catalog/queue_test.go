package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkQueue_Deduplicates(t *testing.T) {
	q := newWorkQueue()
	q.Add("1")
	q.Add("2")
	q.Add("1")
	assert.Equal(t, 2, q.Len())

	ctx := context.Background()
	id, ok := q.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, "1", id)

	// Added while processing: queued again once done.
	q.Add("1")
	assert.Equal(t, 1, q.Len())
	q.Done("1")
	assert.Equal(t, 2, q.Len())

	id, _ = q.Get(ctx)
	assert.Equal(t, "2", id)
	id, _ = q.Get(ctx)
	assert.Equal(t, "1", id)
}

func TestWorkQueue_Forget(t *testing.T) {
	q := newWorkQueue()
	q.Add("1")
	q.Add("2")
	q.Forget("1")
	assert.Equal(t, 1, q.Len())

	id, ok := q.Get(context.Background())
	require.True(t, ok)
	assert.Equal(t, "2", id)
}

func TestWorkQueue_GetUnblocks(t *testing.T) {
	t.Run("context", func(t *testing.T) {
		q := newWorkQueue()
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, ok := q.Get(ctx)
		assert.False(t, ok)
	})

	t.Run("shutdown", func(t *testing.T) {
		q := newWorkQueue()
		done := make(chan bool)
		go func() {
			_, ok := q.Get(context.Background())
			done <- ok
		}()

		time.Sleep(10 * time.Millisecond)
		q.Shutdown()
		select {
		case ok := <-done:
			assert.False(t, ok)
		case <-time.After(time.Second):
			t.Fatal("Get did not return after Shutdown")
		}

		q.Add("1")
		assert.Equal(t, 0, q.Len())
	})
}

func TestDelayedQueue_AddAfter(t *testing.T) {
	q := newDelayedQueue()
	defer q.Shutdown()

	q.AddAfter("1", 20*time.Millisecond)
	q.AddAfter("1", 20*time.Millisecond)
	assert.Equal(t, 1, q.Delayed())
	assert.Equal(t, 0, q.Len())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	id, ok := q.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, "1", id)
	assert.Equal(t, 0, q.Delayed())
}

func TestDelayedQueue_ForgetAndShutdown(t *testing.T) {
	q := newDelayedQueue()

	q.AddAfter("1", 10*time.Millisecond)
	q.Forget("1")
	assert.Equal(t, 0, q.Delayed())

	q.AddAfter("2", 10*time.Millisecond)
	q.Shutdown()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 0, q.Len())

	q.AddAfter("3", time.Millisecond)
	assert.Equal(t, 0, q.Delayed())
}
