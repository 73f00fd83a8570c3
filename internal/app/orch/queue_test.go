package orch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_DoRunsInOrder(t *testing.T) {
	q := NewQueue(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = q.Run(ctx) }()

	var seen []int
	for i := 0; i < 10; i++ {
		i := i
		require.NoError(t, q.Enqueue(ctx, func(context.Context) { seen = append(seen, i) }))
	}
	require.NoError(t, q.Do(ctx, func(context.Context) error { return nil }))
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, seen)

	boom := errors.New("boom")
	assert.ErrorIs(t, q.Do(ctx, func(context.Context) error { return boom }), boom)
}

func TestQueue_ClosedAfterRun(t *testing.T) {
	q := NewQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- q.Run(ctx) }()
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	select {
	case <-q.Closed():
	case <-time.After(time.Second):
		t.Fatal("queue not closed")
	}
	assert.ErrorIs(t, q.Enqueue(context.Background(), func(context.Context) {}), ErrQueueClosed)
	assert.ErrorIs(t, q.Do(context.Background(), func(context.Context) error { return nil }), ErrQueueClosed)
}

func TestQueue_EnqueueRespectsContext(t *testing.T) {
	q := NewQueue(1)
	require.NoError(t, q.Enqueue(context.Background(), func(context.Context) {}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	// buffer full and no loop running
	assert.ErrorIs(t, q.Enqueue(ctx, func(context.Context) {}), context.DeadlineExceeded)
}
