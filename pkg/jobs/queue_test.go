package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	done := make(chan string, 2)
	q := NewQueue("test", func(_ context.Context, job Job) error {
		done <- job.ID
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "a"}))
	require.NoError(t, q.Enqueue(Job{ID: "b"}))

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case id := <-done:
			seen[id] = true
		case <-time.After(time.Second):
			t.Fatal("job not processed")
		}
	}
	assert.True(t, seen["a"] && seen["b"])
}

func TestQueueRetriesThenReportsExhaustion(t *testing.T) {
	var calls int32
	exhausted := make(chan Job, 1)
	q := NewQueue("retry", func(context.Context, Job) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("boom")
	}, QueueConfig{
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		OnExhausted: func(_ context.Context, job Job, err error) {
			exhausted <- job
		},
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "x"}))

	select {
	case job := <-exhausted:
		assert.Equal(t, "x", job.ID)
		assert.Equal(t, 3, job.Attempt)
		assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
	case <-time.After(2 * time.Second):
		t.Fatal("exhaustion callback not invoked")
	}
}

func TestEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("idle", func(context.Context, Job) error { return nil }, QueueConfig{})

	err := q.Enqueue(Job{ID: "x"})
	assert.ErrorIs(t, err, ErrQueueStopped)
}

func TestBackoffIsCapped(t *testing.T) {
	q := NewQueue("b", nil, QueueConfig{RetryDelay: time.Second, MaxRetryDelay: 3 * time.Second})

	assert.Equal(t, time.Second, q.backoff(1))
	assert.Equal(t, 2*time.Second, q.backoff(2))
	assert.Equal(t, 3*time.Second, q.backoff(3))
	assert.Equal(t, 3*time.Second, q.backoff(6))
}

func TestQueuePendingCountsBufferedJobs(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	q := NewQueue("depth", func(context.Context, Job) error {
		started <- struct{}{}
		<-release
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 4})
	assert.Equal(t, 0, q.Pending())
	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job{ID: "a"}))
	<-started
	require.NoError(t, q.Enqueue(Job{ID: "b"}))
	require.NoError(t, q.Enqueue(Job{ID: "c"}))
	assert.Equal(t, 2, q.Pending())

	close(release)
	q.Stop()
}
