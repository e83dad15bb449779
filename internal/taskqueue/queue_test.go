package taskqueue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDrainFIFO(t *testing.T) {
	q := New()
	var got []int
	for i := 0; i < 5; i++ {
		q.Enqueue(TaskFunc(func() { got = append(got, i) }))
	}
	assert.Equal(t, 5, q.Len())
	assert.Equal(t, 5, q.Drain())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
	assert.Equal(t, 0, q.Drain())
}

func TestEnqueueDuringDrainWaitsForNextFrame(t *testing.T) {
	q := New()
	ran := 0
	q.Enqueue(TaskFunc(func() {
		ran++
		q.Enqueue(TaskFunc(func() { ran++ }))
	}))
	assert.Equal(t, 1, q.Drain())
	assert.Equal(t, 1, ran)
	assert.Equal(t, 1, q.Len())
	assert.Equal(t, 1, q.Drain())
	assert.Equal(t, 2, ran)
}

func TestConcurrentProducers(t *testing.T) {
	q := New()
	var mu sync.Mutex
	perProducer := make(map[int][]int)

	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				q.Enqueue(TaskFunc(func() {
					mu.Lock()
					perProducer[p] = append(perProducer[p], i)
					mu.Unlock()
				}))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 200, q.Drain())
	for p := 0; p < 4; p++ {
		seq := perProducer[p]
		assert.Len(t, seq, 50)
		for i, v := range seq {
			assert.Equal(t, i, v, "tasks from one producer keep their order")
		}
	}
}

func TestReadySignalled(t *testing.T) {
	q := New()
	q.Enqueue(TaskFunc(func() {}))
	q.Enqueue(TaskFunc(func() {}))
	select {
	case <-q.Ready():
	default:
		t.Fatal("Ready not signalled after Enqueue")
	}
}

var _ Enqueuer = (*Queue)(nil)
