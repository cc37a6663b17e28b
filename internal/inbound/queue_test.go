package inbound

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue()

	_, ok := q.Poll()
	assert.False(t, ok, "empty queue should not yield an item")

	q.Push([]byte("first"))
	q.Push([]byte("second"))
	q.Push([]byte("third"))
	require.Equal(t, 3, q.Len())

	for _, want := range []string{"first", "second", "third"} {
		item, ok := q.Poll()
		require.True(t, ok)
		assert.Equal(t, want, string(item))
	}

	_, ok = q.Poll()
	assert.False(t, ok)
	assert.Equal(t, 0, q.Len())
}

func TestQueueConcurrentPushPop(t *testing.T) {
	q := NewQueue()

	const producers = 8
	const perProducer = 200

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push([]byte(fmt.Sprintf("p%d-%d", p, i)))
			}
		}(p)
	}
	wg.Wait()

	seen := 0
	for {
		_, ok := q.Poll()
		if !ok {
			break
		}
		seen++
	}
	assert.Equal(t, producers*perProducer, seen)
}
