package inbound

import "sync"

// Queue is an unbounded in-memory FIFO decoupling the broker's push
// callback from transactional ingestion. Safe for concurrent push/pop;
// provides no durability across restarts.
type Queue struct {
	mu    sync.Mutex
	items [][]byte
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Push(payload []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, payload)
}

func (q *Queue) Poll() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
