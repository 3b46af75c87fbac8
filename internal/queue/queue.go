// Package queue holds accepted items awaiting delivery.
package queue

import (
	"sync"

	"goals_bot/internal/model"
)

// Queue is a FIFO work list safe for concurrent producers and consumers.
// An item is handed to exactly one consumer, and an id is never pending twice.
type Queue struct {
	mu      sync.Mutex
	items   []model.Item
	pending map[string]struct{}
}

// New creates an empty Queue.
func New() *Queue {
	return &Queue{pending: make(map[string]struct{})}
}

// Push appends an item without blocking. It returns false when an item with
// the same id is already waiting.
func (q *Queue) Push(item model.Item) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.pending[item.ID]; ok {
		return false
	}
	q.pending[item.ID] = struct{}{}
	q.items = append(q.items, item)
	return true
}

// Pop removes and returns the oldest item. The second result is false when
// the queue is empty.
func (q *Queue) Pop() (model.Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return model.Item{}, false
	}
	item := q.items[0]
	q.items[0] = model.Item{}
	q.items = q.items[1:]
	delete(q.pending, item.ID)
	return item, true
}

// Len returns the number of waiting items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
