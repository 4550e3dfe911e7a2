// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package sender

import (
	"sync"

	"extfilter.io/worker/internal/types"
)

// FakeQueue records every enqueued order for assertions in tests.
type FakeQueue struct {
	mu     sync.Mutex
	Orders []types.InterdictionOrder
}

// NewFakeQueue builds an empty FakeQueue.
func NewFakeQueue() *FakeQueue {
	return &FakeQueue{}
}

// Enqueue implements Queue.
func (q *FakeQueue) Enqueue(order types.InterdictionOrder) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.Orders = append(q.Orders, order)
}

// Len returns the number of orders recorded so far.
func (q *FakeQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.Orders)
}
