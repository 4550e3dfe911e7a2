// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package sender

import (
	"extfilter.io/worker/internal/logging"
	"extfilter.io/worker/internal/types"
)

// ChannelQueue is a bounded, non-blocking Queue backed by a Go
// channel. A full channel drops the order and logs it rather than
// stall the worker that produced it — the worker's job is line-rate
// inspection, not guaranteed delivery of interdiction orders.
type ChannelQueue struct {
	orders  chan types.InterdictionOrder
	dropped func()
	log     *logging.Logger
}

// NewChannelQueue builds a ChannelQueue with the given buffer
// capacity. onDrop, if non-nil, is invoked (e.g. to bump a metric)
// whenever an order is dropped for a full queue.
func NewChannelQueue(capacity int, log *logging.Logger, onDrop func()) *ChannelQueue {
	return &ChannelQueue{
		orders:  make(chan types.InterdictionOrder, capacity),
		dropped: onDrop,
		log:     log,
	}
}

// Enqueue implements Queue.
func (q *ChannelQueue) Enqueue(order types.InterdictionOrder) {
	select {
	case q.orders <- order:
	default:
		if q.log != nil {
			q.log.Warn("interdiction order queue full, dropping order",
				"src_ip", order.SrcIP, "dst_ip", order.DstIP, "dst_port", order.DstPort)
		}
		if q.dropped != nil {
			q.dropped()
		}
	}
}

// Orders returns the receive side of the queue, for the sender-side
// component (outside this module's scope) to drain.
func (q *ChannelQueue) Orders() <-chan types.InterdictionOrder {
	return q.orders
}
