// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package sender defines the external order-sending collaborator
// (§1's SenderTask::queue in the original): workers enqueue
// InterdictionOrders and a separate component (outside this module's
// scope, per spec.md's Non-goals) drains them onto the wire as
// spoofed TCP segments. §5 requires this enqueue to never block a
// worker.
package sender

import "extfilter.io/worker/internal/types"

// Queue is the contract a worker enqueues orders onto.
type Queue interface {
	// Enqueue submits order for delivery. It must never block; a
	// full queue drops the order rather than stall the worker.
	Enqueue(order types.InterdictionOrder)
}
