// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package distributor defines the external packet-source
// collaborator: something upstream of this module (a NIC queue, a
// ring buffer, a pcap replay) hands each per-core worker its own
// stream of raw Ethernet frames, one per RSS queue so no packet is
// ever seen by two workers (§1, §5). This module only consumes that
// stream; producing it is out of scope.
package distributor

import "context"

// Source yields raw Ethernet frames to one worker. Implementations
// must already be partitioned per worker (e.g. one RSS queue each) —
// Source itself does no load balancing.
type Source interface {
	// PollPacket blocks until a frame is available, ctx is done, or
	// the source is closed (ok is false in the last two cases).
	PollPacket(ctx context.Context) (frame []byte, ok bool)
}
