// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package distributor

import (
	"context"
	"io"
	"os"

	"github.com/gopacket/gopacket/pcapgo"
)

// PCAPSource replays one capture file's frames as a worker's packet
// stream, the same role cmd/flywall-sim's replay command fills for
// that binary's learning engine — a deterministic, file-backed stand
// in for the RSS-queue feed spec.md treats as an external
// collaborator (§1, §6).
type PCAPSource struct {
	r      *pcapgo.Reader
	closer io.Closer
}

// NewPCAPSource opens path and wraps it as a Source. The caller owns
// closing; call Close when the worker using this source exits.
func NewPCAPSource(path string) (*PCAPSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := pcapgo.NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &PCAPSource{r: r, closer: f}, nil
}

// PollPacket implements Source, returning the next frame in the
// capture or ok=false once the file is exhausted.
func (s *PCAPSource) PollPacket(ctx context.Context) ([]byte, bool) {
	select {
	case <-ctx.Done():
		return nil, false
	default:
	}
	data, _, err := s.r.ReadPacketData()
	if err != nil {
		return nil, false
	}
	return data, true
}

// Close releases the underlying file.
func (s *PCAPSource) Close() error {
	return s.closer.Close()
}
