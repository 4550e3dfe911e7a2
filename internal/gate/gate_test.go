// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package gate

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"extfilter.io/worker/internal/ruleset"
	"extfilter.io/worker/internal/types"
)

func TestCheck_MatchesAnyPort(t *testing.T) {
	dst := netip.MustParseAddr("198.51.100.20")
	m := ruleset.NewIPPortMap(map[netip.Addr][]uint16{dst: nil})

	dp := types.DecodedPacket{
		SrcIP: netip.MustParseAddr("192.0.2.10"), SrcPort: 51000,
		DstIP: dst, DstPort: 443,
		Seq: 1000, Ack: 2000,
	}

	res := Check(m, dp)
	require.True(t, res.Matched)
	assert.False(t, res.Skipped)
	assert.True(t, res.Order.IsRST)
	assert.Equal(t, dst, res.Order.DstIP)
}

func TestCheck_MatchesSpecificPortOnly(t *testing.T) {
	dst := netip.MustParseAddr("198.51.100.20")
	m := ruleset.NewIPPortMap(map[netip.Addr][]uint16{dst: {80}})

	blocked := types.DecodedPacket{DstIP: dst, DstPort: 80}
	allowed := types.DecodedPacket{DstIP: dst, DstPort: 443}

	assert.True(t, Check(m, blocked).Matched)
	assert.False(t, Check(m, allowed).Matched)
}

func TestCheck_NoEntryNoMatch(t *testing.T) {
	m := ruleset.NewIPPortMap(nil)
	dp := types.DecodedPacket{DstIP: netip.MustParseAddr("198.51.100.20"), DstPort: 80}

	res := Check(m, dp)
	assert.False(t, res.Matched)
	assert.False(t, res.Skipped)
}
