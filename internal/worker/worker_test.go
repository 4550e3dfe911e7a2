// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package worker

import (
	"context"
	"net"
	"net/netip"
	"testing"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"extfilter.io/worker/internal/clock"
	"extfilter.io/worker/internal/distributor"
	"extfilter.io/worker/internal/dpi"
	"extfilter.io/worker/internal/flowtable"
	"extfilter.io/worker/internal/logging"
	"extfilter.io/worker/internal/ruleset"
	"extfilter.io/worker/internal/sender"
	"extfilter.io/worker/internal/stats"
	"extfilter.io/worker/internal/types"
)

func vlanHTTPGet(t *testing.T, host string) []byte {
	t.Helper()

	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 0x0B},
		DstMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 0x0A},
		EthernetType: layers.EthernetTypeDot1Q,
	}
	dot1q := &layers.Dot1Q{VLANIdentifier: 10, Type: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{
		Version: 4, IHL: 5, TTL: 64, Protocol: layers.IPProtocolTCP,
		SrcIP: net.IPv4(10, 0, 0, 2).To4(), DstIP: net.IPv4(10, 0, 0, 3).To4(),
	}
	tcp := &layers.TCP{SrcPort: 40000, DstPort: 80, Seq: 1000, Ack: 2000, PSH: true, ACK: true, Window: 65535}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))

	payload := []byte("GET /index.html HTTP/1.1\r\nHost: " + host + "\r\n\r\n")

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, dot1q, ip, tcp, gopacket.Payload(payload)))
	return buf.Bytes()
}

func newTestWorker(t *testing.T, frames [][]byte, engine *dpi.FakeEngine, hashCap int) (*Worker, *sender.FakeQueue, *ruleset.BlocklistConfig) {
	t.Helper()

	tables, err := flowtable.NewTables(hashCap, dpi.NewAllocator(engine), logging.New(logging.DefaultConfig()))
	require.NoError(t, err)

	rules := ruleset.NewBlocklistConfig(ruleset.Flags{HTTPRedirect: true, AddParamType: ruleset.AddParamID})
	st := stats.NewMetrics().NewThreadStats(t.Name())
	fakeQueue := sender.NewFakeQueue()

	cfg := Config{
		ID:              "worker-test",
		HashCapacity:    hashCap,
		FlowIdleNanos:   1_000_000_000,
		GCIntervalNanos: 1_000_000,
		GCBudget:        flowtable.GCBudget(hashCap, 1000, 60),
		TCPProto:        6,
	}

	w := New(cfg, distributor.NewFakeSource(frames), fakeQueue, clock.NewFake(1), tables,
		dpi.NewDriver(engine), rules, st, logging.New(logging.DefaultConfig()))
	return w, fakeQueue, rules
}

func TestWorker_VLANTaggedHTTPRedirectToBlockedDomain(t *testing.T) {
	frame := vlanHTTPGet(t, "bad.example")
	engine := dpi.NewFakeEngine()

	w, queue, rules := newTestWorker(t, [][]byte{frame}, engine, 1024)

	rules.URLDomains.Swap([]ruleset.Entry[ruleset.URLMeta]{
		{Pattern: "bad.example", Meta: ruleset.URLMeta{Type: ruleset.EntryDomain, LineNo: 42}},
	})

	fs := &dpi.FakeFlowState{}
	fs.SetHTTP(dpi.HTTPInfo{Method: "GET", URL: "http://bad.example/index.html"})
	engine.Scripts[fs] = []types.DetectedProtocol{{App: types.ProtoHTTP}}
	engine.FlowStateOverride = fs

	w.Run(context.Background())

	require.Equal(t, 1, queue.Len())
	order := queue.Orders[0]
	assert.True(t, order.PSHFlag)
	assert.Equal(t, "id=42", order.ExtraParam)
	assert.EqualValues(t, 80, order.DstPort)
}

func TestWorker_FragmentedIPv4IsDroppedWithNoFlowOrOrder(t *testing.T) {
	eth := &layers.Ethernet{
		SrcMAC: net.HardwareAddr{0x02, 0, 0, 0, 0, 1}, DstMAC: net.HardwareAddr{0x02, 0, 0, 0, 0, 2},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version: 4, IHL: 5, TTL: 64, Protocol: layers.IPProtocolTCP,
		SrcIP: net.IPv4(10, 0, 0, 2).To4(), DstIP: net.IPv4(10, 0, 0, 3).To4(),
		Flags: layers.IPv4MoreFragments,
	}
	tcp := &layers.TCP{SrcPort: 1, DstPort: 2, Seq: 1, Ack: 1}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, tcp, gopacket.Payload([]byte("x"))))

	engine := dpi.NewFakeEngine()
	w, queue, _ := newTestWorker(t, [][]byte{buf.Bytes()}, engine, 1024)

	w.Run(context.Background())

	assert.Equal(t, 0, queue.Len())
	v4, v6, total := w.tables.Counts()
	assert.Zero(t, v4)
	assert.Zero(t, v6)
	assert.Zero(t, total)
}

func TestWorker_IPPortGateShortCircuitsBeforeFlowCreation(t *testing.T) {
	dst := netip.MustParseAddr("10.0.0.3")
	eth := &layers.Ethernet{
		SrcMAC: net.HardwareAddr{0x02, 0, 0, 0, 0, 1}, DstMAC: net.HardwareAddr{0x02, 0, 0, 0, 0, 2},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version: 4, IHL: 5, TTL: 64, Protocol: layers.IPProtocolTCP,
		SrcIP: net.IPv4(10, 0, 0, 2).To4(), DstIP: net.IPv4(10, 0, 0, 3).To4(),
	}
	tcp := &layers.TCP{SrcPort: 1111, DstPort: 443, Seq: 1, Ack: 1}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, tcp, gopacket.Payload([]byte("hi"))))

	engine := dpi.NewFakeEngine()
	w, queue, rules := newTestWorker(t, [][]byte{buf.Bytes()}, engine, 1024)
	rules.IPPortMap.Swap(map[netip.Addr][]uint16{dst: nil})

	w.Run(context.Background())

	require.Equal(t, 1, queue.Len())
	assert.True(t, queue.Orders[0].IsRST)
	_, _, total := w.tables.Counts()
	assert.Zero(t, total, "gate match must short-circuit before a flow is created")
}
