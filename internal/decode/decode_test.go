// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package decode

import (
	"net"
	"net/netip"
	"testing"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"extfilter.io/worker/internal/types"
)

func buildIPv4TCP(t *testing.T, vlan bool, payload []byte) []byte {
	t.Helper()

	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 1},
		DstMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 2},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    net.IPv4(192, 0, 2, 10).To4(),
		DstIP:    net.IPv4(198, 51, 100, 20).To4(),
	}
	tcp := &layers.TCP{
		SrcPort: 51000,
		DstPort: 80,
		Seq:     1000,
		Ack:     2000,
		PSH:     true,
		ACK:     true,
		Window:  65535,
	}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))

	buf := gopacket.NewSerializeBuffer()
	sopts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}

	var layerList []gopacket.SerializableLayer
	layerList = append(layerList, eth)
	if vlan {
		eth.EthernetType = layers.EthernetTypeDot1Q
		dot1q := &layers.Dot1Q{VLANIdentifier: 100, Type: layers.EthernetTypeIPv4}
		layerList = append(layerList, dot1q)
	}
	layerList = append(layerList, ip, tcp, gopacket.Payload(payload))

	require.NoError(t, gopacket.SerializeLayers(buf, sopts, layerList...))
	return buf.Bytes()
}

func buildIPv6TCP(t *testing.T, payload []byte) []byte {
	t.Helper()

	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 1},
		DstMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 2},
		EthernetType: layers.EthernetTypeIPv6,
	}
	ip := &layers.IPv6{
		Version:    6,
		HopLimit:   64,
		NextHeader: layers.IPProtocolTCP,
		SrcIP:      net.ParseIP("2001:db8::10"),
		DstIP:      net.ParseIP("2001:db8::20"),
	}
	tcp := &layers.TCP{
		SrcPort: 51000,
		DstPort: 443,
		Seq:     500,
		Ack:     700,
		PSH:     true,
		ACK:     true,
		Window:  65535,
	}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))

	buf := gopacket.NewSerializeBuffer()
	sopts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	require.NoError(t, gopacket.SerializeLayers(buf, sopts, eth, ip, tcp, gopacket.Payload(payload)))
	return buf.Bytes()
}

func TestDecode_IPv4TCPWithPayload(t *testing.T) {
	raw := buildIPv4TCP(t, false, []byte("GET / HTTP/1.1\r\n"))
	dp := Decode(raw)

	require.True(t, dp.Accepted())
	assert.Equal(t, 4, dp.IPVersion)
	assert.Equal(t, netip.MustParseAddr("192.0.2.10"), dp.SrcIP)
	assert.Equal(t, netip.MustParseAddr("198.51.100.20"), dp.DstIP)
	assert.EqualValues(t, 51000, dp.SrcPort)
	assert.EqualValues(t, 80, dp.DstPort)
	assert.Equal(t, "GET / HTTP/1.1\r\n", string(dp.Payload))
	assert.Equal(t, dp.IPTotalLen, len(dp.L3))
}

func TestDecode_VLANTaggedIPv4(t *testing.T) {
	raw := buildIPv4TCP(t, true, []byte("ping"))
	dp := Decode(raw)

	require.True(t, dp.Accepted())
	assert.Equal(t, 4, dp.IPVersion)
	assert.Equal(t, "ping", string(dp.Payload))
}

func TestDecode_IPv6TCPWithPayload(t *testing.T) {
	raw := buildIPv6TCP(t, []byte("\x16\x03\x01"))
	dp := Decode(raw)

	require.True(t, dp.Accepted())
	assert.Equal(t, 6, dp.IPVersion)
	assert.Equal(t, netip.MustParseAddr("2001:db8::10"), dp.SrcIP)
	assert.EqualValues(t, 443, dp.DstPort)
}

func TestDecode_NoPayloadIsDropped(t *testing.T) {
	raw := buildIPv4TCP(t, false, nil)
	dp := Decode(raw)

	assert.False(t, dp.Accepted())
	assert.Equal(t, types.DropNoPayload, dp.Drop)
}

func TestDecode_NonTCPIsDropped(t *testing.T) {
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 1},
		DstMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 2},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IPv4(192, 0, 2, 10).To4(),
		DstIP:    net.IPv4(198, 51, 100, 20).To4(),
	}
	udp := &layers.UDP{SrcPort: 53000, DstPort: 53}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))

	buf := gopacket.NewSerializeBuffer()
	sopts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	require.NoError(t, gopacket.SerializeLayers(buf, sopts, eth, ip, udp, gopacket.Payload("x")))

	dp := Decode(buf.Bytes())
	assert.False(t, dp.Accepted())
	assert.Equal(t, types.DropNotTCP, dp.Drop)
}

func TestDecode_NonIPEthertypeIsDropped(t *testing.T) {
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 1},
		DstMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 2},
		EthernetType: layers.EthernetTypeARP,
	}
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   []byte{0x02, 0, 0, 0, 0, 1},
		SourceProtAddress: []byte{192, 0, 2, 10},
		DstHwAddress:      []byte{0, 0, 0, 0, 0, 0},
		DstProtAddress:    []byte{198, 51, 100, 20},
	}

	buf := gopacket.NewSerializeBuffer()
	sopts := gopacket.SerializeOptions{FixLengths: true}
	require.NoError(t, gopacket.SerializeLayers(buf, sopts, eth, arp))

	dp := Decode(buf.Bytes())
	assert.False(t, dp.Accepted())
	assert.Equal(t, types.DropNotIP, dp.Drop)
}
