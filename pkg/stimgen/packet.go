package stimgen

import (
	"bytes"
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/pkg/errors"
)

const (
	httpGetRequest = "GET / HTTP/1.1\r\nHost: example.com\r\n\r\n"
	dnsQueryName   = "example.com"

	synFloodFirstPort = 80
	udpFloodPort      = 9999
	frameSrcPort      = 40000
	icmpEchoID        = 1

	payloadFiller = 'X'
)

// Packet is one unit of traffic handed to a Transport. Proto tells the
// stream transport which socket style to use; the frame transport sends
// Data as-is.
type Packet struct {
	Proto Protocol
	Data  []byte
}

// PacketFactory produces the next packet for a session. Implementations
// carry any per-send state (SYN port walk, ICMP sequence, mixed
// rotation) and advance it exactly once per call.
type PacketFactory interface {
	Next() (*Packet, error)
}

// NewPacketFactory builds the factory for a profile. Unsupported
// protocol/transport combinations fail here, before any traffic is sent.
func NewPacketFactory(p Profile) (PacketFactory, error) {
	if p.Mode() == ModeStream {
		return newStreamFactory(p)
	}
	return newFrameFactory(p)
}

// staticFactory replays one immutable template.
type staticFactory struct {
	pkt Packet
}

func (f *staticFactory) Next() (*Packet, error) {
	return &f.pkt, nil
}

// roundRobinFactory interleaves its members, advancing one position per
// call and wrapping modulo the member count.
type roundRobinFactory struct {
	members []PacketFactory
	idx     int
}

func (f *roundRobinFactory) Next() (*Packet, error) {
	pkt, err := f.members[f.idx].Next()
	f.idx = (f.idx + 1) % len(f.members)
	return pkt, err
}

// frameBuilder serializes full packets for raw injection. eth is nil
// unless the profile supplies both link-layer addresses.
type frameBuilder struct {
	srcIP net.IP
	dstIP net.IP
	eth   *layers.Ethernet
}

func newFrameBuilder(p Profile) (*frameBuilder, error) {
	b := &frameBuilder{
		srcIP: net.ParseIP(p.SrcIP).To4(),
		dstIP: net.ParseIP(p.DstIP).To4(),
	}
	if p.Mode() == ModeFrameL2 {
		srcMAC, err := net.ParseMAC(p.SrcMAC)
		if err != nil {
			return nil, errors.Wrap(err, "parse source MAC")
		}
		dstMAC, err := net.ParseMAC(p.DstMAC)
		if err != nil {
			return nil, errors.Wrap(err, "parse destination MAC")
		}
		b.eth = &layers.Ethernet{
			SrcMAC:       srcMAC,
			DstMAC:       dstMAC,
			EthernetType: layers.EthernetTypeIPv4,
		}
	}
	return b, nil
}

func (b *frameBuilder) ipv4(proto layers.IPProtocol) *layers.IPv4 {
	return &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		SrcIP:    b.srcIP,
		DstIP:    b.dstIP,
		Protocol: proto,
	}
}

func (b *frameBuilder) serialize(ls ...gopacket.SerializableLayer) ([]byte, error) {
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	stack := ls
	if b.eth != nil {
		stack = append([]gopacket.SerializableLayer{b.eth}, ls...)
	}
	if err := gopacket.SerializeLayers(buf, opts, stack...); err != nil {
		return nil, errors.Wrap(err, "serialize frame")
	}
	return buf.Bytes(), nil
}

func (b *frameBuilder) buildHTTP() ([]byte, error) {
	ip := b.ipv4(layers.IPProtocolTCP)
	tcp := &layers.TCP{
		SrcPort: frameSrcPort,
		DstPort: 80,
		PSH:     true,
		ACK:     true,
		Window:  64240,
	}
	if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
		return nil, errors.Wrap(err, "tcp checksum context")
	}
	return b.serialize(ip, tcp, gopacket.Payload(httpGetRequest))
}

func (b *frameBuilder) buildDNS() ([]byte, error) {
	ip := b.ipv4(layers.IPProtocolUDP)
	udp := &layers.UDP{
		SrcPort: frameSrcPort,
		DstPort: 53,
	}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		return nil, errors.Wrap(err, "udp checksum context")
	}
	dns := &layers.DNS{
		RD: true,
		Questions: []layers.DNSQuestion{{
			Name:  []byte(dnsQueryName),
			Type:  layers.DNSTypeA,
			Class: layers.DNSClassIN,
		}},
	}
	return b.serialize(ip, udp, dns)
}

func (b *frameBuilder) buildSYN(port uint16) ([]byte, error) {
	ip := b.ipv4(layers.IPProtocolTCP)
	tcp := &layers.TCP{
		SrcPort: frameSrcPort,
		DstPort: layers.TCPPort(port),
		SYN:     true,
		Window:  64240,
	}
	if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
		return nil, errors.Wrap(err, "tcp checksum context")
	}
	return b.serialize(ip, tcp)
}

func (b *frameBuilder) buildICMP(seq uint16) ([]byte, error) {
	ip := b.ipv4(layers.IPProtocolICMPv4)
	icmp := &layers.ICMPv4{
		TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0),
		Id:       icmpEchoID,
		Seq:      seq,
	}
	return b.serialize(ip, icmp)
}

func (b *frameBuilder) buildUDPFlood(size int, port uint16) ([]byte, error) {
	ip := b.ipv4(layers.IPProtocolUDP)
	udp := &layers.UDP{
		SrcPort: frameSrcPort,
		DstPort: layers.UDPPort(port),
	}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		return nil, errors.Wrap(err, "udp checksum context")
	}
	return b.serialize(ip, udp, gopacket.Payload(fillerPayload(size)))
}

// synFloodFactory rebuilds the segment each send so the destination
// port can walk 80, 81, ... 65535 and wrap back to 1, never 0.
type synFloodFactory struct {
	builder *frameBuilder
	port    uint16
}

func (f *synFloodFactory) Next() (*Packet, error) {
	data, err := f.builder.buildSYN(f.port)
	if err != nil {
		return nil, err
	}
	f.port = nextSynPort(f.port)
	return &Packet{Proto: ProtocolTCP, Data: data}, nil
}

func nextSynPort(p uint16) uint16 {
	return p%65535 + 1
}

// icmpFactory rebuilds the echo request each send with a gapless
// sequence starting at 0.
type icmpFactory struct {
	builder *frameBuilder
	seq     uint16
}

func (f *icmpFactory) Next() (*Packet, error) {
	data, err := f.builder.buildICMP(f.seq)
	if err != nil {
		return nil, err
	}
	f.seq++
	return &Packet{Proto: ProtocolICMP, Data: data}, nil
}

func newFrameFactory(p Profile) (PacketFactory, error) {
	b, err := newFrameBuilder(p)
	if err != nil {
		return nil, err
	}

	staticOf := func(proto Protocol, build func() ([]byte, error)) (*staticFactory, error) {
		data, err := build()
		if err != nil {
			return nil, err
		}
		return &staticFactory{pkt: Packet{Proto: proto, Data: data}}, nil
	}

	switch p.Protocol {
	case ProtocolHTTP:
		return staticOf(ProtocolHTTP, b.buildHTTP)
	case ProtocolDNS:
		return staticOf(ProtocolDNS, b.buildDNS)
	case ProtocolTCP:
		return &synFloodFactory{builder: b, port: synFloodFirstPort}, nil
	case ProtocolICMP:
		return &icmpFactory{builder: b}, nil
	case ProtocolUDP:
		port := uint16(udpFloodPort)
		if p.DstPort != 0 {
			port = uint16(p.DstPort)
		}
		return staticOf(ProtocolUDP, func() ([]byte, error) { return b.buildUDPFlood(p.PayloadSize, port) })
	case ProtocolMixed:
		// Fixed rotation order: http, dns, icmp. The ICMP member is a
		// reused template, so its sequence stays at 0.
		httpF, err := staticOf(ProtocolHTTP, b.buildHTTP)
		if err != nil {
			return nil, err
		}
		dnsF, err := staticOf(ProtocolDNS, b.buildDNS)
		if err != nil {
			return nil, err
		}
		icmpF, err := staticOf(ProtocolICMP, func() ([]byte, error) { return b.buildICMP(0) })
		if err != nil {
			return nil, err
		}
		return &roundRobinFactory{members: []PacketFactory{httpF, dnsF, icmpF}}, nil
	default:
		return nil, &ConfigError{Reason: fmt.Sprintf("unknown protocol %q", p.Protocol)}
	}
}

func newStreamFactory(p Profile) (PacketFactory, error) {
	filler := fillerPayload(p.PayloadSize)
	switch p.Protocol {
	case ProtocolTCP:
		return &staticFactory{pkt: Packet{Proto: ProtocolTCP, Data: filler}}, nil
	case ProtocolUDP:
		return &staticFactory{pkt: Packet{Proto: ProtocolUDP, Data: filler}}, nil
	case ProtocolHTTP:
		return &staticFactory{pkt: Packet{Proto: ProtocolHTTP, Data: httpPostRequest(p.DstIP, p.PayloadSize)}}, nil
	case ProtocolMixed:
		// Fixed rotation order: udp, tcp.
		return &roundRobinFactory{members: []PacketFactory{
			&staticFactory{pkt: Packet{Proto: ProtocolUDP, Data: filler}},
			&staticFactory{pkt: Packet{Proto: ProtocolTCP, Data: filler}},
		}}, nil
	default:
		return nil, &ConfigError{Reason: fmt.Sprintf("protocol %q is not supported by the stream transport", p.Protocol)}
	}
}

func fillerPayload(size int) []byte {
	return bytes.Repeat([]byte{payloadFiller}, size)
}

// httpPostRequest mirrors the offered-load shape of the flood payloads:
// a POST whose body carries payloadSize filler bytes.
func httpPostRequest(host string, payloadSize int) []byte {
	head := fmt.Sprintf("POST / HTTP/1.1\r\nHost: %s\r\nContent-Length: %d\r\nConnection: close\r\n\r\n", host, payloadSize)
	return append([]byte(head), fillerPayload(payloadSize)...)
}
