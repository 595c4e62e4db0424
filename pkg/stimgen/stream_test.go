package stimgen

import (
	"errors"
	"net"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestStreamTransportUDPDelivery(t *testing.T) {
	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	p := validStreamProfile()
	p.DstIP = "127.0.0.1"
	p.DstPort = conn.LocalAddr().(*net.UDPAddr).Port
	tr, err := newStreamTransport(p, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer tr.Close()

	payload := fillerPayload(128)
	n, err := tr.Send(&Packet{Proto: ProtocolUDP, Data: payload})
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if n != len(payload) {
		t.Fatalf("Send() = %d bytes, want %d", n, len(payload))
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 256)
	rn, _, err := conn.ReadFrom(buf)
	if err != nil {
		t.Fatalf("datagram not received: %v", err)
	}
	if rn != len(payload) {
		t.Fatalf("received %d bytes, want %d", rn, len(payload))
	}
}

func TestStreamTransportTCPBestEffort(t *testing.T) {
	// Reserve a port with no listener behind it.
	l, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()

	p := validStreamProfile()
	p.DstIP = "127.0.0.1"
	p.DstPort = port
	p.Protocol = ProtocolTCP
	tr, err := newStreamTransport(p, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer tr.Close()

	payload := fillerPayload(64)
	n, err := tr.Send(&Packet{Proto: ProtocolTCP, Data: payload})
	if n != len(payload) {
		t.Fatalf("Send() = %d bytes, want attempted length %d", n, len(payload))
	}
	if err != nil {
		var be *BestEffortError
		if !errors.As(err, &be) {
			t.Fatalf("Send() error %v, want *BestEffortError", err)
		}
	}
}

func TestStreamTransportCloseIdempotent(t *testing.T) {
	p := validStreamProfile()
	p.DstIP = "127.0.0.1"
	tr, err := newStreamTransport(p, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("first Close() error: %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("second Close() error: %v", err)
	}
}
