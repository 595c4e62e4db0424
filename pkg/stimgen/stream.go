package stimgen

import (
	"net"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// streamTransport models offered load through host sockets. TCP and
// HTTP units each open a fresh non-blocking socket (simulating many
// independent connection attempts); UDP units share one datagram socket
// for the session's lifetime. Connect/write outcomes are not verified:
// the unit counts as sent either way.
type streamTransport struct {
	sa    *unix.SockaddrInet4
	udpFD int
	log   *zap.Logger
}

func newStreamTransport(p Profile, log *zap.Logger) (*streamTransport, error) {
	sa := &unix.SockaddrInet4{Port: p.DstPort}
	copy(sa.Addr[:], net.ParseIP(p.DstIP).To4())

	t := &streamTransport{sa: sa, udpFD: -1, log: log}
	if p.Protocol == ProtocolUDP || p.Protocol == ProtocolMixed {
		fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
		if err != nil {
			return nil, errors.Wrap(err, "open udp socket")
		}
		t.udpFD = fd
	}
	return t, nil
}

func (t *streamTransport) Send(pkt *Packet) (int, error) {
	if pkt.Proto == ProtocolUDP {
		return t.sendDatagram(pkt.Data)
	}
	return t.sendOneShot(pkt.Data)
}

// sendOneShot is the TCP/HTTP path: non-blocking connect (EINPROGRESS
// is the expected outcome against a live target), best-effort write,
// close. The attempted byte count is returned on every path.
func (t *streamTransport) sendOneShot(data []byte) (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return len(data), &BestEffortError{Op: "socket", Err: err}
	}
	defer unix.Close(fd)

	if err := unix.Connect(fd, t.sa); err != nil && err != unix.EINPROGRESS {
		return len(data), &BestEffortError{Op: "connect", Err: err}
	}
	if _, err := unix.Write(fd, data); err != nil {
		return len(data), &BestEffortError{Op: "write", Err: err}
	}
	return len(data), nil
}

func (t *streamTransport) sendDatagram(data []byte) (int, error) {
	if err := unix.Sendto(t.udpFD, data, 0, t.sa); err != nil {
		t.log.Warn("udp send failed", zap.Error(err))
		return len(data), &BestEffortError{Op: "sendto", Err: err}
	}
	return len(data), nil
}

func (t *streamTransport) Close() error {
	if t.udpFD >= 0 {
		fd := t.udpFD
		t.udpFD = -1
		return unix.Close(fd)
	}
	return nil
}
