package stimgen

import (
	"net"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// frameTransport injects fully-formed packets below the socket stack:
// AF_PACKET on the configured interface when the profile carries
// link-layer addresses, a raw IPv4 socket otherwise. Requires
// CAP_NET_RAW; the privilege check happens here, before the session
// loop starts.
type frameTransport struct {
	fd  int
	sa  unix.Sockaddr
	log *zap.Logger
}

func newFrameTransport(p Profile, log *zap.Logger) (*frameTransport, error) {
	if p.Mode() == ModeFrameL2 {
		return newLinkLayerTransport(p, log)
	}
	return newRawIPTransport(p, log)
}

func newLinkLayerTransport(p Profile, log *zap.Logger) (*frameTransport, error) {
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW|unix.SOCK_CLOEXEC, int(htons(unix.ETH_P_ALL)))
	if err != nil {
		if err == unix.EPERM || err == unix.EACCES {
			return nil, &PrivilegeError{Op: "open packet socket", Err: err}
		}
		return nil, errors.Wrap(err, "open packet socket")
	}

	ifi, err := net.InterfaceByName(p.Device)
	if err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(err, "lookup interface %s", p.Device)
	}
	dstMAC, err := net.ParseMAC(p.DstMAC)
	if err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "parse destination MAC")
	}

	sa := &unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_ALL),
		Ifindex:  ifi.Index,
		Halen:    uint8(len(dstMAC)),
	}
	copy(sa.Addr[:], dstMAC)

	return &frameTransport{fd: fd, sa: sa, log: log}, nil
}

func newRawIPTransport(p Profile, log *zap.Logger) (*frameTransport, error) {
	// IPPROTO_RAW implies IP_HDRINCL: the serialized IPv4 header is
	// taken from the packet data.
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.IPPROTO_RAW)
	if err != nil {
		if err == unix.EPERM || err == unix.EACCES {
			return nil, &PrivilegeError{Op: "open raw socket", Err: err}
		}
		return nil, errors.Wrap(err, "open raw socket")
	}
	if err := unix.SetsockoptString(fd, unix.SOL_SOCKET, unix.SO_BINDTODEVICE, p.Device); err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(err, "bind raw socket to %s", p.Device)
	}

	sa := &unix.SockaddrInet4{}
	copy(sa.Addr[:], net.ParseIP(p.DstIP).To4())

	return &frameTransport{fd: fd, sa: sa, log: log}, nil
}

// Send reports the bytes attempted even on failure; a failed injection
// is logged by the session and the loop continues.
func (t *frameTransport) Send(pkt *Packet) (int, error) {
	if err := unix.Sendto(t.fd, pkt.Data, 0, t.sa); err != nil {
		return len(pkt.Data), errors.Wrap(err, "inject frame")
	}
	return len(pkt.Data), nil
}

func (t *frameTransport) Close() error {
	return unix.Close(t.fd)
}

func htons(v uint16) uint16 {
	return v<<8 | v>>8
}
