package stimgen

import (
	"go.uber.org/zap"
)

// Transport delivers one unit of traffic and reports the bytes
// attempted. Send never blocks beyond the underlying syscall; failures
// that are part of the offered-load model come back as *BestEffortError
// with the attempted byte count intact.
type Transport interface {
	Send(pkt *Packet) (int, error)
	Close() error
}

// NewTransport selects the strategy from the profile's addressing:
// link-layer or raw-IP injection for frame mode, host sockets otherwise.
func NewTransport(p Profile, log *zap.Logger) (Transport, error) {
	if p.Mode() == ModeStream {
		return newStreamTransport(p, log)
	}
	return newFrameTransport(p, log)
}
