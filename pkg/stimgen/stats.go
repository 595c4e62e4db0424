package stimgen

import (
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/message"
)

// Snapshot is a point-in-time view of a session's throughput.
type Snapshot struct {
	Packets uint64
	Bytes   uint64
	Elapsed time.Duration
	PPS     float64
	Mbps    float64
}

// Collector accumulates per-session counters and emits periodic and
// final stat lines. Counters only ever grow. Not safe for concurrent
// use; each session owns exactly one collector.
type Collector struct {
	log     *zap.Logger
	printer *message.Printer
	metrics *Metrics
	session string
	every   uint64

	packets uint64
	bytes   uint64
	start   time.Time
}

// reportInterval keeps reporting frequency roughly comparable across
// protocols with very different natural rates.
func reportInterval(p Protocol) uint64 {
	switch p {
	case ProtocolICMP:
		return 10
	case ProtocolDNS:
		return 50
	default:
		return 100
	}
}

func NewCollector(log *zap.Logger, proto Protocol, session string, metrics *Metrics) *Collector {
	return &Collector{
		log:     log,
		printer: message.NewPrinter(message.MatchLanguage("en")),
		metrics: metrics,
		session: session,
		every:   reportInterval(proto),
		start:   time.Now(),
	}
}

// Record accounts one attempted send of n bytes.
func (c *Collector) Record(proto Protocol, n int) {
	c.packets++
	c.bytes += uint64(n)
	if c.metrics != nil {
		c.metrics.Observe(c.session, proto, n)
	}
	if c.packets%c.every == 0 {
		c.report()
	}
}

// Snapshot derives the rate metrics. Both rates are zero while no time
// has elapsed.
func (c *Collector) Snapshot() Snapshot {
	s := Snapshot{
		Packets: c.packets,
		Bytes:   c.bytes,
		Elapsed: time.Since(c.start),
	}
	if sec := s.Elapsed.Seconds(); sec > 0 {
		s.PPS = float64(s.Packets) / sec
		s.Mbps = float64(s.Bytes*8) / (1024 * 1024 * sec)
	}
	return s
}

func (c *Collector) report() {
	s := c.Snapshot()
	c.log.Info(c.printer.Sprintf("Stats: %d packets, %d bytes, %.2f pps, %.2f Mbps", s.Packets, s.Bytes, s.PPS, s.Mbps))
}

// Final emits the closing stat line and returns the snapshot. Called
// exactly once per session, on every exit path.
func (c *Collector) Final() Snapshot {
	c.report()
	return c.Snapshot()
}
