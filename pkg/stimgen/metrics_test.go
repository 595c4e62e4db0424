package stimgen

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
)

func TestMetricsObserve(t *testing.T) {
	m := NewMetrics(zap.NewNop())
	m.Observe("s1", ProtocolUDP, 1024)
	m.Observe("s1", ProtocolUDP, 1024)
	m.Observe("s1", ProtocolTCP, 64)

	if got := testutil.ToFloat64(m.packets.WithLabelValues("s1", "udp")); got != 2 {
		t.Fatalf("udp packets = %f, want 2", got)
	}
	if got := testutil.ToFloat64(m.bytes.WithLabelValues("s1", "udp")); got != 2048 {
		t.Fatalf("udp bytes = %f, want 2048", got)
	}
	if got := testutil.ToFloat64(m.packets.WithLabelValues("s1", "tcp")); got != 1 {
		t.Fatalf("tcp packets = %f, want 1", got)
	}
}

func TestCollectorFeedsMetrics(t *testing.T) {
	m := NewMetrics(zap.NewNop())
	c := NewCollector(zap.NewNop(), ProtocolUDP, "sess", m)
	for i := 0; i < 5; i++ {
		c.Record(ProtocolUDP, 100)
	}
	if got := testutil.ToFloat64(m.bytes.WithLabelValues("sess", "udp")); got != 500 {
		t.Fatalf("bytes = %f, want 500", got)
	}
}
