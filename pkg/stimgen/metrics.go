package stimgen

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics exposes session counters in Prometheus format for runs long
// enough to be worth scraping. Each generator instance carries its own
// registry, so parallel invocations never collide.
type Metrics struct {
	packets *prometheus.CounterVec
	bytes   *prometheus.CounterVec
	reg     *prometheus.Registry
	srv     *http.Server
	log     *zap.Logger
}

func NewMetrics(log *zap.Logger) *Metrics {
	m := &Metrics{
		packets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stimgen_packets_sent_total",
				Help: "Packets sent by session and protocol",
			},
			[]string{"session", "protocol"},
		),
		bytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stimgen_bytes_sent_total",
				Help: "Bytes sent by session and protocol",
			},
			[]string{"session", "protocol"},
		),
		reg: prometheus.NewRegistry(),
		log: log,
	}
	m.reg.MustRegister(m.packets, m.bytes)
	return m
}

func (m *Metrics) Observe(session string, proto Protocol, n int) {
	m.packets.WithLabelValues(session, string(proto)).Inc()
	m.bytes.WithLabelValues(session, string(proto)).Add(float64(n))
}

// Start serves /metrics on addr until Close.
func (m *Metrics) Start(addr string) {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{}))
	m.srv = &http.Server{Addr: addr, Handler: r}
	m.log.Info("serving metrics", zap.String("addr", addr))
	go func() {
		if err := m.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			m.log.Error("metrics server failed", zap.Error(err))
		}
	}()
}

func (m *Metrics) Close(ctx context.Context) error {
	if m.srv == nil {
		return nil
	}
	return m.srv.Shutdown(ctx)
}
