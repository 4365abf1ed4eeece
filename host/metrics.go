package host

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metrics are always recorded; they are exported only when a registerer is
// configured with WithMetrics.
type metrics struct {
	frames       *prometheus.CounterVec
	frameGas     *prometheus.HistogramVec
	transactions *prometheus.CounterVec
	txDuration   *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledgerhost",
			Subsystem: "dispatcher",
			Name:      "frames_total",
			Help:      "Call frames settled, segmented by runtime kind and outcome code.",
		}, []string{"kind", "outcome"}),
		frameGas: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ledgerhost",
			Subsystem: "dispatcher",
			Name:      "frame_gas_used",
			Help:      "Gas consumed per call frame.",
			Buckets:   prometheus.ExponentialBuckets(100, 4, 10),
		}, []string{"kind"}),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledgerhost",
			Subsystem: "executor",
			Name:      "transactions_total",
			Help:      "Top-level transactions by entry point and outcome.",
		}, []string{"entry", "outcome"}),
		txDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ledgerhost",
			Subsystem: "executor",
			Name:      "transaction_duration_seconds",
			Help:      "Latency distribution for top-level transactions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"entry"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.frames, m.frameGas, m.transactions, m.txDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func outcome(success bool, code string) string {
	if success {
		return "ok"
	}
	if code == "" {
		return "unknown"
	}
	return code
}

func (m *metrics) observeFrame(kind string, success bool, code string, gasUsed uint64) {
	if kind == "" {
		kind = "none"
	}
	m.frames.WithLabelValues(kind, outcome(success, code)).Inc()
	m.frameGas.WithLabelValues(kind).Observe(float64(gasUsed))
}

func (m *metrics) observeTx(entry string, success bool, code string, seconds float64) {
	m.transactions.WithLabelValues(entry, outcome(success, code)).Inc()
	m.txDuration.WithLabelValues(entry).Observe(seconds)
}
