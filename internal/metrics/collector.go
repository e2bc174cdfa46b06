package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// StatsSource reports the current size of the tracker stores.
type StatsSource interface {
	Stats() (tokens, users int)
}

// Collector records tracker operations for Prometheus.
type Collector struct {
	operations *prometheus.CounterVec
}

// NewCollector registers the tracker collectors on reg.
func NewCollector(reg prometheus.Registerer, stats StatsSource) *Collector {
	c := &Collector{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tokenfolio",
			Name:      "operations_total",
			Help:      "Tracker operations by name and result.",
		}, []string{"operation", "result"}),
	}

	tokens := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "tokenfolio",
		Name:      "tokens",
		Help:      "Number of tokens in the price registry.",
	}, func() float64 {
		n, _ := stats.Stats()
		return float64(n)
	})
	users := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "tokenfolio",
		Name:      "users",
		Help:      "Number of users with a balance ledger.",
	}, func() float64 {
		_, n := stats.Stats()
		return float64(n)
	})

	reg.MustRegister(c.operations, tokens, users)
	return c
}

// Observe counts one operation. A nil Collector is a no-op.
func (c *Collector) Observe(operation string, err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.operations.WithLabelValues(operation, result).Inc()
}
