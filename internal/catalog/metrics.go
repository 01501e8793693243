package catalog

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts cache hits, misses and failed fetches per catalog.
type Metrics struct {
	Hits        *prometheus.CounterVec
	Misses      *prometheus.CounterVec
	FetchErrors *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them with reg when it is
// non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stratum", Subsystem: "catalog", Name: "hits_total",
			Help: "Catalog loads served from the local cache.",
		}, []string{"catalog"}),
		Misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stratum", Subsystem: "catalog", Name: "misses_total",
			Help: "Catalog loads that required a remote fetch.",
		}, []string{"catalog"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stratum", Subsystem: "catalog", Name: "fetch_errors_total",
			Help: "Remote catalog fetches that failed.",
		}, []string{"catalog"}),
	}
	if reg != nil {
		reg.MustRegister(m.Hits, m.Misses, m.FetchErrors)
	}
	return m
}

func (m *Metrics) hit(key string) {
	if m != nil {
		m.Hits.WithLabelValues(key).Inc()
	}
}

func (m *Metrics) miss(key string) {
	if m != nil {
		m.Misses.WithLabelValues(key).Inc()
	}
}

func (m *Metrics) fetchError(key string) {
	if m != nil {
		m.FetchErrors.WithLabelValues(key).Inc()
	}
}
