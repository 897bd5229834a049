package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics agrupa los contadores Prometheus de la aplicación.
type Metrics struct {
	// Hits/misses por cache ("listings", "optimized", "stats")
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	ListingsCreated prometheus.Counter
	UsersRegistered prometheus.Counter
}

// New crea y registra las métricas contra el Registerer recibido.
// Se registra contra un registry propio (no el global) para poder
// construir más de un router en el mismo proceso (tests).
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "safehaven_cache_hits_total",
			Help: "Total cache hits by cache name",
		}, []string{"cache"}),

		CacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "safehaven_cache_misses_total",
			Help: "Total cache misses by cache name",
		}, []string{"cache"}),

		ListingsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "safehaven_listings_created_total",
			Help: "Total pet listings created",
		}),

		UsersRegistered: factory.NewCounter(prometheus.CounterOpts{
			Name: "safehaven_users_registered_total",
			Help: "Total users registered",
		}),
	}
}

// ObserveCache registra un hit o miss para un cache con nombre.
func (m *Metrics) ObserveCache(name string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.WithLabelValues(name).Inc()
		return
	}
	m.CacheMisses.WithLabelValues(name).Inc()
}

// IncListingsCreated suma 1 al contador de listados creados.
func (m *Metrics) IncListingsCreated() {
	if m != nil {
		m.ListingsCreated.Inc()
	}
}

// IncUsersRegistered suma 1 al contador de usuarios registrados.
func (m *Metrics) IncUsersRegistered() {
	if m != nil {
		m.UsersRegistered.Inc()
	}
}
