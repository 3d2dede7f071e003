package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the service level metrics
type Recorder struct {
	TransactionsCreated *prometheus.CounterVec
	AllocationRetries   *prometheus.CounterVec
	ListCacheLookups    *prometheus.CounterVec
}

// New registers the metrics on reg. Pass prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		TransactionsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cmm",
			Name:      "transactions_created_total",
			Help:      "Transactions created, by class.",
		}, []string{"class"}),
		AllocationRetries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cmm",
			Name:      "id_allocation_retries_total",
			Help:      "Creations retried after a duplicate transaction id.",
		}, []string{"class"}),
		ListCacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cmm",
			Name:      "list_cache_lookups_total",
			Help:      "Full list cache lookups, by class and result.",
		}, []string{"class", "result"}),
	}
}
