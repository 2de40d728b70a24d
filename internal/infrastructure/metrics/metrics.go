package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Distribution metrics
	DistributionsSettled prometheus.Counter
	DistributionDuration prometheus.Histogram
	DistributionErrors   *prometheus.CounterVec
	PoolAmount           prometheus.Histogram
	EarningAmount        prometheus.Histogram

	// Wallet metrics
	WalletOperations *prometheus.CounterVec
	CASConflicts     prometheus.Counter

	// Audit metrics
	AuditLogsCreated *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		// Distribution metrics
		DistributionsSettled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "commission_engine_distributions_settled_total",
			Help: "Total number of commission distributions settled",
		}),
		DistributionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "commission_engine_distribution_duration_seconds",
			Help:    "Duration of distribution operations",
			Buckets: prometheus.DefBuckets,
		}),
		DistributionErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commission_engine_distribution_errors_total",
				Help: "Total number of distribution errors by type",
			},
			[]string{"error_type"},
		),
		PoolAmount: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "commission_engine_pool_amount",
			Help:    "Commission pool amounts in minor units",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
		}),
		EarningAmount: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "commission_engine_earning_amount",
			Help:    "Individual commission earning amounts in minor units",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
		}),

		// Wallet metrics
		WalletOperations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commission_engine_wallet_operations_total",
				Help: "Total wallet operations by type",
			},
			[]string{"operation"},
		),
		CASConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "commission_engine_cas_conflicts_total",
			Help: "Total number of wallet version conflicts detected",
		}),

		// Audit metrics
		AuditLogsCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commission_engine_audit_logs_created_total",
				Help: "Total audit log records created by action",
			},
			[]string{"action"},
		),
	}
}
