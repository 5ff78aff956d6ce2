package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Transfer metrics
	TransfersTotal   *prometheus.CounterVec
	TransferDuration prometheus.Histogram
	TransferAmount   prometheus.Histogram
	TransferErrors   *prometheus.CounterVec
	ConflictsTotal   prometheus.Counter

	// Account metrics
	DepositsTotal   prometheus.Counter
	AccountsCreated prometheus.Counter
	AccountsDeleted prometheus.Counter

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Rate limiting metrics
	RateLimitHits prometheus.Counter

	// Outbox metrics
	EventsPublished *prometheus.CounterVec
}

// New creates and registers all metrics on the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates and registers all metrics on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		TransfersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankledger_transfers_total",
				Help: "Total number of decided transfers by status",
			},
			[]string{"status"},
		),
		TransferDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bankledger_transfer_duration_seconds",
			Help:    "Duration of transfer operations",
			Buckets: prometheus.DefBuckets,
		}),
		TransferAmount: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bankledger_transfer_amount",
			Help:    "Transfer amounts",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
		}),
		TransferErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankledger_transfer_errors_total",
				Help: "Total number of rejected transfers by reason",
			},
			[]string{"reason"},
		),
		ConflictsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "bankledger_concurrent_conflicts_total",
			Help: "Transfers that gave up after repeated lock conflicts",
		}),

		DepositsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "bankledger_deposits_total",
			Help: "Total number of deposits",
		}),
		AccountsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "bankledger_accounts_created_total",
			Help: "Total number of accounts created",
		}),
		AccountsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "bankledger_accounts_deleted_total",
			Help: "Total number of accounts deleted",
		}),

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bankledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		RateLimitHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "bankledger_rate_limit_hits_total",
			Help: "Total requests rejected by the rate limiter",
		}),

		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankledger_outbox_events_published_total",
				Help: "Outbox events handed to the publisher by event type",
			},
			[]string{"event_type"},
		),
	}
}

// TransferCompleted records a decided transfer.
func (m *Metrics) TransferCompleted(status domain.TransactionStatus, amount decimal.Decimal, elapsed time.Duration) {
	m.TransfersTotal.WithLabelValues(string(status)).Inc()
	m.TransferDuration.Observe(elapsed.Seconds())
	m.TransferAmount.Observe(amount.InexactFloat64())
}

// TransferRejected records a transfer that ended in an error.
func (m *Metrics) TransferRejected(reason string) {
	m.TransferErrors.WithLabelValues(reason).Inc()
	if reason == "concurrent_update" {
		m.ConflictsTotal.Inc()
	}
}

func (m *Metrics) DepositCompleted(decimal.Decimal) {
	m.DepositsTotal.Inc()
}

func (m *Metrics) AccountCreated() {
	m.AccountsCreated.Inc()
}

func (m *Metrics) AccountDeleted() {
	m.AccountsDeleted.Inc()
}

// EventPublished records an outbox event handed to the publisher.
func (m *Metrics) EventPublished(eventType string) {
	m.EventsPublished.WithLabelValues(eventType).Inc()
}
