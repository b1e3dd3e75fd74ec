package metrics

import (
	"strconv"
	"time"

	"event-ticketing/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ticketsIssued   *prometheus.CounterVec
	issueFailures   *prometheus.CounterVec
	codeCollisions  prometheus.Counter
	checkIns        *prometheus.CounterVec
	stockReleases   prometheus.Counter
	quotaResizes    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New registers the ticketing collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ticketsIssued: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tickets_issued_total",
				Help: "Tickets issued by payment method",
			},
			[]string{"payment_method"},
		),
		issueFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ticket_issue_failures_total",
				Help: "Failed issuances by reason",
			},
			[]string{"reason"},
		),
		codeCollisions: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ticket_code_collisions_total",
				Help: "Proposed ticket codes rejected by the uniqueness constraint",
			},
		),
		checkIns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ticket_check_ins_total",
				Help: "Check-in attempts by result",
			},
			[]string{"result"},
		),
		stockReleases: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "stock_releases_total",
				Help: "Stock units returned by ticket deletion",
			},
		),
		quotaResizes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "event_quota_resizes_total",
				Help: "Quota resize attempts by result",
			},
			[]string{"result"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency by route pattern",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
	}
}

func (m *Metrics) TicketIssued(method models.PaymentMethod) {
	m.ticketsIssued.WithLabelValues(string(method)).Inc()
}

func (m *Metrics) IssueFailed(reason string) {
	m.issueFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) CodeCollisions(n int) {
	if n > 0 {
		m.codeCollisions.Add(float64(n))
	}
}

func (m *Metrics) CheckIn(result string) {
	m.checkIns.WithLabelValues(result).Inc()
}

func (m *Metrics) StockReleased() {
	m.stockReleases.Inc()
}

func (m *Metrics) QuotaResized(result string) {
	m.quotaResizes.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveRequest(method, route string, status int, took time.Duration) {
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(took.Seconds())
}

// Noop satisfies the same method set and records nothing.
type Noop struct{}

func (Noop) TicketIssued(models.PaymentMethod) {}
func (Noop) IssueFailed(string) {}
func (Noop) CodeCollisions(int) {}
func (Noop) CheckIn(string) {}
func (Noop) StockReleased() {}
func (Noop) QuotaResized(string) {}
func (Noop) ObserveRequest(string, string, int, time.Duration) {}
