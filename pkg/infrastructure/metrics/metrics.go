package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vsinha/stockroom/pkg/infrastructure/events"
)

const namespace = "stockroom"

// Metrics owns a private Prometheus registry and the application collectors
type Metrics struct {
	registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	stockMovements *prometheus.CounterVec
	batches        *prometheus.CounterVec
	runs           *prometheus.CounterVec
	sales          prometheus.Counter
	revenue        prometheus.Counter
	lowStock       prometheus.Counter
	events         *prometheus.CounterVec
}

// New creates and registers every collector
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		stockMovements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_movements_total",
			Help:      "Stock transactions by source and direction.",
		}, []string{"source", "direction"}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_received_total",
			Help:      "Raw material batches received by quality outcome.",
		}, []string{"outcome"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "production_runs_total",
			Help:      "Production run transitions by target status.",
		}, []string{"status"}),
		sales: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_total",
			Help:      "Invoices recorded.",
		}),
		revenue: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_revenue_total",
			Help:      "Invoiced revenue.",
		}),
		lowStock: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "low_stock_alerts_total",
			Help:      "Times a product fell to or below the low stock threshold.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Domain events by type.",
		}, []string{"type"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration, m.stockMovements, m.batches,
		m.runs, m.sales, m.revenue, m.lowStock, m.events,
	)
	return m
}

// Registry exposes the registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one HTTP request
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) CanHandle(string) bool {
	return true
}

// Handle updates business counters from domain events
func (m *Metrics) Handle(event events.Event) error {
	m.events.WithLabelValues(event.Type()).Inc()

	switch data := event.Data().(type) {
	case events.StockMoved:
		m.stockMovements.WithLabelValues(string(data.Transaction.Source), data.Transaction.Type.String()).Inc()
	case events.BatchReceived:
		outcome := "accepted"
		if !data.Accepted {
			outcome = "rejected"
		}
		m.batches.WithLabelValues(outcome).Inc()
	case events.RunStatusChanged:
		m.runs.WithLabelValues(data.To.String()).Inc()
	case events.SaleRecorded:
		m.sales.Inc()
		m.revenue.Add(data.Sale.TotalAmount.InexactFloat64())
	case events.LowStock:
		m.lowStock.Inc()
	}
	return nil
}
