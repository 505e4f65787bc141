// Package metrics exposes Prometheus counters for the cleaning engine and its
// HTTP transport.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/KaramelBytes/tabloom-cli/internal/impute"
)

// UnsupportedMethod labels imputations whose method the engine does not know.
const UnsupportedMethod = "unsupported"

// Metrics groups the collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	Requests      *prometheus.CounterVec
	RowsIn        prometheus.Counter
	RowsOut       prometheus.Counter
	Duplicates    prometheus.Counter
	Imputations   *prometheus.CounterVec
	ImputeFailure prometheus.Counter
}

// New registers all collectors, plus the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tabloom",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		RowsIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tabloom",
			Name:      "rows_received_total",
			Help:      "Rows submitted for cleaning.",
		}),
		RowsOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tabloom",
			Name:      "rows_cleaned_total",
			Help:      "Rows surviving the cleaning pipeline.",
		}),
		Duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tabloom",
			Name:      "duplicate_rows_total",
			Help:      "Duplicate rows removed.",
		}),
		Imputations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tabloom",
			Name:      "imputed_cells_total",
			Help:      "Cells filled by imputation, by method.",
		}, []string{"method"}),
		ImputeFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tabloom",
			Name:      "imputation_failures_total",
			Help:      "Per-column imputations that did not succeed.",
		}),
	}
	m.Registry.MustRegister(
		m.Requests, m.RowsIn, m.RowsOut, m.Duplicates, m.Imputations, m.ImputeFailure,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// ObserveRequest counts one finished request.
func (m *Metrics) ObserveRequest(route string, code int) {
	m.Requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// ObserveClean records the row counts of one cleaning run.
func (m *Metrics) ObserveClean(original, cleaned, duplicates int) {
	m.RowsIn.Add(float64(original))
	m.RowsOut.Add(float64(cleaned))
	m.Duplicates.Add(float64(duplicates))
}

// ObserveImputation records one per-column imputation result. Methods come
// from clients, so anything outside impute.Methods shares one label.
func (m *Metrics) ObserveImputation(method string, imputed int, success bool) {
	if !success {
		m.ImputeFailure.Inc()
		return
	}
	if !impute.Method(method).Valid() {
		method = UnsupportedMethod
	}
	m.Imputations.WithLabelValues(method).Add(float64(imputed))
}
