// Package metrics owns the Prometheus registry for the API process.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dme-bo/briskolive/internal/importer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry      *prometheus.Registry
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	imports       *prometheus.CounterVec
	importedRows  *prometheus.CounterVec
	newsletters   *prometheus.CounterVec
	noteSaves     prometheus.Counter
	timeoutsTotal prometheus.Counter
}

var _ importer.Observer = (*Metrics)(nil)

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "briskolive",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "briskolive",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "briskolive",
			Name:      "imports_total",
			Help:      "Spreadsheet imports by page and outcome.",
		}, []string{"page", "outcome"}),
		importedRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "briskolive",
			Name:      "imported_rows_total",
			Help:      "Rows written by imports.",
		}, []string{"page"}),
		newsletters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "briskolive",
			Name:      "newsletters_rendered_total",
			Help:      "Newsletter PDFs rendered by outcome.",
		}, []string{"outcome"}),
		noteSaves: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "briskolive",
			Name:      "notes_saved_total",
			Help:      "Interaction notes persisted.",
		}),
		timeoutsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "briskolive",
			Name:      "request_timeouts_total",
			Help:      "Requests that hit the per-request deadline.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.duration, m.imports, m.importedRows, m.newsletters, m.noteSaves, m.timeoutsTotal,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one finished request. route is the matched pattern,
// never the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

func (m *Metrics) RequestTimedOut() { m.timeoutsTotal.Inc() }

func (m *Metrics) NotesSaved(n int) { m.noteSaves.Add(float64(n)) }

func (m *Metrics) ImportFinished(page string, res importer.Result, err error) {
	m.imports.WithLabelValues(page, importOutcome(res, err)).Inc()
	if res.Written > 0 {
		m.importedRows.WithLabelValues(page).Add(float64(res.Written))
	}
}

func importOutcome(res importer.Result, err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, importer.ErrPasswordRejected), errors.Is(err, importer.ErrImportsDisabled):
		return "rejected"
	case errors.Is(err, importer.ErrParse):
		return "parse_error"
	case res.Partial():
		return "partial"
	default:
		return "error"
	}
}

func (m *Metrics) NewsletterRendered(archived bool, err error) {
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case archived:
		outcome = "archived"
	}
	m.newsletters.WithLabelValues(outcome).Inc()
}
