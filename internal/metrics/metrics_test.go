package metrics

import (
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dme-bo/briskolive/internal/importer"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestImportOutcomes(t *testing.T) {
	m := New()
	m.ImportFinished("members", importer.Result{Parsed: 3, Written: 3, StoppedAt: -1}, nil)
	m.ImportFinished("members", importer.Result{StoppedAt: -1}, importer.ErrPasswordRejected)
	m.ImportFinished("members", importer.Result{Parsed: 3, Written: 1, StoppedAt: 1}, fmt.Errorf("%w at row 1: boom", importer.ErrWriteFailed))
	m.ImportFinished("jobs", importer.Result{StoppedAt: -1}, fmt.Errorf("%w: empty", importer.ErrParse))
	m.ImportFinished("jobs", importer.Result{Parsed: 2, StoppedAt: 0}, fmt.Errorf("%w at row 0: boom", importer.ErrWriteFailed))

	checks := map[[2]string]float64{
		{"members", "ok"}:       1,
		{"members", "rejected"}: 1,
		{"members", "partial"}:  1,
		{"jobs", "parse_error"}: 1,
		{"jobs", "error"}:       1,
	}
	for labels, want := range checks {
		if got := testutil.ToFloat64(m.imports.WithLabelValues(labels[0], labels[1])); got != want {
			t.Fatalf("imports%v = %v want %v", labels, got, want)
		}
	}
	if got := testutil.ToFloat64(m.importedRows.WithLabelValues("members")); got != 4 {
		t.Fatalf("imported rows = %v", got)
	}
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.ObserveRequest("/api/pages/{page}/records", "GET", 200, 20*time.Millisecond)
	m.NewsletterRendered(true, nil)
	m.NewsletterRendered(false, errors.New("boom"))
	m.NotesSaved(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`briskolive_http_requests_total{code="200",method="GET",route="/api/pages/{page}/records"} 1`,
		`briskolive_newsletters_rendered_total{outcome="archived"} 1`,
		`briskolive_newsletters_rendered_total{outcome="error"} 1`,
		`briskolive_notes_saved_total 2`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}
