package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeStats struct{}

func (fakeStats) PostWritePending() int   { return 3 }
func (fakeStats) SSESubscriberCount() int { return 2 }
func (fakeStats) SummariesInFlight() int  { return 1 }

func TestCollector(t *testing.T) {
	t.Run("reports_all_gauges", func(t *testing.T) {
		c := NewCollector(nil, fakeStats{})
		if n := testutil.CollectAndCount(c); n != 6 {
			t.Errorf("collected %d metrics, want 6", n)
		}
	})

	t.Run("nil_stats_reports_zero", func(t *testing.T) {
		c := NewCollector(nil, nil)
		if n := testutil.CollectAndCount(c, "notetaker_summaries_in_flight"); n != 1 {
			t.Errorf("collected %d summaries_in_flight, want 1", n)
		}
	})
}

func TestInstrumentHandler(t *testing.T) {
	r := chi.NewRouter()
	r.Use(InstrumentHandler)
	r.Get("/api/meetings/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short"))
	})

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/meetings/{id}", "418"))

	req := httptest.NewRequest(http.MethodGet, "/api/meetings/abc", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/meetings/{id}", "418"))
	if after-before != 1 {
		t.Errorf("requests counter delta = %v, want 1 (labelled by route pattern)", after-before)
	}
}

func TestStatusWriterFlush(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec, status: 200}
	var _ http.Flusher = sw
	sw.Flush()
	if !rec.Flushed {
		t.Error("Flush not forwarded to underlying writer")
	}
}
