package api

import (
	"context"
	"net/http"
	"time"

	"github.com/snarg/notetaker/internal/ingest"
)

type HealthResponse struct {
	Status            string            `json:"status"`
	Version           string            `json:"version"`
	UptimeSeconds     int64             `json:"uptime_seconds"`
	Checks            map[string]string `json:"checks"`
	PostWrite         ingest.QueueStats `json:"post_write"`
	SummariesInFlight int               `json:"summaries_in_flight"`
}

// HealthChecker reports backend reachability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// RuntimeStats exposes in-process queue state for the health report.
type RuntimeStats interface {
	QueueStats() ingest.QueueStats
	SummariesInFlight() int
	SummariesEnabled() bool
}

type HealthHandler struct {
	db        HealthChecker
	stats     RuntimeStats
	version   string
	startTime time.Time
}

func NewHealthHandler(db HealthChecker, stats RuntimeStats, version string, startTime time.Time) *HealthHandler {
	return &HealthHandler{
		db:        db,
		stats:     stats,
		version:   version,
		startTime: startTime,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	status := "healthy"
	httpStatus := http.StatusOK

	if err := h.db.HealthCheck(r.Context()); err != nil {
		checks["database"] = "error"
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	resp := HealthResponse{
		Status:        status,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Checks:        checks,
	}

	if h.stats != nil {
		resp.PostWrite = h.stats.QueueStats()
		resp.SummariesInFlight = h.stats.SummariesInFlight()
		if h.stats.SummariesEnabled() {
			checks["summaries"] = "ok"
		} else {
			checks["summaries"] = "not_configured"
		}
		if resp.PostWrite.Dropped > 0 && status == "healthy" {
			resp.Status = "degraded"
		}
	}

	WriteJSON(w, httpStatus, resp)
}
