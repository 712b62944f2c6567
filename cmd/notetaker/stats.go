package main

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/snarg/notetaker/internal/database"
	"github.com/snarg/notetaker/internal/ingest"
	"github.com/snarg/notetaker/internal/summary"
)

// runtimeStats feeds the health endpoint and the scrape-time collector.
type runtimeStats struct {
	svc       *ingest.Service
	bus       *ingest.EventBus
	scheduler *summary.Scheduler
	summaries bool
}

func (s *runtimeStats) QueueStats() ingest.QueueStats { return s.svc.Stats() }
func (s *runtimeStats) PostWritePending() int         { return s.svc.Stats().Pending }
func (s *runtimeStats) SSESubscriberCount() int       { return s.bus.SubscriberCount() }
func (s *runtimeStats) SummariesInFlight() int        { return s.scheduler.InFlight() }
func (s *runtimeStats) SummariesEnabled() bool        { return s.summaries }

// pgPool returns the pgx pool behind store, or nil for SQLite.
func pgPool(store database.Store) *pgxpool.Pool {
	if db, ok := store.(*database.DB); ok {
		return db.Pool
	}
	return nil
}
