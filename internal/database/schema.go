package database

import (
	"context"
	"fmt"
)

// Schemas carries the embedded schema SQL for each backend.
type Schemas struct {
	Postgres []byte
	SQLite   []byte
}

// Prepare initializes the schema for whichever backend store is and applies
// pending migrations.
func Prepare(ctx context.Context, store Store, schemas Schemas) error {
	switch s := store.(type) {
	case *DB:
		if err := s.InitSchema(ctx, schemas.Postgres); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
		return s.Migrate(ctx)
	case *SQLiteDB:
		return s.InitSchema(ctx, schemas.SQLite)
	default:
		return nil
	}
}

// InitSchema applies the full schema on a fresh database.
// It checks whether the "meetings" table exists as a proxy for
// whether the schema has been loaded. If present, it's a no-op.
func (db *DB) InitSchema(ctx context.Context, schemaSQL []byte) error {
	var exists bool
	err := db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT FROM pg_tables WHERE schemaname = 'public' AND tablename = 'meetings')`,
	).Scan(&exists)
	if err != nil {
		return err
	}

	if exists {
		db.log.Debug().Msg("schema already initialized, skipping")
		return nil
	}

	db.log.Info().Msg("fresh database detected, applying schema")
	if _, err := db.Pool.Exec(ctx, string(schemaSQL)); err != nil {
		return err
	}
	db.log.Info().Msg("schema applied successfully")
	return nil
}
