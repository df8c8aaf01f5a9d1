package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quietcity/noise-data-pipeline/internal/noise"
)

// Postgres persists readings in a single table keyed by
// (location_id, reading_datetime). The writer never deletes; retention is
// owned by the store.
type Postgres struct {
	pool      *pgxpool.Pool
	table     string
	chunkSize int
}

// NewPostgres connects to the database, verifies the connection, and
// ensures the readings table exists. chunkSize bounds how many rows go into
// one upsert statement (the whole batch still commits in one transaction).
func NewPostgres(ctx context.Context, dsn, table string, chunkSize int) (*Postgres, error) {
	if err := validIdentifier(table); err != nil {
		return nil, err
	}
	if chunkSize <= 0 {
		chunkSize = 1000
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Postgres{pool: pool, table: table, chunkSize: chunkSize}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the connection pool.
func (s *Postgres) Close() {
	s.pool.Close()
}

func (s *Postgres) migrate(ctx context.Context) error {
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			location_id      TEXT        NOT NULL,
			location_name    TEXT,
			reading_value    DOUBLE PRECISION,
			reading_datetime TIMESTAMPTZ NOT NULL,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (location_id, reading_datetime)
		)`, s.table)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}

	idx := fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS idx_%[1]s_reading_datetime ON %[1]s (reading_datetime)`,
		s.table)
	if _, err := s.pool.Exec(ctx, idx); err != nil {
		return fmt.Errorf("create index on %s: %w", s.table, err)
	}
	return nil
}

// UpsertReadings writes a batch in one transaction, chunked to bound
// statement size. Conflicting rows are overwritten only when a non-key
// column actually changed, so the returned count is zero on a pure rerun.
func (s *Postgres) UpsertReadings(ctx context.Context, readings []noise.Reading) (int64, error) {
	if len(readings) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, &WriteError{Err: err}
	}
	defer tx.Rollback(ctx)

	var changed int64
	for start := 0; start < len(readings); start += s.chunkSize {
		end := start + s.chunkSize
		if end > len(readings) {
			end = len(readings)
		}

		sql, args := s.buildUpsert(readings[start:end])
		tag, err := tx.Exec(ctx, sql, args...)
		if err != nil {
			return 0, &WriteError{Err: err}
		}
		changed += tag.RowsAffected()
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, &WriteError{Err: err}
	}
	return changed, nil
}

func (s *Postgres) buildUpsert(readings []noise.Reading) (string, []any) {
	var sb strings.Builder
	args := make([]any, 0, len(readings)*5)

	fmt.Fprintf(&sb,
		"INSERT INTO %s (location_id, location_name, reading_value, reading_datetime, created_at) VALUES ",
		s.table)

	for i, r := range readings {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 5
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4, base+5)
		args = append(args, r.LocationID, r.LocationName, r.Value, r.Timestamp, r.CreatedAt)
	}

	fmt.Fprintf(&sb, `
		ON CONFLICT (location_id, reading_datetime)
		DO UPDATE SET
			location_name = excluded.location_name,
			reading_value = excluded.reading_value,
			created_at = excluded.created_at
		WHERE
			%[1]s.location_name IS DISTINCT FROM excluded.location_name OR
			%[1]s.reading_value IS DISTINCT FROM excluded.reading_value`, s.table)

	return sb.String(), args
}

// Latest returns the most recent reading for a location.
func (s *Postgres) Latest(ctx context.Context, locationID string) (noise.Reading, error) {
	sql := fmt.Sprintf(`
		SELECT location_id, location_name, reading_value, reading_datetime, created_at
		FROM %s
		WHERE location_id = $1
		ORDER BY reading_datetime DESC
		LIMIT 1`, s.table)

	var r noise.Reading
	err := s.pool.QueryRow(ctx, sql, locationID).Scan(
		&r.LocationID, &r.LocationName, &r.Value, &r.Timestamp, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return noise.Reading{}, ErrNotFound
		}
		return noise.Reading{}, fmt.Errorf("query latest reading: %w", err)
	}
	return r, nil
}

// Range returns readings for a location between from and to (inclusive),
// ordered by timestamp ascending.
func (s *Postgres) Range(ctx context.Context, locationID string, from, to time.Time) ([]noise.Reading, error) {
	sql := fmt.Sprintf(`
		SELECT location_id, location_name, reading_value, reading_datetime, created_at
		FROM %s
		WHERE location_id = $1 AND reading_datetime BETWEEN $2 AND $3
		ORDER BY reading_datetime`, s.table)

	rows, err := s.pool.Query(ctx, sql, locationID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query reading range: %w", err)
	}
	defer rows.Close()

	var readings []noise.Reading
	for rows.Next() {
		var r noise.Reading
		if err := rows.Scan(&r.LocationID, &r.LocationName, &r.Value, &r.Timestamp, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate readings: %w", err)
	}
	if len(readings) == 0 {
		return nil, ErrNotFound
	}
	return readings, nil
}

// Ping reports whether the database is reachable.
func (s *Postgres) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// validIdentifier rejects table names that cannot be safely interpolated
// into DDL and upsert statements.
func validIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("table name is empty")
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r == '_':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return fmt.Errorf("invalid table name %q", name)
		}
	}
	return nil
}
