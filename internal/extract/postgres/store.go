package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jwols/nws-extract/internal/db"
	"github.com/jwols/nws-extract/internal/extract/shared"
	"github.com/lib/pq"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const insertSQL = `INSERT INTO nws_hourly_forecast_extract
	(run_ts_utc, location, lat, lon, source_url, payload)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id`

const selectColumns = `id, run_ts_utc, location, lat, lon, source_url, payload`

// PostgresStore persists extraction records in Postgres. All engine calls run
// through a circuit breaker so a dead database fails fast instead of piling
// up connections.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
	cb     *gobreaker.CircuitBreaker

	inserts metric.Int64Counter
	queries metric.Int64Counter
	latency metric.Float64Histogram
}

func NewPostgresStore(config shared.StoreConfig, logger *zap.Logger, meter metric.Meter) (*PostgresStore, error) {
	connStr, ok := config.ExtraDetails["conn_str"].(string)
	if !ok {
		return nil, fmt.Errorf("conn_str is required for Postgres store")
	}

	sqlDB, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open Postgres connection: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%w: %v", db.ErrConnectivity, err)
	}

	store := newStore(sqlDB, logger, meter)
	store.logger.Info("Postgres store initialized")
	return store, nil
}

func newStore(sqlDB *sql.DB, logger *zap.Logger, meter metric.Meter) *PostgresStore {
	store := &PostgresStore{
		db:     sqlDB,
		logger: logger.Named("postgres"),
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "PostgresExtractStore",
			MaxRequests: 5,
			Interval:    60 * time.Second,
			Timeout:     10 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 3
			},
		}),
	}

	if meter != nil {
		store.inserts, _ = meter.Int64Counter("extract_inserts_total",
			metric.WithDescription("Number of extract records inserted"))
		store.queries, _ = meter.Int64Counter("extract_queries_total",
			metric.WithDescription("Number of extract queries executed"))
		store.latency, _ = meter.Float64Histogram("extract_store_latency_seconds",
			metric.WithDescription("Latency of extract store operations"))
	}
	return store
}

// CreateSchema applies the guarded DDL for the extract table and both
// indexes. Running it again against an existing schema is a no-op.
func (s *PostgresStore) CreateSchema(ctx context.Context) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return s.db.ExecContext(ctx, db.Schema)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", db.ErrSchemaCreation, err)
	}
	s.logger.Info("extract schema ensured")
	return nil
}

func (s *PostgresStore) Insert(ctx context.Context, rec db.Record) (int64, error) {
	if err := rec.Validate(); err != nil {
		return 0, err
	}

	start := time.Now()
	result, err := s.cb.Execute(func() (interface{}, error) {
		var id int64
		err := s.db.QueryRowContext(ctx, insertSQL,
			rec.RunTS.UTC(), rec.Location, rec.Lat, rec.Lon, rec.SourceURL, []byte(rec.Payload),
		).Scan(&id)
		return id, err
	})
	s.record(ctx, s.inserts, start)
	if err != nil {
		return 0, s.mapError(err)
	}
	return result.(int64), nil
}

func (s *PostgresStore) QueryByTimeRange(ctx context.Context, start, end time.Time) ([]db.Record, error) {
	query := `SELECT ` + selectColumns + `
		FROM nws_hourly_forecast_extract
		WHERE run_ts_utc BETWEEN $1 AND $2
		ORDER BY run_ts_utc ASC, id ASC`

	began := time.Now()
	result, err := s.cb.Execute(func() (interface{}, error) {
		rows, err := s.db.QueryContext(ctx, query, start.UTC(), end.UTC())
		if err != nil {
			return nil, err
		}
		return scanRecords(rows)
	})
	s.record(ctx, s.queries, began)
	if err != nil {
		return nil, s.mapError(err)
	}
	return result.([]db.Record), nil
}

func (s *PostgresStore) QueryByPayload(ctx context.Context, containment json.RawMessage) ([]db.Record, error) {
	if len(containment) == 0 || !json.Valid(containment) {
		return nil, fmt.Errorf("%w: containment predicate is not valid JSON", db.ErrConstraintViolation)
	}
	query := `SELECT ` + selectColumns + `
		FROM nws_hourly_forecast_extract
		WHERE payload @> $1
		ORDER BY id ASC`

	began := time.Now()
	result, err := s.cb.Execute(func() (interface{}, error) {
		rows, err := s.db.QueryContext(ctx, query, []byte(containment))
		if err != nil {
			return nil, err
		}
		return scanRecords(rows)
	})
	s.record(ctx, s.queries, began)
	if err != nil {
		return nil, s.mapError(err)
	}
	return result.([]db.Record), nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func scanRecords(rows *sql.Rows) ([]db.Record, error) {
	defer rows.Close()

	var records []db.Record
	for rows.Next() {
		var (
			rec     db.Record
			lat     sql.NullFloat64
			lon     sql.NullFloat64
			srcURL  sql.NullString
			payload []byte
		)
		if err := rows.Scan(&rec.ID, &rec.RunTS, &rec.Location, &lat, &lon, &srcURL, &payload); err != nil {
			return nil, err
		}
		if lat.Valid {
			rec.Lat = &lat.Float64
		}
		if lon.Valid {
			rec.Lon = &lon.Float64
		}
		if srcURL.Valid {
			rec.SourceURL = &srcURL.String
		}
		rec.Payload = json.RawMessage(payload)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// mapError translates engine errors into the shared taxonomy.
func (s *PostgresStore) mapError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "23": // integrity constraint violation
			return fmt.Errorf("%w: %s", db.ErrConstraintViolation, pqErr.Message)
		case "08", "53", "57": // connection, resources, operator intervention
			return fmt.Errorf("%w: %s", db.ErrConnectivity, pqErr.Message)
		}
		return err
	}

	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, gobreaker.ErrOpenState) ||
		errors.Is(err, gobreaker.ErrTooManyRequests) ||
		errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", db.ErrConnectivity, err)
	}
	return err
}

func (s *PostgresStore) record(ctx context.Context, counter metric.Int64Counter, start time.Time) {
	if counter != nil {
		counter.Add(ctx, 1)
	}
	if s.latency != nil {
		s.latency.Record(ctx, time.Since(start).Seconds())
	}
}
