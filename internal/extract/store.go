package extract

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jwols/nws-extract/internal/db"
)

// Store is the durable home of forecast extraction records. Records are
// append-only: there is no update or delete path, retention is an external
// concern.
type Store interface {
	// CreateSchema idempotently ensures the extract table and its indexes
	// exist. Safe to invoke on every startup; a failure is fatal and wraps
	// db.ErrSchemaCreation.
	CreateSchema(ctx context.Context) error

	// Insert persists a new record and returns the generated id. Missing
	// required fields wrap db.ErrConstraintViolation.
	Insert(ctx context.Context, rec db.Record) (int64, error)

	// QueryByTimeRange returns records with run_ts_utc in [start, end],
	// ordered by run timestamp.
	QueryByTimeRange(ctx context.Context, start, end time.Time) ([]db.Record, error)

	// QueryByPayload returns records whose payload contains the given
	// document, under jsonb containment semantics.
	QueryByPayload(ctx context.Context, containment json.RawMessage) ([]db.Record, error)

	Close() error
}
