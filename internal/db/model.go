package db

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Record represents one captured forecast-extraction payload
type Record struct {
	ID        int64           `db:"id" json:"id"`
	RunTS     time.Time       `db:"run_ts_utc" json:"run_ts_utc"`
	Location  string          `db:"location" json:"location"`
	Lat       *float64        `db:"lat" json:"lat,omitempty"`
	Lon       *float64        `db:"lon" json:"lon,omitempty"`
	SourceURL *string         `db:"source_url" json:"source_url,omitempty"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
}

// Validate checks the NOT NULL columns before the record reaches the engine,
// so every store implementation reports the same constraint violation.
func (r Record) Validate() error {
	if r.RunTS.IsZero() {
		return fmt.Errorf("%w: run_ts_utc is required", ErrConstraintViolation)
	}
	if r.Location == "" {
		return fmt.Errorf("%w: location is required", ErrConstraintViolation)
	}
	if len(r.Payload) == 0 || bytes.Equal(bytes.TrimSpace(r.Payload), []byte("null")) {
		return fmt.Errorf("%w: payload is required", ErrConstraintViolation)
	}
	if !json.Valid(r.Payload) {
		return fmt.Errorf("%w: payload is not valid JSON", ErrConstraintViolation)
	}
	return nil
}

// Schema is the SQL schema for the forecast extract table and its indexes.
// Every statement is existence-guarded so it can run on each startup.
const Schema = `
CREATE TABLE IF NOT EXISTS nws_hourly_forecast_extract (
    id BIGSERIAL PRIMARY KEY,
    run_ts_utc TIMESTAMPTZ NOT NULL,
    location TEXT NOT NULL,
    lat DOUBLE PRECISION,
    lon DOUBLE PRECISION,
    source_url TEXT,
    payload JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS ix_nws_extract_run_ts
    ON nws_hourly_forecast_extract (run_ts_utc);

CREATE INDEX IF NOT EXISTS ix_nws_extract_payload_gin
    ON nws_hourly_forecast_extract USING GIN (payload);
`
