package extract

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/jwols/nws-extract/internal/db"
)

// InMemoryStore keeps records in process memory. It mirrors the Postgres
// store's semantics (validation, inclusive range bounds, jsonb containment)
// so it can stand in for it in tests and local runs.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []db.Record
	nextID  int64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{nextID: 1}
}

// CreateSchema is a no-op; there is no schema to create in memory.
func (m *InMemoryStore) CreateSchema(ctx context.Context) error {
	return nil
}

func (m *InMemoryStore) Insert(ctx context.Context, rec db.Record) (int64, error) {
	if err := rec.Validate(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = m.nextID
	m.nextID++
	// Records are immutable once stored; detach the payload from the
	// caller's buffer.
	rec.Payload = append(json.RawMessage(nil), rec.Payload...)
	m.records = append(m.records, rec)
	return rec.ID, nil
}

func (m *InMemoryStore) QueryByTimeRange(ctx context.Context, start, end time.Time) ([]db.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []db.Record
	for _, rec := range m.records {
		if rec.RunTS.Before(start) || rec.RunTS.After(end) {
			continue
		}
		out = append(out, copyRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RunTS.Equal(out[j].RunTS) {
			return out[i].RunTS.Before(out[j].RunTS)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *InMemoryStore) QueryByPayload(ctx context.Context, containment json.RawMessage) ([]db.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []db.Record
	for _, rec := range m.records {
		ok, err := db.PayloadContains(rec.Payload, containment)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, copyRecord(rec))
		}
	}
	return out, nil
}

func (m *InMemoryStore) Close() error {
	return nil
}

func copyRecord(rec db.Record) db.Record {
	rec.Payload = append(json.RawMessage(nil), rec.Payload...)
	return rec
}
