package extract

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/jwols/nws-extract/internal/db"
	"github.com/stretchr/testify/require"
)

func testRecord(ts time.Time) db.Record {
	lat := 34.73
	lon := -86.59
	src := "https://api.weather.gov/gridpoints/HUN/46,44/forecast/hourly"
	return db.Record{
		RunTS:     ts,
		Location:  "Huntsville, AL",
		Lat:       &lat,
		Lon:       &lon,
		SourceURL: &src,
		Payload:   json.RawMessage(`{"temperature": 72, "unit": "F"}`),
	}
}

func TestInMemoryStore_CreateSchemaIdempotent(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, store.CreateSchema(ctx))
	}
}

func TestInMemoryStore_ConcurrentInsertsAssignDistinctIDs(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	const writers = 25
	const perWriter = 4
	ids := make(chan int64, writers*perWriter)
	errs := make(chan error, writers*perWriter)

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				id, err := store.Insert(ctx, testRecord(ts))
				if err != nil {
					errs <- err
					continue
				}
				ids <- id
			}
		}()
	}
	wg.Wait()
	close(ids)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	seen := make(map[int64]bool)
	for id := range ids {
		require.False(t, seen[id], "id %d assigned twice", id)
		seen[id] = true
	}
	require.Len(t, seen, writers*perWriter)
}

func TestInMemoryStore_RequiredFieldsEnforced(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	rec := testRecord(ts)
	rec.Location = ""
	_, err := store.Insert(ctx, rec)
	require.ErrorIs(t, err, db.ErrConstraintViolation)

	rec = testRecord(ts)
	rec.Payload = nil
	_, err = store.Insert(ctx, rec)
	require.ErrorIs(t, err, db.ErrConstraintViolation)

	rec = testRecord(ts)
	rec.RunTS = time.Time{}
	_, err = store.Insert(ctx, rec)
	require.ErrorIs(t, err, db.ErrConstraintViolation)

	// lat, lon and source_url are optional
	rec = testRecord(ts)
	rec.Lat = nil
	rec.Lon = nil
	rec.SourceURL = nil
	id, err := store.Insert(ctx, rec)
	require.NoError(t, err)
	require.Positive(t, id)
}

func TestInMemoryStore_QueryByTimeRange(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	ts1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ts2 := time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC)
	ts3 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	// Insert out of timestamp order to prove the query sorts.
	for _, ts := range []time.Time{ts3, ts1, ts2} {
		_, err := store.Insert(ctx, testRecord(ts))
		require.NoError(t, err)
	}

	records, err := store.QueryByTimeRange(ctx, ts1, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.True(t, records[0].RunTS.Equal(ts1))
	require.True(t, records[1].RunTS.Equal(ts2))

	// Bounds are inclusive on both ends.
	records, err = store.QueryByTimeRange(ctx, ts1, ts3)
	require.NoError(t, err)
	require.Len(t, records, 3)
}

func TestInMemoryStore_QueryByPayload(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	id, err := store.Insert(ctx, testRecord(ts))
	require.NoError(t, err)

	records, err := store.QueryByPayload(ctx, json.RawMessage(`{"unit": "F"}`))
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, id, records[0].ID)

	records, err = store.QueryByPayload(ctx, json.RawMessage(`{"unit": "C"}`))
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestInMemoryStore_PayloadRoundTrip(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	payload := `{"properties": {"updated": "2024-01-01T00:00:00Z", "periods": [{"number": 1, "temperature": 72, "isDaytime": false}]}}`
	rec := testRecord(ts)
	buf := []byte(payload)
	rec.Payload = buf
	_, err := store.Insert(ctx, rec)
	require.NoError(t, err)

	// Mutating the caller's buffer after insert must not affect the store.
	buf[0] = ' '

	records, err := store.QueryByTimeRange(ctx, ts, ts)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.JSONEq(t, payload, string(records[0].Payload))
}
