package feedback

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astoerkel/floe-voice-assistant-sub003/internal/config"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/intent"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/router"
)

func TestNewCollector(t *testing.T) {
	_, err := NewCollector("", 30)
	assert.Error(t, err)

	c, err := NewCollector("floe.db", 0)
	require.NoError(t, err)
	assert.Equal(t, 30, c.retentionDays)
	assert.False(t, c.IsEnabled())

	ctx := context.Background()
	assert.ErrorIs(t, c.Record(ctx, &Record{}), ErrNotEnabled)
	_, err = c.Recent(ctx, 10)
	assert.ErrorIs(t, err, ErrNotEnabled)
	_, err = c.Stats(ctx)
	assert.ErrorIs(t, err, ErrNotEnabled)
	assert.NoError(t, c.Shutdown(ctx))
}

func TestCollector_RecordMock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	c := newWithDB(db, 30)
	ts := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO outcomes").
		WithArgs(ts, "req-1", "calendar", "server", 0.8, 1, int64(120), 0, "").
		WillReturnResult(sqlmock.NewResult(7, 1))

	rec := &Record{Timestamp: ts, RequestID: "req-1", Intent: "calendar", Path: "server", Confidence: 0.8, Success: true, LatencyMs: 120}
	require.NoError(t, c.Record(context.Background(), rec))
	assert.Equal(t, int64(7), rec.ID)
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Error(t, c.Record(context.Background(), nil))
}

func TestCollector_RecentMock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	c := newWithDB(db, 30)
	ts := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "timestamp", "request_id", "intent", "path", "confidence", "success", "latency_ms", "fallback", "error"}).
		AddRow(2, ts.Add(time.Minute), "req-2", "music", "on_device", 0.9, 0, 40, 1, "model unavailable").
		AddRow(1, ts, "req-1", "music", "server", nil, 1, 80, 0, nil)
	mock.ExpectQuery("SELECT (.+) FROM outcomes").WithArgs(5).WillReturnRows(rows)

	records, err := c.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "req-2", records[0].RequestID)
	assert.False(t, records[0].Success)
	assert.True(t, records[0].Fallback)
	assert.Equal(t, "model unavailable", records[0].Error)
	assert.True(t, records[1].Success)
	assert.Zero(t, records[1].Confidence)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollector_StatsMock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	c := newWithDB(db, 30)
	mock.ExpectQuery(`SELECT COUNT\(\*\), COALESCE`).
		WillReturnRows(sqlmock.NewRows([]string{"total", "successes", "fallbacks"}).AddRow(4, 3, 1))
	mock.ExpectQuery(`SELECT path, COUNT\(\*\) FROM outcomes GROUP BY path`).
		WillReturnRows(sqlmock.NewRows([]string{"path", "count"}).AddRow("server", 3).AddRow("offline", 1))
	mock.ExpectQuery(`SELECT AVG\(latency_ms\)`).
		WillReturnRows(sqlmock.NewRows([]string{"avg"}).AddRow(55.5))

	stats, err := c.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats["total_records"])
	assert.Equal(t, 0.75, stats["success_rate"])
	assert.Equal(t, 0.25, stats["fallback_rate"])
	assert.Equal(t, map[string]int64{"server": 3, "offline": 1}, stats["path_distribution"])
	assert.Equal(t, 55.5, stats["avg_latency_ms"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollector_SQLite(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "nested", "floe.db")
	c, err := NewCollector(dbPath, 30)
	require.NoError(t, err)
	require.NoError(t, c.Initialize(ctx))
	defer c.Shutdown(ctx)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats["total_records"])
	assert.Equal(t, 0.0, stats["avg_latency_ms"])

	base := time.Now().Add(-time.Hour).UTC()
	for i, ok := range []bool{true, false, true} {
		rec := &Record{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			RequestID: "req",
			Intent:    "calendar",
			Path:      "on_device",
			Success:   ok,
			LatencyMs: int64(10 * (i + 1)),
		}
		require.NoError(t, c.Record(ctx, rec))
		assert.NotZero(t, rec.ID)
	}
	require.NoError(t, c.Record(ctx, &Record{
		Timestamp: time.Now().AddDate(0, 0, -40).UTC(),
		RequestID: "old", Intent: "calendar", Path: "server", Success: true,
	}))

	recent, err := c.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.True(t, recent[0].Success)
	assert.Equal(t, int64(30), recent[0].LatencyMs)
	assert.False(t, recent[1].Success)

	removed, err := c.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	r := router.New(config.RouterConfig{OnDeviceThreshold: 0.75, HistorySampleCap: 20, SuccessRateFloor: 0.5, MinSamples: 1}, nil)
	n, err := c.WarmUp(ctx, r, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	rate, samples := r.History().Rate(intent.LabelCalendar, router.PathOnDevice)
	assert.Equal(t, 3, samples)
	// true, false, true weighted 1, 2, 3.
	assert.InDelta(t, 4.0/6.0, rate, 1e-9)

	require.NoError(t, c.Shutdown(ctx))
	assert.False(t, c.IsEnabled())
}

type rejectingReporter struct{ calls int }

func (r *rejectingReporter) Report(o router.Outcome) error {
	r.calls++
	if o.Path == "teleport" {
		return router.ErrInvalidOutcome
	}
	return nil
}

func TestCollector_WarmUpSkipsInvalid(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	c := newWithDB(db, 30)
	ts := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "timestamp", "request_id", "intent", "path", "confidence", "success", "latency_ms", "fallback", "error"}).
		AddRow(2, ts, "b", "music", "teleport", 0.5, 1, 10, 0, nil).
		AddRow(1, ts, "a", "music", "server", 0.5, 1, 10, 0, nil)
	mock.ExpectQuery("SELECT (.+) FROM outcomes").WithArgs(10).WillReturnRows(rows)

	rep := &rejectingReporter{}
	n, err := c.WarmUp(context.Background(), rep, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, rep.calls)
}
