// Copyright 2026 The Floe Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package feedback persists routing outcomes to a local SQLite ledger so
// path history survives restarts.
package feedback

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	log "github.com/sirupsen/logrus"

	"github.com/astoerkel/floe-voice-assistant-sub003/internal/intent"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/router"
)

// ErrNotEnabled is returned when the collector has not been initialized.
var ErrNotEnabled = errors.New("feedback collector not enabled")

// Record is one attempted path execution.
type Record struct {
	ID         int64     `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id"`
	Intent     string    `json:"intent"`
	Path       string    `json:"path"`
	Confidence float64   `json:"confidence"`
	Success    bool      `json:"success"`
	LatencyMs  int64     `json:"latency_ms"`
	// Fallback marks attempts made from the fallback chain.
	Fallback bool   `json:"fallback"`
	Error    string `json:"error,omitempty"`
}

// Reporter receives replayed outcomes; *router.AdaptiveRouter implements it.
type Reporter interface {
	Report(o router.Outcome) error
}

const schema = `
CREATE TABLE IF NOT EXISTS outcomes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp DATETIME NOT NULL,
	request_id TEXT NOT NULL,
	intent TEXT NOT NULL,
	path TEXT NOT NULL,
	confidence REAL,
	success INTEGER NOT NULL,
	latency_ms INTEGER NOT NULL,
	fallback INTEGER NOT NULL DEFAULT 0,
	error TEXT
);

CREATE INDEX IF NOT EXISTS idx_outcomes_timestamp ON outcomes(timestamp);
CREATE INDEX IF NOT EXISTS idx_outcomes_intent_path ON outcomes(intent, path);
`

// Collector records outcomes in SQLite.
type Collector struct {
	db            *sql.DB
	dbPath        string
	retentionDays int
	enabled       bool
	mu            sync.RWMutex
}

// NewCollector creates a collector for the database at dbPath. Call
// Initialize before use.
func NewCollector(dbPath string, retentionDays int) (*Collector, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if retentionDays <= 0 {
		retentionDays = 30
	}
	return &Collector{dbPath: dbPath, retentionDays: retentionDays}, nil
}

// newWithDB wraps an open database, skipping schema creation.
func newWithDB(db *sql.DB, retentionDays int) *Collector {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	return &Collector{db: db, retentionDays: retentionDays, enabled: true}
}

// Initialize opens the database, creates the schema and prunes expired rows.
func (c *Collector) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if dir := filepath.Dir(c.dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", c.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}

	c.db = db
	c.enabled = true
	log.Infof("feedback collector initialized (db: %s, retention: %d days)", c.dbPath, c.retentionDays)

	if _, err := c.cleanupLocked(ctx); err != nil {
		log.Warnf("failed to clean up old outcomes: %v", err)
	}
	return nil
}

// IsEnabled reports whether the collector is active.
func (c *Collector) IsEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

// Record stores r and fills its ID.
func (c *Collector) Record(ctx context.Context, r *Record) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.enabled {
		return ErrNotEnabled
	}
	if r == nil {
		return fmt.Errorf("record cannot be nil")
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}

	result, err := c.db.ExecContext(ctx, `
	INSERT INTO outcomes (
		timestamp, request_id, intent, path, confidence,
		success, latency_ms, fallback, error
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Timestamp.UTC(),
		r.RequestID,
		r.Intent,
		r.Path,
		r.Confidence,
		boolToInt(r.Success),
		r.LatencyMs,
		boolToInt(r.Fallback),
		r.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outcome: %w", err)
	}
	if id, err := result.LastInsertId(); err == nil {
		r.ID = id
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (c *Collector) Recent(ctx context.Context, limit int) ([]*Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.enabled {
		return nil, ErrNotEnabled
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := c.db.QueryContext(ctx, `
	SELECT id, timestamp, request_id, intent, path, confidence,
	       success, latency_ms, fallback, error
	FROM outcomes
	ORDER BY timestamp DESC, id DESC
	LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			log.Warnf("failed to scan outcome: %v", err)
			continue
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outcomes: %w", err)
	}
	return records, nil
}

// Stats returns aggregate counts over the ledger.
func (c *Collector) Stats(ctx context.Context) (map[string]interface{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.enabled {
		return nil, ErrNotEnabled
	}

	stats := make(map[string]interface{})

	var total, successes, fallbacks int64
	err := c.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(success), 0), COALESCE(SUM(fallback), 0) FROM outcomes").
		Scan(&total, &successes, &fallbacks)
	if err != nil {
		return nil, fmt.Errorf("failed to count outcomes: %w", err)
	}
	stats["total_records"] = total
	stats["success_rate"] = ratio(successes, total)
	stats["fallback_rate"] = ratio(fallbacks, total)

	rows, err := c.db.QueryContext(ctx, "SELECT path, COUNT(*) FROM outcomes GROUP BY path")
	if err != nil {
		return nil, fmt.Errorf("failed to get path distribution: %w", err)
	}
	defer rows.Close()

	paths := make(map[string]int64)
	for rows.Next() {
		var path string
		var count int64
		if err := rows.Scan(&path, &count); err != nil {
			continue
		}
		paths[path] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating path distribution: %w", err)
	}
	stats["path_distribution"] = paths

	var avgLatency sql.NullFloat64
	if err := c.db.QueryRowContext(ctx, "SELECT AVG(latency_ms) FROM outcomes").Scan(&avgLatency); err != nil {
		return nil, fmt.Errorf("failed to get average latency: %w", err)
	}
	stats["avg_latency_ms"] = avgLatency.Float64

	return stats, nil
}

// WarmUp replays up to limit recent outcomes, oldest first, into r. It
// returns how many were accepted.
func (c *Collector) WarmUp(ctx context.Context, r Reporter, limit int) (int, error) {
	records, err := c.Recent(ctx, limit)
	if err != nil {
		return 0, err
	}
	replayed := 0
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		err := r.Report(router.Outcome{
			Label:   intent.Label(rec.Intent),
			Path:    router.Path(rec.Path),
			Success: rec.Success,
			Latency: time.Duration(rec.LatencyMs) * time.Millisecond,
			At:      rec.Timestamp,
		})
		if err != nil {
			log.Debugf("feedback: skipping outcome %d: %v", rec.ID, err)
			continue
		}
		replayed++
	}
	return replayed, nil
}

// Cleanup deletes records older than the retention period.
func (c *Collector) Cleanup(ctx context.Context) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.enabled {
		return 0, ErrNotEnabled
	}
	return c.cleanupLocked(ctx)
}

func (c *Collector) cleanupLocked(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -c.retentionDays).UTC()
	result, err := c.db.ExecContext(ctx, "DELETE FROM outcomes WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up outcomes: %w", err)
	}
	n, err := result.RowsAffected()
	if err == nil && n > 0 {
		log.Infof("cleaned up %d old outcomes (older than %d days)", n, c.retentionDays)
	}
	return n, nil
}

// Shutdown closes the database.
func (c *Collector) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return nil
	}
	if _, err := c.cleanupLocked(ctx); err != nil {
		log.Warnf("failed to clean up old outcomes: %v", err)
	}
	c.enabled = false
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}
	log.Info("feedback collector shut down")
	return nil
}

func scanRecord(rows *sql.Rows) (*Record, error) {
	var r Record
	var success, fallback int
	var errMsg sql.NullString
	var confidence sql.NullFloat64

	err := rows.Scan(
		&r.ID,
		&r.Timestamp,
		&r.RequestID,
		&r.Intent,
		&r.Path,
		&confidence,
		&success,
		&r.LatencyMs,
		&fallback,
		&errMsg,
	)
	if err != nil {
		return nil, err
	}
	r.Confidence = confidence.Float64
	r.Success = success == 1
	r.Fallback = fallback == 1
	r.Error = errMsg.String
	return &r, nil
}

func ratio(n, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
