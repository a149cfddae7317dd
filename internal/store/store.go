package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"

	"github.com/valpere/bhasha/internal"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS detections (
		id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		selected TEXT NOT NULL,
		detected TEXT NOT NULL,
		method TEXT,
		service TEXT,
		fallback BOOLEAN DEFAULT FALSE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- detection_cache holds remote detector answers so repeated messages skip the network
	CREATE TABLE IF NOT EXISTS detection_cache (
		id TEXT PRIMARY KEY,
		text TEXT NOT NULL UNIQUE,
		language TEXT NOT NULL,
		service TEXT,
		usage_count INTEGER DEFAULT 1,
		invalidated BOOLEAN DEFAULT FALSE,
		last_used TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_detections_created ON detections(created_at);
	CREATE INDEX IF NOT EXISTS idx_cache_lookup ON detection_cache(text);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveDetection appends rec to the detection log. Empty ID and zero
// Timestamp are filled in.
func (s *Store) SaveDetection(ctx context.Context, rec internal.DetectionRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO detections (id, text, selected, detected, method, service, fallback, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Text, rec.Selected, rec.Detected, rec.Method, rec.Service, rec.Fallback, rec.Timestamp)
	return rec.ID, err
}

// ListDetections returns the most recent detections first. limit <= 0 returns all.
func (s *Store) ListDetections(ctx context.Context, limit int) ([]internal.DetectionRecord, error) {
	query := `SELECT id, text, selected, detected, method, service, fallback, created_at FROM detections ORDER BY created_at DESC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []internal.DetectionRecord
	for rows.Next() {
		var r internal.DetectionRecord
		if err := rows.Scan(&r.ID, &r.Text, &r.Selected, &r.Detected, &r.Method, &r.Service, &r.Fallback, &r.Timestamp); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetCachedDetection returns the cached language for text, bumping its usage
// count. Invalidated entries are reported as misses.
func (s *Store) GetCachedDetection(ctx context.Context, text string) (language, service string, found bool, err error) {
	key := normalizeText(text)

	var invalidated bool
	err = s.db.QueryRowContext(ctx,
		`SELECT language, service, invalidated FROM detection_cache WHERE text = ?`,
		key).Scan(&language, &service, &invalidated)

	if err == sql.ErrNoRows {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, err
	}

	if invalidated {
		return "", "", false, nil
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE detection_cache SET usage_count = usage_count + 1, last_used = ? WHERE text = ?`,
		time.Now(), key)

	return language, service, true, err
}

// SaveCachedDetection stores or replaces the cached language for text.
func (s *Store) SaveCachedDetection(ctx context.Context, text, language, service string) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO detection_cache (id, text, language, service, usage_count, invalidated, last_used, created_at) VALUES (?, ?, ?, ?, 1, FALSE, ?, ?)`,
		uuid.NewString(), normalizeText(text), language, service, now, now)
	return err
}

// Lookup and Remember let the store back the orchestrator's cache.
func (s *Store) Lookup(ctx context.Context, text string) (string, string, bool, error) {
	return s.GetCachedDetection(ctx, text)
}

func (s *Store) Remember(ctx context.Context, text, language, service string) error {
	return s.SaveCachedDetection(ctx, text, language, service)
}

// CacheEntry is a row from the detection_cache table.
type CacheEntry struct {
	ID          string
	Text        string
	Language    string
	Service     string
	UsageCount  int
	Invalidated bool
	LastUsed    time.Time
}

// CacheStats summarises detection cache usage.
type CacheStats struct {
	TotalEntries   int
	ActiveEntries  int
	InvalidEntries int
	TotalUsage     int
	Detections     int
	Fallbacks      int
	ByLanguage     map[string]int
}

func (s *Store) InvalidateCache(ctx context.Context, id string) error {
	return s.execOne(ctx, `UPDATE detection_cache SET invalidated = TRUE WHERE id = ?`, id)
}

// DeleteCache permanently removes a cache entry by ID.
func (s *Store) DeleteCache(ctx context.Context, id string) error {
	return s.execOne(ctx, `DELETE FROM detection_cache WHERE id = ?`, id)
}

// ClearCache removes all cache entries.
func (s *Store) ClearCache(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM detection_cache`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListCache returns all cache entries ordered by most recently used.
func (s *Store) ListCache(ctx context.Context) ([]CacheEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, language, service, usage_count, invalidated, last_used FROM detection_cache ORDER BY last_used DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []CacheEntry
	for rows.Next() {
		var e CacheEntry
		if err := rows.Scan(&e.ID, &e.Text, &e.Language, &e.Service, &e.UsageCount, &e.Invalidated, &e.LastUsed); err != nil {
			return nil, err
		}
		results = append(results, e)
	}

	return results, rows.Err()
}

// Stats returns summary statistics for the cache and the detection log.
func (s *Store) Stats(ctx context.Context) (*CacheStats, error) {
	stats := &CacheStats{ByLanguage: make(map[string]int)}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN NOT invalidated THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN invalidated THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(usage_count), 0)
		FROM detection_cache`).Scan(
		&stats.TotalEntries,
		&stats.ActiveEntries,
		&stats.InvalidEntries,
		&stats.TotalUsage,
	)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN fallback THEN 1 ELSE 0 END), 0)
		FROM detections`).Scan(&stats.Detections, &stats.Fallbacks)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT detected, COUNT(*) FROM detections GROUP BY detected`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var lang string
		var n int
		if err := rows.Scan(&lang, &n); err != nil {
			return nil, err
		}
		stats.ByLanguage[lang] = n
	}
	return stats, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) execOne(ctx context.Context, query, id string) error {
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("cache entry not found: %s", id)
	}
	return nil
}

// normalizeText trims whitespace, lowercases and applies Unicode NFC
// normalization for consistent cache key comparison.
func normalizeText(text string) string {
	return norm.NFC.String(strings.ToLower(strings.TrimSpace(text)))
}
