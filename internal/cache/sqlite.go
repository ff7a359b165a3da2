package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rickoslyder/DentistryExplained-sub002/internal/models"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes
// the cache schema. Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS search_cache (
		cache_key TEXT PRIMARY KEY,
		query TEXT NOT NULL,
		search_type TEXT NOT NULL,
		provider TEXT NOT NULL,
		results TEXT NOT NULL,
		results_count INTEGER NOT NULL,
		processing_time INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL,
		expires_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_search_cache_expires_at ON search_cache(expires_at);
	`
	_, err := db.Exec(schema)
	return err
}

// Get returns the live entry for key. Rows past expires_at are filtered in
// the query itself, so a stale row is never returned even before a sweep.
func (s *SQLiteStore) Get(ctx context.Context, key string) (*models.SearchResponse, error) {
	var (
		query          string
		searchType     string
		resultsJSON    string
		resultsCount   int
		processingTime int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT query, search_type, results, results_count, processing_time
		 FROM search_cache WHERE cache_key = ? AND expires_at > ?`,
		key, time.Now().UTC(),
	).Scan(&query, &searchType, &resultsJSON, &resultsCount, &processingTime)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var results []models.SearchResult
	if err := json.Unmarshal([]byte(resultsJSON), &results); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached results: %w", err)
	}

	return &models.SearchResponse{
		Query:            query,
		Results:          results,
		TotalResults:     resultsCount,
		SearchType:       models.SearchType(searchType),
		ProcessingTimeMs: processingTime,
	}, nil
}

// Put upserts the response under key. The write is keyed on cache_key so
// concurrent writers converge to a single row.
func (s *SQLiteStore) Put(ctx context.Context, key string, resp *models.SearchResponse, provider models.Provider, ttl time.Duration) error {
	resultsJSON, err := json.Marshal(resp.Results)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO search_cache
		 (cache_key, query, search_type, provider, results, results_count, processing_time, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET
		   query = excluded.query,
		   search_type = excluded.search_type,
		   provider = excluded.provider,
		   results = excluded.results,
		   results_count = excluded.results_count,
		   processing_time = excluded.processing_time,
		   created_at = excluded.created_at,
		   expires_at = excluded.expires_at`,
		key, resp.Query, string(resp.SearchType), string(provider),
		string(resultsJSON), resp.TotalResults, resp.ProcessingTimeMs,
		now, now.Add(ttl),
	)
	return err
}

// SweepExpired deletes all rows past their expiry and returns the count.
// Safe to run concurrently with reads and writes: it only removes rows Get
// already refuses to return.
func (s *SQLiteStore) SweepExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM search_cache WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Stats returns entry counts and creation-time bounds. The bounds are read
// with ordered single-row queries rather than MIN/MAX because aggregate
// results lose the column's timestamp type through the driver.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM search_cache`).Scan(&stats.TotalEntries); err != nil {
		return nil, err
	}
	if stats.TotalEntries == 0 {
		return &stats, nil
	}

	var oldest, newest time.Time
	if err := s.db.QueryRowContext(ctx,
		`SELECT created_at FROM search_cache ORDER BY created_at ASC LIMIT 1`).Scan(&oldest); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT created_at FROM search_cache ORDER BY created_at DESC LIMIT 1`).Scan(&newest); err != nil {
		return nil, err
	}
	stats.OldestEntry = &oldest
	stats.NewestEntry = &newest
	return &stats, nil
}

// Clear wipes the cache unconditionally.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM search_cache`)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
