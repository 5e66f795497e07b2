// Package sqlite provides the SQLite-backed result archive.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ashfall-games/parlor/internal/platform/storage/sqlitemigrate"
	"github.com/ashfall-games/parlor/internal/storage"
	"github.com/ashfall-games/parlor/internal/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed persistence for finished-game results.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite store at the provided path and applies migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := sqlitemigrate.Apply(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// DB returns the underlying sql.DB instance.
func (s *Store) DB() *sql.DB {
	if s == nil {
		return nil
	}
	return s.sqlDB
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func encodeMetrics(metrics map[string]int) (string, error) {
	if len(metrics) == 0 {
		return "{}", nil
	}
	encoded, err := json.Marshal(metrics)
	if err != nil {
		return "", fmt.Errorf("marshal metrics: %w", err)
	}
	return string(encoded), nil
}

func decodeMetrics(value string) (map[string]int, error) {
	value = strings.TrimSpace(value)
	if value == "" || value == "{}" {
		return nil, nil
	}
	var metrics map[string]int
	if err := json.Unmarshal([]byte(value), &metrics); err != nil {
		return nil, fmt.Errorf("unmarshal metrics: %w", err)
	}
	return metrics, nil
}

// SaveResult persists one finished-game record.
func (s *Store) SaveResult(ctx context.Context, record storage.GameResultRecord) error {
	metricsRaw, err := encodeMetrics(record.FinalMetrics)
	if err != nil {
		return err
	}
	_, err = s.sqlDB.ExecContext(ctx, `
		INSERT INTO game_results (id, room_id, preset, result, score, reason, rounds, final_metrics, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.RoomID,
		record.Preset,
		record.Result,
		record.Score,
		record.Reason,
		record.Rounds,
		metricsRaw,
		toMillis(record.EndedAt),
	)
	if err != nil {
		return fmt.Errorf("insert game result: %w", err)
	}
	return nil
}

// RecentResults returns the most recently ended games, newest first.
func (s *Store) RecentResults(ctx context.Context, limit int) ([]storage.GameResultRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
		SELECT id, room_id, preset, result, score, reason, rounds, final_metrics, ended_at
		FROM game_results
		ORDER BY ended_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query game results: %w", err)
	}
	defer rows.Close()

	var records []storage.GameResultRecord
	for rows.Next() {
		var (
			rec        storage.GameResultRecord
			metricsRaw string
			endedAt    int64
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.RoomID,
			&rec.Preset,
			&rec.Result,
			&rec.Score,
			&rec.Reason,
			&rec.Rounds,
			&metricsRaw,
			&endedAt,
		); err != nil {
			return nil, fmt.Errorf("scan game result: %w", err)
		}
		metrics, err := decodeMetrics(metricsRaw)
		if err != nil {
			return nil, err
		}
		rec.FinalMetrics = metrics
		rec.EndedAt = fromMillis(endedAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate game results: %w", err)
	}
	return records, nil
}
