// Package storage defines the persistence contracts for finished-game
// records.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// GameResultRecord is the archived outcome of one finished session. Live
// session state is never persisted; only terminal results are.
type GameResultRecord struct {
	ID           string
	RoomID       string
	Preset       string
	Result       string
	Score        int
	Reason       string
	Rounds       int
	FinalMetrics map[string]int
	EndedAt      time.Time
}

// ResultStore archives finished-game results.
type ResultStore interface {
	// SaveResult persists one finished-game record.
	SaveResult(ctx context.Context, record GameResultRecord) error
	// RecentResults returns the most recently ended games, newest first.
	RecentResults(ctx context.Context, limit int) ([]GameResultRecord, error)
}
