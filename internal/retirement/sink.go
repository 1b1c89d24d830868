// Package retirement implements the relational retirement-record sink
// (C10): on retirement, records are dispatched asynchronously so the
// simulator never blocks on I/O, with bounded-retry-then-drop on failure.
// Schema and query set are grounded on
// original_source/sprint4/.../game_server/src/db/database.h and .cpp
// (exact table/index, exact Records pagination query); the connection pool
// itself uses database/sql's own pool rather than hand-rolling the
// reference's mutex/condition-variable ConnectionPool, since database/sql
// already gives Go the "borrower blocks until a connection is free, core
// never borrows synchronously" guarantee that pool exists for.
package retirement

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/wricardo/scavenger-game-server/internal/applog"
	"github.com/wricardo/scavenger-game-server/internal/sim"
)

// Record is one row of the retired_players table.
type Record struct {
	UUID     string
	Name     string
	Score    int
	PlayTime float64 // seconds
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS retired_players (
	uuid UUID PRIMARY KEY,
	name VARCHAR(100) NOT NULL,
	score INTEGER NOT NULL,
	playtime DOUBLE PRECISION NOT NULL
);
CREATE INDEX IF NOT EXISTS retired_players_score_idx
	ON retired_players (score DESC, playtime ASC, name ASC);
`

const maxRetries = 5

// clampLimit enforces the API contract's default/maximum page size.
func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 100
	}
	return limit
}

// Sink dispatches retirement records to a Postgres-compatible database via
// pgx's database/sql driver, off the strand, with a bounded in-memory retry
// queue.
type Sink struct {
	db *sql.DB

	mu      sync.Mutex
	pending []pendingRecord

	inflight sync.WaitGroup // tracks Enqueue's dispatch goroutines
	stop     chan struct{}
	loopDone chan struct{}
}

type pendingRecord struct {
	rec     Record
	retries int
}

// Open connects to dbURL, sizing the pool at hardware concurrency (mirroring
// the reference pool's hardware_concurrency() sizing), and ensures the
// schema exists.
func Open(ctx context.Context, dbURL string) (*Sink, error) {
	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return nil, fmt.Errorf("retirement: open: %w", err)
	}
	db.SetMaxOpenConns(runtime.NumCPU())

	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("retirement: ensure schema: %w", err)
	}

	s := &Sink{db: db, stop: make(chan struct{}), loopDone: make(chan struct{})}
	go s.retryLoop(context.Background())
	return s, nil
}

// Close releases the underlying connection pool. Call Drain first so
// in-flight and pending inserts are not silently lost on shutdown.
func (s *Sink) Close() error { return s.db.Close() }

// Drain waits for Enqueue's in-flight dispatch goroutines, stops the
// background retry loop, and performs one final synchronous flush of
// whatever is still pending -- the shutdown-time counterpart to Enqueue's
// async dispatch, so spec's "drain in-flight retirement inserts before
// exit" holds even though inserts never block the strand. ctx bounds how
// long shutdown can block waiting on in-flight work or the database.
func (s *Sink) Drain(ctx context.Context) {
	waited := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-ctx.Done():
		applog.Warnf("retirement: drain timed out waiting for in-flight inserts")
	}

	close(s.stop)
	<-s.loopDone

	s.flushPending(ctx)
}

// Enqueue implements sim.RetirementSink: it never blocks the caller on I/O.
// Each retired player gets a fresh UUID (not derived from the player id),
// satisfying the at-least-once-but-never-duplicated delivery guarantee.
func (s *Sink) Enqueue(ctx context.Context, records []sim.RetiredRecord) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		for _, rr := range records {
			rec := Record{
				UUID:     uuid.NewString(),
				Name:     rr.Name,
				Score:    rr.Score,
				PlayTime: float64(rr.PlayTimeMs) / 1000.0,
			}
			if err := s.insert(context.Background(), rec); err != nil {
				applog.Warnf("retirement: insert failed, queuing retry: %v", err)
				s.mu.Lock()
				s.pending = append(s.pending, pendingRecord{rec: rec})
				s.mu.Unlock()
			}
		}
	}()
}

func (s *Sink) insert(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO retired_players (uuid, name, score, playtime) VALUES ($1, $2, $3, $4)`,
		rec.UUID, rec.Name, rec.Score, rec.PlayTime)
	return err
}

// retryLoop drains the pending queue with bounded backoff until Drain
// closes stop.
func (s *Sink) retryLoop(ctx context.Context) {
	defer close(s.loopDone)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.flushPending(ctx)
		}
	}
}

// flushPending retries every queued record once, dropping and logging at
// error severity any record whose failed retries reach maxRetries.
func (s *Sink) flushPending(ctx context.Context) {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	var stillPending []pendingRecord
	for _, pr := range batch {
		if err := s.insert(ctx, pr.rec); err != nil {
			pr.retries++
			if pr.retries >= maxRetries {
				applog.Errorf("retirement: dropping record %s after %d retries: %v", pr.rec.UUID, pr.retries, err)
				continue
			}
			stillPending = append(stillPending, pr)
		}
	}
	if len(stillPending) > 0 {
		s.mu.Lock()
		s.pending = append(s.pending, stillPending...)
		s.mu.Unlock()
	}
}

// Records returns retired-player records ordered by (score DESC, playtime
// ASC, name ASC), the same ordering the index enforces, paginated.
func (s *Sink) Records(ctx context.Context, offset, limit int) ([]Record, error) {
	limit = clampLimit(limit)
	rows, err := s.db.QueryContext(ctx,
		`SELECT uuid, name, score, playtime FROM retired_players
		 ORDER BY score DESC, playtime ASC, name ASC
		 OFFSET $1 LIMIT $2`, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("retirement: query records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.UUID, &r.Name, &r.Score, &r.PlayTime); err != nil {
			return nil, fmt.Errorf("retirement: scan record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
