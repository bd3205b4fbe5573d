// Package store persists accumulator snapshots — never raw I/Q samples —
// to sqlite, adapted from internal/storage/sqlite_store.go's
// write/read-connection split and go:embed'd schema. The original stores
// one row per reading plus drone telemetry; this narrows that to one row
// per published snapshot, since a wideband power scanner has no
// telemetry stream and spec.md explicitly excludes persisting raw
// samples.
package store

import (
	"bytes"
	"context"
	"database/sql"
	_ "embed"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Store is a sqlite-backed history of published snapshots.
type Store struct {
	path string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	sessionID int64
}

// Open creates (or attaches to) the sqlite file at path and records a new
// session row for deviceName.
func Open(ctx context.Context, path, deviceName, configJSON string) (*Store, error) {
	s := &Store{path: path}
	db, err := s.getWriteDB()
	if err != nil {
		return nil, err
	}

	var cfg sql.NullString
	if configJSON != "" {
		cfg = sql.NullString{String: configJSON, Valid: true}
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO sessions (start_time, device_name, config) VALUES (CURRENT_TIMESTAMP, ?, ?)`,
		deviceName, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	s.sessionID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting session id: %w", err)
	}
	return s, nil
}

func (s *Store) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL", s.path))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}
		if _, err = db.Exec(schemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}
		s.writeDB = db
	})
	return s.writeDB, s.writeDBErr
}

func (s *Store) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", s.path))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})
	return s.readDB, s.readDBErr
}

// SnapshotRecord is one persisted row, shaped to match
// publisher.SnapshotView so /history can serve it directly.
type SnapshotRecord struct {
	TakenAt             time.Time `json:"taken_at"`
	StartFrequency      int64     `json:"start_frequency_hz"`
	FrequencyResolution uint      `json:"frequency_resolution_hz"`
	AccumulationCount   uint64    `json:"accumulation_count"`
	PowerDB             []float32 `json:"power_db"`
}

// Append writes one snapshot row.
func (s *Store) Append(ctx context.Context, rec SnapshotRecord) error {
	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, rec.PowerDB); err != nil {
		return fmt.Errorf("encoding power bins: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO snapshots (session_id, taken_at, start_frequency, frequency_resolution, accumulation_count, power_db)
         VALUES (?, ?, ?, ?, ?, ?)`,
		s.sessionID, rec.TakenAt.UTC(), rec.StartFrequency, rec.FrequencyResolution, rec.AccumulationCount, buf.Bytes())
	if err != nil {
		return fmt.Errorf("inserting snapshot: %w", err)
	}
	return nil
}

// RecentSnapshots returns up to limit most recent snapshots for the
// current session, newest last.
func (s *Store) RecentSnapshots(ctx context.Context, limit int) ([]SnapshotRecord, error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT taken_at, start_frequency, frequency_resolution, accumulation_count, power_db
         FROM snapshots WHERE session_id = ? ORDER BY taken_at DESC LIMIT ?`,
		s.sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	var out []SnapshotRecord
	for rows.Next() {
		var rec SnapshotRecord
		var blob []byte
		if err := rows.Scan(&rec.TakenAt, &rec.StartFrequency, &rec.FrequencyResolution, &rec.AccumulationCount, &blob); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		rec.PowerDB = make([]float32, len(blob)/4)
		if err := binary.Read(bytes.NewReader(blob), binary.LittleEndian, rec.PowerDB); err != nil {
			return nil, fmt.Errorf("decoding power bins: %w", err)
		}
		out = append(out, rec)
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, rows.Err()
}

// Close releases both the read and write connections.
func (s *Store) Close() error {
	var writeErr, readErr error
	if s.writeDB != nil {
		writeErr = s.writeDB.Close()
	}
	if s.readDB != nil {
		readErr = s.readDB.Close()
	}
	if writeErr != nil {
		return writeErr
	}
	return readErr
}
