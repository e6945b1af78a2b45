package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vibelymap/pkg/database"
)

// SQLEventStore stores events in a SQL table with ordered IDs.
// Table schema:
// CREATE TABLE IF NOT EXISTS place_events (
//   id BIGINT AUTO_INCREMENT PRIMARY KEY,
//   place_id VARCHAR(255) NOT NULL,
//   type VARCHAR(64) NOT NULL,
//   at DATETIME(6) NOT NULL,
//   data JSON NOT NULL,
//   KEY idx_place_id (place_id),
//   KEY idx_place_time (place_id, id)
// );
// NOTE: JSON may be emulated as LONGTEXT on older MySQL variants.

type SQLEventStore struct {
	db *database.DB
}

func NewSQLEventStore(db *database.DB) (*SQLEventStore, error) {
	s := &SQLEventStore{db: db}
	if err := s.ensureTable(); err != nil {
		return nil, fmt.Errorf("ensure place_events table: %w", err)
	}
	return s, nil
}

func (s *SQLEventStore) ensureTable() error {
	qry := `CREATE TABLE IF NOT EXISTS place_events (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		place_id VARCHAR(255) NOT NULL,
		type VARCHAR(64) NOT NULL,
		at DATETIME(6) NOT NULL,
		data JSON NOT NULL,
		KEY idx_place_id (place_id),
		KEY idx_place_time (place_id, id)
	)`
	_, err := s.db.Conn().Exec(qry)
	return err
}

func (s *SQLEventStore) Append(ctx context.Context, e Event) error {
	payload, err := e.MarshalData()
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	at := e.Timestamp()
	if at.IsZero() {
		at = time.Now()
	}

	_, err = s.db.Conn().ExecContext(ctx,
		`INSERT INTO place_events (place_id, type, at, data) VALUES (?,?,?,?)`,
		e.PlaceID(), e.Type(), at, string(payload))
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *SQLEventStore) ListByPlace(ctx context.Context, placeID string) ([]StoredEvent, error) {
	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT id, place_id, type, at, data FROM place_events WHERE place_id = ? ORDER BY id ASC`, placeID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *SQLEventStore) ListRecent(ctx context.Context, limit int) ([]StoredEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT id, place_id, type, at, data FROM place_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanEvents(rows rowScanner) ([]StoredEvent, error) {
	var out []StoredEvent
	for rows.Next() {
		var se StoredEvent
		var dataStr string
		if err := rows.Scan(&se.Seq, &se.PlaceID, &se.Type, &se.Ts, &dataStr); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		se.Payload = json.RawMessage(dataStr)
		out = append(out, se)
	}
	return out, rows.Err()
}

// History rebuilds the summarized analysis history for one place.
func (s *SQLEventStore) History(ctx context.Context, placeID string) (*PlaceHistory, error) {
	evs, err := s.ListByPlace(ctx, placeID)
	if err != nil {
		return nil, err
	}
	return Replay(evs), nil
}
