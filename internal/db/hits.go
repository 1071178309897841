package db

import (
	"fmt"
	"time"
)

// HitEvent is one move attempt. Misses are kept for accuracy stats.
type HitEvent struct {
	RaceID   string
	PlayerID string
	Success  bool
	Hits     int
	At       time.Time
}

func (d *DB) RecordHit(ev HitEvent) error {
	_, err := d.conn.Exec(`
		INSERT INTO hit_events (race_id, player_id, success, hits, at)
		VALUES ($1, $2, $3, $4, $5)
	`, ev.RaceID, ev.PlayerID, ev.Success, ev.Hits, ev.At)
	if err != nil {
		return fmt.Errorf("recording hit: %w", err)
	}
	return nil
}

func (d *DB) BatchRecordHits(events []HitEvent) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO hit_events (race_id, player_id, success, hits, at)
		VALUES ($1, $2, $3, $4, $5)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		if _, err := stmt.Exec(ev.RaceID, ev.PlayerID, ev.Success, ev.Hits, ev.At); err != nil {
			return fmt.Errorf("recording hit in batch: %w", err)
		}
	}

	return tx.Commit()
}
