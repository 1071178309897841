package db

import (
	"fmt"
	"time"
)

type RaceRecord struct {
	ID        string
	RoomCode  string
	HostID    string
	MaxHits   int
	StartedAt time.Time
	EndedAt   *time.Time
	EndReason string
}

// RacePlayerResult is one player's final line in a race.
type RacePlayerResult struct {
	PlayerID     string
	Hits         int
	Finished     bool
	FinishPlace  int
	Rank         int
	CompletionMs *int64
}

func (d *DB) CreateRace(id, roomCode, hostID string, maxHits int, startedAt time.Time) error {
	_, err := d.conn.Exec(`
		INSERT INTO races (id, room_code, host_id, max_hits, started_at)
		VALUES ($1, $2, $3, $4, $5)
	`, id, roomCode, hostID, maxHits, startedAt)
	if err != nil {
		return fmt.Errorf("creating race: %w", err)
	}
	return nil
}

func (d *DB) EndRace(raceID, reason string, endedAt time.Time) error {
	_, err := d.conn.Exec(`
		UPDATE races SET ended_at = $2, end_reason = $3 WHERE id = $1
	`, raceID, endedAt, reason)
	if err != nil {
		return fmt.Errorf("ending race: %w", err)
	}
	return nil
}

func (d *DB) AddRacePlayer(raceID string, res RacePlayerResult) error {
	_, err := d.conn.Exec(`
		INSERT INTO race_players (race_id, player_id, hits, finished, finish_place, rank, completion_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (race_id, player_id) DO UPDATE
		SET hits = $3, finished = $4, finish_place = $5, rank = $6, completion_ms = $7
	`, raceID, res.PlayerID, res.Hits, res.Finished, res.FinishPlace, res.Rank, res.CompletionMs)
	if err != nil {
		return fmt.Errorf("adding race player: %w", err)
	}
	return nil
}

func (d *DB) GetRace(id string) (*RaceRecord, error) {
	var r RaceRecord
	err := d.conn.QueryRow(`
		SELECT id, room_code, host_id, max_hits, started_at, ended_at, end_reason
		FROM races WHERE id = $1
	`, id).Scan(&r.ID, &r.RoomCode, &r.HostID, &r.MaxHits, &r.StartedAt, &r.EndedAt, &r.EndReason)
	if err != nil {
		return nil, fmt.Errorf("getting race: %w", err)
	}
	return &r, nil
}
