package db

import (
	"fmt"
	"time"
)

type PlayerRecord struct {
	ID        string
	Name      string
	Color     string
	Logo      string
	CreatedAt time.Time
}

func (d *DB) UpsertPlayer(id, name, color, logo string) error {
	_, err := d.conn.Exec(`
		INSERT INTO players (id, name, color, logo)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = $2, color = $3, logo = $4
	`, id, name, color, logo)
	if err != nil {
		return fmt.Errorf("upserting player: %w", err)
	}
	return nil
}

func (d *DB) GetPlayer(id string) (*PlayerRecord, error) {
	var p PlayerRecord
	err := d.conn.QueryRow(`
		SELECT id, name, color, logo, created_at FROM players WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Color, &p.Logo, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("getting player: %w", err)
	}
	return &p, nil
}
