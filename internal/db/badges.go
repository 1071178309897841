package db

import (
	"fmt"
	"time"
)

// EarnedBadge is a stored award. RaceID is nil for career badges.
type EarnedBadge struct {
	ID        string
	RaceID    *string
	AwardedAt time.Time
}

// AwardBadge stores a badge once per player and reports whether this call
// was the first award.
func (d *DB) AwardBadge(playerID, badgeID string, raceID *string) (bool, error) {
	res, err := d.conn.Exec(`
		INSERT INTO player_badges (player_id, badge_id, race_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (player_id, badge_id) DO NOTHING
	`, playerID, badgeID, raceID)
	if err != nil {
		return false, fmt.Errorf("badge %s for player %s: %w", badgeID, playerID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("badge %s for player %s: %w", badgeID, playerID, err)
	}
	return n == 1, nil
}

// EarnedBadges lists a player's stored badges, oldest first.
func (d *DB) EarnedBadges(playerID string) ([]EarnedBadge, error) {
	rows, err := d.conn.Query(`
		SELECT badge_id, race_id, awarded_at
		FROM player_badges
		WHERE player_id = $1
		ORDER BY awarded_at, badge_id
	`, playerID)
	if err != nil {
		return nil, fmt.Errorf("badges of player %s: %w", playerID, err)
	}
	defer rows.Close()

	var earned []EarnedBadge
	for rows.Next() {
		var b EarnedBadge
		if err := rows.Scan(&b.ID, &b.RaceID, &b.AwardedAt); err != nil {
			return nil, fmt.Errorf("badges of player %s: %w", playerID, err)
		}
		earned = append(earned, b)
	}
	return earned, rows.Err()
}
