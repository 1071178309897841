package analytics

import (
	"chograce/internal/db"
	"fmt"
)

type Queries struct {
	DB *db.DB
}

func NewQueries(database *db.DB) *Queries {
	return &Queries{DB: database}
}

func (q *Queries) GetPlayerRaceStats(raceID, playerID string) (*PlayerRaceStats, error) {
	stats := &PlayerRaceStats{
		RaceID:   raceID,
		PlayerID: playerID,
	}

	err := q.DB.QueryRow(`
		SELECT p.name, p.color, r.max_hits, rp.hits, rp.finished, rp.finish_place, rp.rank, rp.completion_ms
		FROM race_players rp
		JOIN players p ON p.id = rp.player_id
		JOIN races r ON r.id = rp.race_id
		WHERE rp.race_id = $1 AND rp.player_id = $2
	`, raceID, playerID).Scan(&stats.PlayerName, &stats.PlayerColor, &stats.MaxHits, &stats.Hits,
		&stats.Finished, &stats.FinishPlace, &stats.Rank, &stats.CompletionMs)
	if err != nil {
		return nil, fmt.Errorf("getting race player: %w", err)
	}

	var hits int
	err = q.DB.QueryRow(`
		SELECT
			COUNT(*) as attempts,
			COUNT(*) FILTER (WHERE success) as hits
		FROM hit_events
		WHERE race_id = $1 AND player_id = $2
	`, raceID, playerID).Scan(&stats.Attempts, &hits)
	if err != nil {
		return nil, fmt.Errorf("getting hit stats: %w", err)
	}

	if stats.Attempts > 0 {
		stats.Accuracy = float64(hits) / float64(stats.Attempts) * 100
	}

	return stats, nil
}

func (q *Queries) GetPlayerLifetimeStats(playerID string) (*PlayerLifetimeStats, error) {
	stats := &PlayerLifetimeStats{
		PlayerID: playerID,
	}

	err := q.DB.QueryRow(`SELECT name, color FROM players WHERE id = $1`, playerID).
		Scan(&stats.PlayerName, &stats.PlayerColor)
	if err != nil {
		return nil, fmt.Errorf("getting player: %w", err)
	}

	err = q.DB.QueryRow(`
		SELECT
			COUNT(*) as races_played,
			COUNT(*) FILTER (WHERE finished) as races_finished,
			COALESCE(SUM(hits), 0) as total_hits,
			MIN(completion_ms) as best_time,
			COUNT(*) FILTER (WHERE rank = 1) as win_count
		FROM race_players
		WHERE player_id = $1
	`, playerID).Scan(&stats.RacesPlayed, &stats.RacesFinished, &stats.TotalHits, &stats.BestTimeMs, &stats.WinCount)
	if err != nil {
		return nil, fmt.Errorf("getting lifetime stats: %w", err)
	}

	// Calculate win streak (most recent consecutive wins)
	rows, err := q.DB.Query(`
		SELECT rp.rank
		FROM race_players rp
		JOIN races r ON r.id = rp.race_id
		WHERE rp.player_id = $1 AND r.ended_at IS NOT NULL
		ORDER BY r.ended_at DESC
	`, playerID)
	if err != nil {
		return nil, fmt.Errorf("getting win streak: %w", err)
	}
	defer rows.Close()

	streak := 0
	for rows.Next() {
		var rank int
		if err := rows.Scan(&rank); err != nil {
			return nil, err
		}
		if rank != 1 {
			break
		}
		streak++
	}
	stats.WinStreak = streak

	earned, err := q.DB.EarnedBadges(playerID)
	if err != nil {
		return nil, fmt.Errorf("getting badges: %w", err)
	}
	stats.Badges = mergeBadges(earned, EvaluateLifetimeBadges(*stats))

	return stats, nil
}

// Leaderboard categories.
const (
	CategoryWins    = "wins"
	CategoryHits    = "hits"
	CategoryFastest = "fastest"
	CategoryRaces   = "races"
)

func (q *Queries) GetLeaderboard(category string, limit int) ([]LeaderboardEntry, error) {
	var query string
	switch category {
	case CategoryWins:
		query = `
			SELECT p.id, p.name, p.color, COUNT(*) FILTER (WHERE rp.rank = 1) as value
			FROM players p
			JOIN race_players rp ON rp.player_id = p.id
			GROUP BY p.id, p.name, p.color
			ORDER BY value DESC
			LIMIT $1`
	case CategoryHits:
		query = `
			SELECT p.id, p.name, p.color, COALESCE(SUM(rp.hits), 0) as value
			FROM players p
			JOIN race_players rp ON rp.player_id = p.id
			GROUP BY p.id, p.name, p.color
			ORDER BY value DESC
			LIMIT $1`
	case CategoryFastest:
		query = `
			SELECT p.id, p.name, p.color, MIN(rp.completion_ms) as value
			FROM players p
			JOIN race_players rp ON rp.player_id = p.id
			WHERE rp.completion_ms IS NOT NULL
			GROUP BY p.id, p.name, p.color
			ORDER BY value ASC
			LIMIT $1`
	case CategoryRaces:
		query = `
			SELECT p.id, p.name, p.color, COUNT(*) as value
			FROM players p
			JOIN race_players rp ON rp.player_id = p.id
			GROUP BY p.id, p.name, p.color
			ORDER BY value DESC
			LIMIT $1`
	default:
		return nil, fmt.Errorf("unknown leaderboard category: %s", category)
	}

	rows, err := q.DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("getting leaderboard: %w", err)
	}
	defer rows.Close()

	entries := []LeaderboardEntry{}
	rank := 1
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.PlayerID, &e.PlayerName, &e.PlayerColor, &e.Value); err != nil {
			return nil, err
		}
		e.Rank = rank
		rank++
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (q *Queries) GetRaceRecap(raceID string) (*RaceRecap, error) {
	race, err := q.DB.GetRace(raceID)
	if err != nil {
		return nil, err
	}
	recap := &RaceRecap{
		RaceID:    race.ID,
		RoomCode:  race.RoomCode,
		StartedAt: race.StartedAt,
		EndedAt:   race.EndedAt,
		EndReason: race.EndReason,
		Players:   []PlayerRaceStats{},
	}

	rows, err := q.DB.Query(`
		SELECT rp.player_id FROM race_players rp WHERE rp.race_id = $1 ORDER BY rp.rank
	`, raceID)
	if err != nil {
		return nil, fmt.Errorf("getting race players: %w", err)
	}
	var playerIDs []string
	for rows.Next() {
		var playerID string
		if err := rows.Scan(&playerID); err != nil {
			rows.Close()
			return nil, err
		}
		playerIDs = append(playerIDs, playerID)
	}
	rows.Close()

	for _, playerID := range playerIDs {
		stats, err := q.GetPlayerRaceStats(raceID, playerID)
		if err != nil {
			return nil, err
		}
		recap.Players = append(recap.Players, *stats)
	}

	return recap, nil
}
