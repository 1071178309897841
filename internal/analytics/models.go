package analytics

import "time"

type PlayerRaceStats struct {
	PlayerID     string  `json:"playerId"`
	PlayerName   string  `json:"playerName"`
	PlayerColor  string  `json:"playerColor"`
	RaceID       string  `json:"raceId"`
	MaxHits      int     `json:"maxHits"`
	Hits         int     `json:"hits"`
	Attempts     int     `json:"attempts"`
	Accuracy     float64 `json:"accuracy"` // percentage of attempts that hit
	Finished     bool    `json:"finished"`
	FinishPlace  int     `json:"finishPlace"`
	Rank         int     `json:"rank"`
	CompletionMs *int64  `json:"completionMs,omitempty"`
}

type PlayerLifetimeStats struct {
	PlayerID      string  `json:"playerId"`
	PlayerName    string  `json:"playerName"`
	PlayerColor   string  `json:"playerColor"`
	RacesPlayed   int     `json:"racesPlayed"`
	RacesFinished int     `json:"racesFinished"`
	TotalHits     int     `json:"totalHits"`
	BestTimeMs    *int64  `json:"bestTimeMs,omitempty"`
	WinCount      int     `json:"winCount"`
	WinStreak     int     `json:"winStreak"`
	Badges        []Badge `json:"badges"`
}

type LeaderboardEntry struct {
	PlayerID    string `json:"playerId"`
	PlayerName  string `json:"playerName"`
	PlayerColor string `json:"playerColor"`
	Value       int64  `json:"value"`
	Rank        int    `json:"rank"`
}

type RaceRecap struct {
	RaceID    string            `json:"raceId"`
	RoomCode  string            `json:"roomCode"`
	StartedAt time.Time         `json:"startedAt"`
	EndedAt   *time.Time        `json:"endedAt,omitempty"`
	EndReason string            `json:"endReason"`
	Players   []PlayerRaceStats `json:"players"`
}
