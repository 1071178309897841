package race

import (
	"fmt"
	"sort"
	"time"
)

type LeaderboardPlayer struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Logo           string         `json:"logo"`
	Hits           int            `json:"hits"`
	CompletionTime *time.Duration `json:"completionTime,omitempty"`
	IsCurrentUser  bool           `json:"isCurrentUser"`
	Place          int            `json:"place"`
}

type LeaderboardData struct {
	Players      []LeaderboardPlayer `json:"players"`
	TotalPlayers int                 `json:"totalPlayers"`
	ShowTrophies int                 `json:"showTrophies"`
}

func emptyLeaderboard() LeaderboardData {
	return LeaderboardData{Players: []LeaderboardPlayer{}}
}

// CreateLeaderboardData ranks players by hits, then by completion time.
// Players without a completion time rank below those with one; remaining
// ties keep their input order. It never fails: any fault yields an empty
// leaderboard.
func CreateLeaderboardData(players []Player, hitsByID map[string]int, completionByID map[string]time.Duration, localID string) (data LeaderboardData) {
	defer func() {
		if r := recover(); r != nil {
			data = emptyLeaderboard()
		}
	}()

	ranked := make([]LeaderboardPlayer, 0, len(players))
	for _, p := range players {
		entry := LeaderboardPlayer{
			ID:            p.ID,
			Name:          p.Name,
			Logo:          p.Logo,
			Hits:          hitsByID[p.ID],
			IsCurrentUser: localID != "" && p.ID == localID,
		}
		if d, ok := completionByID[p.ID]; ok {
			entry.CompletionTime = &d
		}
		ranked = append(ranked, entry)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Hits != b.Hits {
			return a.Hits > b.Hits
		}
		switch {
		case a.CompletionTime != nil && b.CompletionTime != nil:
			return *a.CompletionTime < *b.CompletionTime
		case a.CompletionTime != nil:
			return true
		default:
			return false
		}
	})
	for i := range ranked {
		ranked[i].Place = i + 1
	}

	total := len(players)
	trophies := DefaultPodiumSize
	if total < DefaultPodiumSize {
		trophies = total
	}
	return LeaderboardData{
		Players:      ranked,
		TotalPlayers: total,
		ShowTrophies: trophies,
	}
}

func LeaderboardFromState(s *State, localID string) LeaderboardData {
	if s == nil {
		return emptyLeaderboard()
	}
	return CreateLeaderboardData(GetPlayers(s), HitCounts(s), CompletionTimes(s), localID)
}

// FormatPlayerStats renders "7/10 hits" with the completion time appended
// when the player finished.
func FormatPlayerStats(p LeaderboardPlayer, maxHits int) string {
	if maxHits <= 0 {
		maxHits = DefaultMaxHits
	}
	stats := fmt.Sprintf("%d/%d hits", p.Hits, maxHits)
	if p.CompletionTime != nil {
		return stats + " • " + FormatCompletionTime(*p.CompletionTime)
	}
	return stats
}
