package analytics

import "chograce/internal/db"

type BadgeID string

const (
	BadgePodium       BadgeID = "podium"
	BadgeSpeedster    BadgeID = "speedster"
	BadgeSharpshooter BadgeID = "sharpshooter"
	BadgeFlawless     BadgeID = "flawless"
	BadgeUnstoppable  BadgeID = "unstoppable"
	BadgeVeteran      BadgeID = "veteran"
)

type Badge struct {
	ID          BadgeID `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
}

var AllBadges = map[BadgeID]Badge{
	BadgePodium:       {ID: BadgePodium, Name: "Podium", Description: "Finished a race in the top 3", Icon: "🏆"},
	BadgeSpeedster:    {ID: BadgeSpeedster, Name: "Speedster", Description: "Finished a race in under 30 seconds", Icon: "⚡"},
	BadgeSharpshooter: {ID: BadgeSharpshooter, Name: "Sharpshooter", Description: "90%+ accuracy over a full race", Icon: "🎯"},
	BadgeFlawless:     {ID: BadgeFlawless, Name: "Flawless", Description: "Finished a race without a single miss", Icon: "✨"},
	BadgeUnstoppable:  {ID: BadgeUnstoppable, Name: "Unstoppable", Description: "3-race win streak", Icon: "🔥"},
	BadgeVeteran:      {ID: BadgeVeteran, Name: "Veteran", Description: "Raced 10+ times", Icon: "🏅"},
}

const speedsterMs = 30_000

// EvaluateRaceBadges checks which badges a player earned in a single race.
func EvaluateRaceBadges(stats PlayerRaceStats) []Badge {
	var earned []Badge

	if stats.Finished && stats.FinishPlace >= 1 && stats.FinishPlace <= 3 {
		earned = append(earned, AllBadges[BadgePodium])
	}

	if stats.Finished && stats.CompletionMs != nil && *stats.CompletionMs < speedsterMs {
		earned = append(earned, AllBadges[BadgeSpeedster])
	}

	// Accuracy only counts once the player has tried as many times as a
	// full race needs.
	if stats.MaxHits > 0 && stats.Attempts >= stats.MaxHits && stats.Accuracy >= 90.0 {
		earned = append(earned, AllBadges[BadgeSharpshooter])
	}

	if stats.Finished && stats.Attempts > 0 && stats.Attempts == stats.Hits {
		earned = append(earned, AllBadges[BadgeFlawless])
	}

	return earned
}

// EvaluateLifetimeBadges checks which badges a player earned across their career.
func EvaluateLifetimeBadges(stats PlayerLifetimeStats) []Badge {
	var earned []Badge

	if stats.WinStreak >= 3 {
		earned = append(earned, AllBadges[BadgeUnstoppable])
	}

	if stats.RacesPlayed >= 10 {
		earned = append(earned, AllBadges[BadgeVeteran])
	}

	return earned
}

// mergeBadges lists stored awards first, then career badges not yet stored.
// Unknown stored ids are skipped.
func mergeBadges(earned []db.EarnedBadge, career []Badge) []Badge {
	out := []Badge{}
	seen := make(map[BadgeID]bool)
	for _, e := range earned {
		b, ok := AllBadges[BadgeID(e.ID)]
		if !ok || seen[b.ID] {
			continue
		}
		seen[b.ID] = true
		out = append(out, b)
	}
	for _, b := range career {
		if !seen[b.ID] {
			seen[b.ID] = true
			out = append(out, b)
		}
	}
	return out
}
