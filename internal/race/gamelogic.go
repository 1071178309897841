package race

import (
	"fmt"
	"time"
)

// Move bar geometry shared with the browser client, in CSS pixels.
const (
	BarWidth       = 320
	CursorWidth    = 6
	MinTargetWidth = 24
)

// BarSettings is the difficulty of the move bar for a given hit count.
type BarSettings struct {
	Speed       float64 `json:"speed"`
	TargetWidth int     `json:"targetWidth"`
}

// MoveGameSettings speeds the cursor up and narrows the target with every
// hit.
func MoveGameSettings(hits int) BarSettings {
	return BarSettings{
		Speed:       3 + float64(hits)*0.8,
		TargetWidth: max(MinTargetWidth, 80-hits*6),
	}
}

// HitTest reports whether the centre of the cursor at cursorPos lies inside
// the target zone.
func HitTest(cursorPos float64, targetStart, targetWidth int) bool {
	center := cursorPos + CursorWidth/2.0
	return center >= float64(targetStart) && center <= float64(targetStart+targetWidth)
}

func TrophyEmoji(place int) string {
	switch place {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return ""
	}
}

// DisplayStatus maps a race status onto the labels the client renders.
func DisplayStatus(s Status) string {
	switch s {
	case StatusRacing:
		return "racing"
	case StatusFinished:
		return "finished"
	default:
		return "idle"
	}
}

// FormatCompletionTime renders durations as "2m 15s" or "45s".
func FormatCompletionTime(d time.Duration) string {
	seconds := int(d / time.Second)
	minutes := seconds / 60
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds%60)
	}
	return fmt.Sprintf("%ds", seconds%60)
}
