// Package replica folds a sequenced command log into copies of the shared
// race state. Every peer owns a Replica; the session owns the Log that
// numbers commands.
package replica

import (
	"time"

	"chograce/internal/race"
)

type Kind string

const (
	KindJoin       = Kind("join")
	KindLeave      = Kind("leave")
	KindStart      = Kind("start")
	KindEnd        = Kind("end")
	KindReset      = Kind("reset")
	KindMove       = Kind("move")
	KindForceReset = Kind("force_reset")
)

// Command is one invocation of a shared race function. Seq and At are
// assigned by the Log.
type Command struct {
	Seq    uint64           `json:"seq"`
	Kind   Kind             `json:"k"`
	PeerID string           `json:"id,omitempty"`
	Player *race.PlayerData `json:"p,omitempty"`
	Reason race.Reason      `json:"r,omitempty"`
	At     time.Time        `json:"at"`
}

// Rules are the deployment-wide settings every replica must agree on.
type Rules struct {
	MaxHits int
	Ledger  race.FinishLedger
}

// Fold applies cmd to s. Timestamps come from cmd.At, so replicas folding
// the same command compute the same state.
func Fold(rules Rules, s *race.State, cmd Command) *race.State {
	r := race.NewReducer(race.FixedClock(cmd.At), rules.MaxHits, rules.Ledger)
	switch cmd.Kind {
	case KindJoin:
		if cmd.Player == nil {
			return s
		}
		return r.AddPlayer(s, *cmd.Player)
	case KindLeave:
		return r.RemovePlayer(s, cmd.PeerID)
	case KindStart:
		return r.StartRace(s)
	case KindEnd:
		return r.EndRace(s)
	case KindReset:
		return r.ResetRace(s)
	case KindMove:
		return r.HandlePlayerMove(s, cmd.PeerID, true)
	case KindForceReset:
		return race.NewState(rules.MaxHits)
	}
	return s
}
