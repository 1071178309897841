package race

import (
	"fmt"
	"sort"
)

// FinishLedger controls what happens to a departed player's finish record.
type FinishLedger string

const (
	// LedgerRetain keeps removed players in FinishOrder as history.
	LedgerRetain = FinishLedger("retain")
	// LedgerScrub drops removed players from FinishOrder and renumbers the
	// remaining finishers.
	LedgerScrub = FinishLedger("scrub")
)

func ParseFinishLedger(v string) (FinishLedger, error) {
	switch FinishLedger(v) {
	case LedgerRetain, LedgerScrub:
		return FinishLedger(v), nil
	case "":
		return LedgerRetain, nil
	}
	return "", fmt.Errorf("unknown finish ledger %q", v)
}

// Reducer holds the capabilities the race transitions depend on. Every
// method accepts a nil state and substitutes a fresh one.
type Reducer struct {
	Clock   Clock
	MaxHits int
	Ledger  FinishLedger
}

func NewReducer(clock Clock, maxHits int, ledger FinishLedger) Reducer {
	if clock == nil {
		clock = SystemClock{}
	}
	if ledger == "" {
		ledger = LedgerRetain
	}
	return Reducer{Clock: clock, MaxHits: maxHits, Ledger: ledger}
}

func (r Reducer) initial() *State {
	return NewState(r.MaxHits)
}

func (r Reducer) now() Clock {
	if r.Clock == nil {
		return SystemClock{}
	}
	return r.Clock
}

// AddPlayer inserts the player with zeroed race fields. Re-adding an id
// overwrites the existing entry but keeps its join position.
func (r Reducer) AddPlayer(s *State, data PlayerData) *State {
	if s == nil {
		s = r.initial()
	}
	next := s.Clone()
	joined := 0
	if prev, ok := next.Players[data.ID]; ok {
		joined = prev.Joined
	} else {
		for _, p := range next.Players {
			joined = max(joined, p.Joined)
		}
		joined++
	}
	next.Players[data.ID] = Player{
		ID:     data.ID,
		Name:   data.Name,
		Logo:   data.Logo,
		Color:  data.Color,
		Joined: joined,
	}
	return next
}

func (r Reducer) RemovePlayer(s *State, playerID string) *State {
	if s == nil {
		return r.initial()
	}
	if _, ok := s.Players[playerID]; !ok {
		return s
	}
	next := s.Clone()
	delete(next.Players, playerID)

	if r.Ledger == LedgerScrub {
		order := next.FinishOrder[:0]
		for _, id := range next.FinishOrder {
			if id != playerID {
				order = append(order, id)
			}
		}
		next.FinishOrder = order
		for i, id := range next.FinishOrder {
			if p, ok := next.Players[id]; ok {
				p.Place = i + 1
				next.Players[id] = p
			}
		}
	}
	return next
}

// StartRace moves a waiting race with at least one player into racing and
// zeroes every player. Any other state is returned unchanged.
func (r Reducer) StartRace(s *State) *State {
	if s == nil {
		return r.initial()
	}
	if s.Status != StatusWaiting || len(s.Players) == 0 {
		return s
	}
	next := s.Clone()
	now := r.now().Now()
	next.Status = StatusRacing
	next.StartTime = &now
	next.FinishOrder = []string{}
	for id, p := range next.Players {
		next.Players[id] = p.resetProgress()
	}
	return next
}

func (r Reducer) EndRace(s *State) *State {
	if s == nil {
		return r.initial()
	}
	next := s.Clone()
	next.Status = StatusFinished
	return next
}

// ResetRace returns to waiting while keeping the roster joined.
func (r Reducer) ResetRace(s *State) *State {
	if s == nil {
		return r.initial()
	}
	next := s.Clone()
	next.Status = StatusWaiting
	next.FinishOrder = []string{}
	next.StartTime = nil
	for id, p := range next.Players {
		next.Players[id] = p.resetProgress()
	}
	return next
}

func (r Reducer) HandlePlayerMove(s *State, playerID string, success bool) *State {
	if s == nil {
		return r.initial()
	}
	player, ok := s.Players[playerID]
	if !ok || s.Status != StatusRacing || player.Finished || !success {
		return s
	}

	maxHits := s.MaxHits
	if maxHits <= 0 {
		maxHits = DefaultMaxHits
	}

	next := s.Clone()
	player.Hits++
	player.Progress = min(1, float64(player.Hits)/float64(maxHits))
	player.Finished = player.Hits >= maxHits
	if player.Finished {
		now := r.now().Now()
		next.FinishOrder = append(next.FinishOrder, playerID)
		player.Place = len(next.FinishOrder)
		player.FinishedAt = &now
	}
	next.Players[playerID] = player

	allFinished := true
	for _, p := range next.Players {
		if !p.Finished {
			allFinished = false
			break
		}
	}
	if allFinished {
		next.Status = StatusFinished
	}
	return next
}

func GetPlayer(s *State, playerID string) (Player, bool) {
	if s == nil || s.Players == nil {
		return Player{}, false
	}
	p, ok := s.Players[playerID]
	return p, ok
}

// GetPlayers lists players in join order. Players without a join position
// sort first, by id.
func GetPlayers(s *State) []Player {
	if s == nil || s.Players == nil {
		return []Player{}
	}
	list := make([]Player, 0, len(s.Players))
	for _, p := range s.Players {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Joined != list[j].Joined {
			return list[i].Joined < list[j].Joined
		}
		return list[i].ID < list[j].ID
	})
	return list
}

func IsPlayerFinished(s *State, playerID string) bool {
	p, ok := GetPlayer(s, playerID)
	return ok && p.Finished
}

func GetPlayerPlace(s *State, playerID string) int {
	p, _ := GetPlayer(s, playerID)
	return p.Place
}
