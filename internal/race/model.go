package race

import "time"

type Status string

const (
	StatusWaiting  = Status("waiting")
	StatusRacing   = Status("racing")
	StatusFinished = Status("finished")
)

// DefaultMaxHits is the number of successful moves needed to finish a race.
const DefaultMaxHits = 10

// PlayerData is the identity a peer joins a race with.
type PlayerData struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Logo  string `json:"logo"`
	Color string `json:"color,omitempty"`
}

type Player struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Logo       string     `json:"logo"`
	Color      string     `json:"color,omitempty"`
	Progress   float64    `json:"progress"`
	Hits       int        `json:"hits"`
	Finished   bool       `json:"finished"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	Place      int        `json:"place"`
	// Joined is the player's 1-based join position in the room.
	Joined int `json:"joined"`
}

// State is the shared race record. Values are never mutated once handed
// out; every transition returns a fresh copy.
type State struct {
	Status      Status            `json:"status"`
	Players     map[string]Player `json:"players"`
	FinishOrder []string          `json:"finishOrder"`
	StartTime   *time.Time        `json:"startTime,omitempty"`
	MaxHits     int               `json:"maxHits"`
}

// NewState returns an empty waiting race. A non-positive maxHits falls back
// to DefaultMaxHits.
func NewState(maxHits int) *State {
	if maxHits <= 0 {
		maxHits = DefaultMaxHits
	}
	return &State{
		Status:      StatusWaiting,
		Players:     make(map[string]Player),
		FinishOrder: []string{},
		MaxHits:     maxHits,
	}
}

func CreateInitialState() *State {
	return NewState(DefaultMaxHits)
}

func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	c := *s
	c.Players = make(map[string]Player, len(s.Players))
	for id, p := range s.Players {
		c.Players[id] = p
	}
	c.FinishOrder = append(make([]string, 0, len(s.FinishOrder)), s.FinishOrder...)
	return &c
}

func (p Player) resetProgress() Player {
	p.Progress = 0
	p.Hits = 0
	p.Finished = false
	p.FinishedAt = nil
	p.Place = 0
	return p
}
