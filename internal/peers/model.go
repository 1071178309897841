package peers

import (
	"chograce/internal/race"
	"time"
)

const DefaultLogo = "/globe.svg"

// DefaultCooldown is the minimum spacing between two moves from one peer.
const DefaultCooldown = 100 * time.Millisecond

type Peer struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Logo     string    `json:"logo"`
	Color    string    `json:"color"`
	JoinedAt time.Time `json:"joinedAt"`
}

func (p *Peer) Data() race.PlayerData {
	return race.PlayerData{ID: p.ID, Name: p.Name, Logo: p.Logo, Color: p.Color}
}
