package rooms

import (
	"chograce/internal/broadcast"
	"chograce/internal/peers"
	"chograce/internal/session"
	"chograce/internal/wshub"
	"time"
)

type Room struct {
	Code        string
	Session     *session.Session
	Broadcaster *broadcast.Broadcaster
	Hub         *wshub.Hub
	Peers       *peers.Registry
	CreatedAt   time.Time
	HostID      string
}

// Join registers the peer and adds it to the race.
func (r *Room) Join(id string, name string) *peers.Peer {
	p := r.Peers.Add(id, name)
	r.Session.Join(p.Data())
	return p
}

func (r *Room) Leave(id string) {
	r.Peers.Remove(id)
	r.Session.Leave(id)
}

// Idle reports whether nobody is connected to the room.
func (r *Room) Idle() bool {
	return r.Hub.Count() == 0 && r.Broadcaster.Count() == 0
}
