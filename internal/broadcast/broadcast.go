package broadcast

import (
	"chograce/internal/events"
	"encoding/json"
	"sync"

	"github.com/charmbracelet/log"
)

// EventMessage is one server-sent event.
type EventMessage struct {
	Event string
	Msg   string
}

type Broadcaster struct {
	Mu      sync.Mutex
	Clients map[chan EventMessage]bool
}

// NewBroadcaster forwards the bus's status changes to every subscriber
// until the bus is closed.
func NewBroadcaster(bus *events.Bus) *Broadcaster {
	b := &Broadcaster{
		Clients: make(map[chan EventMessage]bool),
	}
	go func() {
		for ev := range bus.StatusChanges {
			data, err := json.Marshal(struct {
				Status string `json:"status"`
				Reason string `json:"reason,omitempty"`
			}{ev.Status, ev.Reason})
			if err != nil {
				log.Error("marshal status", "err", err)
				continue
			}
			b.Broadcast("status", string(data))
		}
	}()
	return b
}

func (b *Broadcaster) Subscribe() chan EventMessage {
	ch := make(chan EventMessage, 10)
	b.Mu.Lock()
	b.Clients[ch] = true
	b.Mu.Unlock()
	return ch
}

func (b *Broadcaster) Unsubscribe(ch chan EventMessage) {
	b.Mu.Lock()
	delete(b.Clients, ch)
	b.Mu.Unlock()
	close(ch)
}

func (b *Broadcaster) Count() int {
	b.Mu.Lock()
	defer b.Mu.Unlock()
	return len(b.Clients)
}

func (b *Broadcaster) Broadcast(event string, message string) {
	b.Mu.Lock()
	defer b.Mu.Unlock()
	for ch := range b.Clients {
		select {
		case ch <- EventMessage{Event: event, Msg: message}:
		default:
			// skip clients with full data channels
		}
	}
}
