package rooms

import (
	"chograce/internal/broadcast"
	"chograce/internal/events"
	"chograce/internal/peers"
	"chograce/internal/replica"
	"chograce/internal/session"
	"chograce/internal/wshub"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

const DefaultTTL = 1 * time.Hour

type Config struct {
	Session  session.Config
	Cooldown time.Duration
	TTL      time.Duration
	// Setup runs once for every new room, before it is visible.
	Setup func(*Room)
	// Teardown runs after a room is removed and its session closed.
	Teardown func(*Room)
}

type Store struct {
	mu    sync.Mutex
	rooms map[string]*Room
	cfg   Config
}

func NewStore(cfg Config) *Store {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	s := &Store{
		rooms: make(map[string]*Room),
		cfg:   cfg,
	}
	go s.sweepStale()
	return s
}

func (s *Store) Create(hostID string) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Try up to 10 times to generate a unique code
	for range 10 {
		code, err := GenerateCode()
		if err != nil {
			return nil, fmt.Errorf("generating room code: %w", err)
		}
		if _, exists := s.rooms[code]; exists {
			continue
		}

		bus := events.NewBus()
		hub := wshub.NewHub()
		sess := session.New(s.cfg.Session, nil, bus)
		sess.Subscribe(func(cmd replica.Command) {
			hub.Broadcast(wshub.ServerMessage{Type: "cmd", Command: &cmd})
		})

		room := &Room{
			Code:        code,
			Session:     sess,
			Broadcaster: broadcast.NewBroadcaster(bus),
			Hub:         hub,
			Peers:       peers.NewRegistry(s.cfg.Cooldown),
			CreatedAt:   time.Now(),
			HostID:      hostID,
		}
		if s.cfg.Setup != nil {
			s.cfg.Setup(room)
		}
		s.rooms[code] = room
		log.Info("room created", "code", code, "host", hostID)
		return room, nil
	}
	return nil, fmt.Errorf("failed to generate unique room code after 10 attempts")
}

func (s *Store) Get(code string) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rooms[code]
}

func (s *Store) Delete(code string) {
	s.mu.Lock()
	room, ok := s.rooms[code]
	delete(s.rooms, code)
	s.mu.Unlock()
	if ok {
		s.teardown(room)
	}
}

func (s *Store) teardown(room *Room) {
	room.Session.Close()
	if s.cfg.Teardown != nil {
		s.cfg.Teardown(room)
	}
}

func (s *Store) List() []*Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		list = append(list, r)
	}
	return list
}

func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

// Sweep removes idle rooms older than the TTL and returns how many it
// removed.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	var stale []*Room
	for code, room := range s.rooms {
		if now.Sub(room.CreatedAt) > s.cfg.TTL && room.Idle() {
			delete(s.rooms, code)
			stale = append(stale, room)
		}
	}
	s.mu.Unlock()

	for _, room := range stale {
		s.teardown(room)
		log.Info("room swept", "code", room.Code)
	}
	return len(stale)
}

func (s *Store) sweepStale() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for now := range ticker.C {
		s.Sweep(now)
	}
}
