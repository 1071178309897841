package peers

import (
	"chograce/internal/utility"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Registry tracks the peers present in one room and throttles their moves.
type Registry struct {
	mu       sync.Mutex
	peers    map[string]*Peer
	limiters map[string]*rate.Limiter
	cooldown time.Duration
}

func NewRegistry(cooldown time.Duration) *Registry {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Registry{
		peers:    make(map[string]*Peer),
		limiters: make(map[string]*rate.Limiter),
		cooldown: cooldown,
	}
}

// Add registers a peer. An empty name falls back to one derived from the
// id; re-adding an id keeps its colour and join time.
func (r *Registry) Add(id string, name string) *Peer {
	r.mu.Lock()
	defer r.mu.Unlock()
	if name == "" {
		name = utility.DefaultName(id)
	}
	if p, ok := r.peers[id]; ok {
		// Peers handed out are never mutated; a rename stores a new value.
		renamed := *p
		renamed.Name = name
		r.peers[id] = &renamed
		return &renamed
	}
	p := &Peer{
		ID:       id,
		Name:     name,
		Logo:     DefaultLogo,
		Color:    utility.RandomColorHex(),
		JoinedAt: time.Now(),
	}
	r.peers[id] = p
	r.limiters[id] = rate.NewLimiter(rate.Every(r.cooldown), 1)
	return p
}

func (r *Registry) Get(id string) *Peer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.peers[id]
}

// GetList returns peers in join order.
func (r *Registry) GetList() []*Peer {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := make([]*Peer, 0, len(r.peers))
	for _, p := range r.peers {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].JoinedAt.Equal(list[j].JoinedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].JoinedAt.Before(list[j].JoinedAt)
	})
	return list
}

func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.peers[id]; !ok {
		return false
	}
	delete(r.peers, id)
	delete(r.limiters, id)
	return true
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.peers)
}

// Allow reports whether the peer may move now. Unknown peers are refused.
func (r *Registry) Allow(id string) bool {
	r.mu.Lock()
	lim, ok := r.limiters[id]
	r.mu.Unlock()
	return ok && lim.Allow()
}
