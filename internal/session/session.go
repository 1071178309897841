// Package session owns one room's race: it turns player intents into
// sequenced commands, folds them into the authoritative replica, and ends
// races according to the completion policy.
package session

import (
	"chograce/internal/events"
	"chograce/internal/race"
	"chograce/internal/replica"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

type Config struct {
	MaxHits   int
	Ledger    race.FinishLedger
	Policy    race.CompletionPolicy
	LogWindow int
}

func DefaultConfig() Config {
	return Config{
		MaxHits:   race.DefaultMaxHits,
		Ledger:    race.LedgerRetain,
		Policy:    race.DefaultCompletionPolicy(),
		LogWindow: replica.DefaultLogWindow,
	}
}

// Hooks observe race lifecycle changes. They run after the session lock is
// released, in the order the changes happened.
type Hooks struct {
	OnStart  func(s *race.State)
	OnFinish func(s *race.State, reason race.Reason)
	// OnAbort fires when a running race returns to waiting without
	// finishing. It receives the last racing state.
	OnAbort func(s *race.State, reason race.Reason)
	OnMove  func(peerID string, success bool, s *race.State)
}

// Listener receives every sequenced command. Listeners are called with the
// session lock held and must not block.
type Listener func(cmd replica.Command)

type Session struct {
	mu        sync.Mutex
	cfg       Config
	clock     race.Clock
	log       *replica.Log
	replica   *replica.Replica
	listeners []Listener
	hooks     Hooks
	timer     *time.Timer
	timerKey  time.Time
	closed    bool
	Events    *events.Bus
}

func New(cfg Config, clock race.Clock, bus *events.Bus) *Session {
	if clock == nil {
		clock = race.SystemClock{}
	}
	if cfg.MaxHits <= 0 {
		cfg.MaxHits = race.DefaultMaxHits
	}
	if cfg.Ledger == "" {
		cfg.Ledger = race.LedgerRetain
	}
	if bus == nil {
		bus = events.NewBus()
	}
	return &Session{
		cfg:     cfg,
		clock:   clock,
		log:     replica.NewLog(clock, cfg.LogWindow),
		replica: replica.New(replica.Rules{MaxHits: cfg.MaxHits, Ledger: cfg.Ledger}),
		Events:  bus,
	}
}

func (s *Session) Rules() replica.Rules {
	return replica.Rules{MaxHits: s.cfg.MaxHits, Ledger: s.cfg.Ledger}
}

func (s *Session) SetHooks(h Hooks) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = h
}

func (s *Session) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

type effects []func()

// do runs fn under the lock and then the hook calls it queued.
func (s *Session) do(fn func(fx *effects)) {
	var fx effects
	s.mu.Lock()
	if !s.closed {
		fn(&fx)
	}
	s.mu.Unlock()
	for _, f := range fx {
		f()
	}
}

// commit sequences cmd, folds it and fans it out. Must hold s.mu.
func (s *Session) commit(cmd replica.Command, fx *effects) *race.State {
	prev := s.replica.State()
	cmd = s.log.Append(cmd)
	s.replica.Receive(cmd)
	for _, l := range s.listeners {
		l(cmd)
	}
	next := s.replica.State()
	if prev.Status != next.Status {
		s.statusChanged(prev, next, reasonFor(cmd, next), fx)
	}
	s.armFallback(next)
	return next
}

func reasonFor(cmd replica.Command, next *race.State) race.Reason {
	if cmd.Reason != race.ReasonNone {
		return cmd.Reason
	}
	switch {
	case next.Status == race.StatusFinished && cmd.Kind == replica.KindMove:
		return race.ReasonAllFinished
	case next.Status == race.StatusFinished && cmd.Kind == replica.KindEnd:
		return race.ReasonManual
	case next.Status == race.StatusWaiting && cmd.Kind == replica.KindReset:
		return race.ReasonManual
	}
	return race.ReasonNone
}

func (s *Session) statusChanged(prev, next *race.State, reason race.Reason, fx *effects) {
	if !s.Events.Publish(events.StatusChangeEvent{Status: string(next.Status), Reason: string(reason)}) {
		log.Warn("status event dropped", "status", next.Status)
	}
	hooks := s.hooks
	switch next.Status {
	case race.StatusRacing:
		if hooks.OnStart != nil {
			*fx = append(*fx, func() { hooks.OnStart(next) })
		}
	case race.StatusFinished:
		if hooks.OnFinish != nil {
			*fx = append(*fx, func() { hooks.OnFinish(next, reason) })
		}
	case race.StatusWaiting:
		if prev.Status == race.StatusRacing && hooks.OnAbort != nil {
			*fx = append(*fx, func() { hooks.OnAbort(prev, reason) })
		}
	}
}

// settle ends a running race once the completion policy is satisfied. Must
// hold s.mu.
func (s *Session) settle(fx *effects) {
	st := s.replica.State()
	if reason := s.cfg.Policy.Evaluate(st); reason != race.ReasonNone {
		s.commit(replica.Command{Kind: replica.KindEnd, Reason: reason}, fx)
	}
}

func (s *Session) Join(data race.PlayerData) {
	s.do(func(fx *effects) {
		p := data
		s.commit(replica.Command{Kind: replica.KindJoin, PeerID: data.ID, Player: &p}, fx)
		s.settle(fx)
	})
}

// Leave removes the player. A running race left with nobody in it is
// force-reset.
func (s *Session) Leave(id string) {
	s.do(func(fx *effects) {
		if _, ok := race.GetPlayer(s.replica.State(), id); !ok {
			return
		}
		next := s.commit(replica.Command{Kind: replica.KindLeave, PeerID: id}, fx)
		if next.Status == race.StatusRacing && len(next.Players) == 0 {
			s.commit(replica.Command{Kind: replica.KindForceReset, Reason: race.ReasonAbandoned}, fx)
			return
		}
		s.settle(fx)
	})
}

// Start reports whether the race moved into racing.
func (s *Session) Start() bool {
	started := false
	s.do(func(fx *effects) {
		st := s.replica.State()
		if st.Status != race.StatusWaiting || len(st.Players) == 0 {
			return
		}
		s.commit(replica.Command{Kind: replica.KindStart}, fx)
		started = true
	})
	return started
}

func (s *Session) End() {
	s.do(func(fx *effects) {
		s.commit(replica.Command{Kind: replica.KindEnd, Reason: race.ReasonManual}, fx)
	})
}

func (s *Session) Reset() {
	s.do(func(fx *effects) {
		s.commit(replica.Command{Kind: replica.KindReset}, fx)
	})
}

// ForceReset clears the roster along with the race.
func (s *Session) ForceReset() {
	s.do(func(fx *effects) {
		s.commit(replica.Command{Kind: replica.KindForceReset, Reason: race.ReasonManual}, fx)
	})
}

// Move records one move attempt. Only hits are sequenced; misses reach the
// OnMove hook alone. It reports whether the player could move at all.
func (s *Session) Move(id string, success bool) bool {
	eligible := false
	s.do(func(fx *effects) {
		st := s.replica.State()
		p, ok := race.GetPlayer(st, id)
		if !ok || st.Status != race.StatusRacing || p.Finished {
			return
		}
		eligible = true
		// The move is reported before any finish it causes.
		var moved effects
		if success {
			st = s.commit(replica.Command{Kind: replica.KindMove, PeerID: id}, &moved)
		}
		if onMove := s.hooks.OnMove; onMove != nil {
			*fx = append(*fx, func() { onMove(id, success, st) })
		}
		*fx = append(*fx, moved...)
		if success {
			s.settle(fx)
		}
	})
	return eligible
}

func (s *Session) State() *race.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replica.State()
}

func (s *Session) Status() race.Status {
	return s.State().Status
}

func (s *Session) Snapshot() replica.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replica.Snapshot()
}

func (s *Session) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replica.Version()
}

// Since returns the commands after seq, or ok=false when the caller needs a
// snapshot instead.
func (s *Session) Since(seq uint64) ([]replica.Command, bool) {
	return s.log.Since(seq)
}

func (s *Session) Leaderboard(localID string) race.LeaderboardData {
	return race.LeaderboardFromState(s.State(), localID)
}

// Close stops the fallback timer and closes the events bus. Intents after
// Close are ignored.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.stopFallback()
	close(s.Events.StatusChanges)
}
