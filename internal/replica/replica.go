package replica

import "chograce/internal/race"

// Snapshot is a replica's state at a given log position.
type Snapshot struct {
	Version uint64      `json:"v"`
	State   *race.State `json:"state"`
}

// Replica is one peer's copy of the race. Commands may arrive late,
// duplicated or out of order; they are applied strictly by sequence number.
// A Replica is not safe for concurrent use.
type Replica struct {
	rules   Rules
	state   *race.State
	applied uint64
	latest  uint64
	pending map[uint64]Command
}

func New(rules Rules) *Replica {
	return &Replica{
		rules:   rules,
		state:   race.NewState(rules.MaxHits),
		pending: make(map[uint64]Command),
	}
}

// Receive buffers cmd and applies every contiguous command it unblocks. It
// returns the commands applied, in order.
func (r *Replica) Receive(cmd Command) []Command {
	if cmd.Seq <= r.applied {
		return nil
	}
	if cmd.Seq > r.latest {
		r.latest = cmd.Seq
	}
	r.pending[cmd.Seq] = cmd

	var applied []Command
	for {
		next, ok := r.pending[r.applied+1]
		if !ok {
			break
		}
		delete(r.pending, next.Seq)
		r.state = Fold(r.rules, r.state, next)
		r.applied = next.Seq
		applied = append(applied, next)
	}
	return applied
}

// Restore replaces the local copy with snap and drops buffered commands the
// snapshot already covers.
func (r *Replica) Restore(snap Snapshot) {
	r.state = snap.State
	if r.state == nil {
		r.state = race.NewState(r.rules.MaxHits)
	}
	r.applied = snap.Version
	if snap.Version > r.latest {
		r.latest = snap.Version
	}
	for seq := range r.pending {
		if seq <= snap.Version {
			delete(r.pending, seq)
		}
	}
	for {
		next, ok := r.pending[r.applied+1]
		if !ok {
			break
		}
		delete(r.pending, next.Seq)
		r.state = Fold(r.rules, r.state, next)
		r.applied = next.Seq
	}
}

func (r *Replica) State() *race.State { return r.state }

func (r *Replica) Version() uint64 { return r.applied }

// Synchronized reports whether every command this replica has heard of has
// been applied.
func (r *Replica) Synchronized() bool {
	return len(r.pending) == 0 && r.applied >= r.latest
}

func (r *Replica) Snapshot() Snapshot {
	return Snapshot{Version: r.applied, State: r.state}
}
