package race

import "time"

// Reason records why a race ended.
type Reason string

const (
	ReasonNone         = Reason("")
	ReasonAllFinished  = Reason("all_finished")
	ReasonPodiumFilled = Reason("podium_filled")
	ReasonTimeout      = Reason("timeout")
	ReasonManual       = Reason("manual")
	ReasonAbandoned    = Reason("abandoned")
)

const (
	DefaultPodiumSize      = 3
	DefaultFallbackTimeout = 5 * time.Minute
)

// CompletionPolicy decides when a running race is over. Small races wait
// for everyone (bounded by FallbackTimeout); larger races end as soon as
// the podium is filled.
type CompletionPolicy struct {
	PodiumSize      int
	FallbackTimeout time.Duration
}

func DefaultCompletionPolicy() CompletionPolicy {
	return CompletionPolicy{
		PodiumSize:      DefaultPodiumSize,
		FallbackTimeout: DefaultFallbackTimeout,
	}
}

func (p CompletionPolicy) podium() int {
	if p.PodiumSize <= 0 {
		return DefaultPodiumSize
	}
	return p.PodiumSize
}

func (p CompletionPolicy) Evaluate(s *State) Reason {
	if s == nil || s.Status != StatusRacing {
		return ReasonNone
	}
	maxHits := s.MaxHits
	if maxHits <= 0 {
		maxHits = DefaultMaxHits
	}
	playerCount := len(s.Players)
	finishedCount := 0
	for _, pl := range s.Players {
		if pl.Hits >= maxHits {
			finishedCount++
		}
	}

	if playerCount < p.podium() {
		if playerCount > 0 && finishedCount == playerCount {
			return ReasonAllFinished
		}
		return ReasonNone
	}
	if finishedCount >= p.podium() {
		return ReasonPodiumFilled
	}
	return ReasonNone
}

// Apply ends the race when Evaluate reports a reason.
func (p CompletionPolicy) Apply(r Reducer, s *State) (*State, Reason) {
	reason := p.Evaluate(s)
	if reason == ReasonNone {
		return s, ReasonNone
	}
	return r.EndRace(s), reason
}

// NeedsFallback reports whether the race should be bounded by the fallback
// timer.
func (p CompletionPolicy) NeedsFallback(s *State) bool {
	return s != nil && s.Status == StatusRacing && len(s.Players) < p.podium()
}

func (p CompletionPolicy) FallbackDeadline(s *State) (time.Time, bool) {
	if !p.NeedsFallback(s) || s.StartTime == nil {
		return time.Time{}, false
	}
	timeout := p.FallbackTimeout
	if timeout <= 0 {
		timeout = DefaultFallbackTimeout
	}
	return s.StartTime.Add(timeout), true
}

// CompletionTimes maps each finished player to the time it took them from
// the start of the race.
func CompletionTimes(s *State) map[string]time.Duration {
	times := make(map[string]time.Duration)
	if s == nil || s.StartTime == nil {
		return times
	}
	for id, p := range s.Players {
		if p.Finished && p.FinishedAt != nil {
			times[id] = p.FinishedAt.Sub(*s.StartTime)
		}
	}
	return times
}

func HitCounts(s *State) map[string]int {
	hits := make(map[string]int)
	if s == nil {
		return hits
	}
	for id, p := range s.Players {
		hits[id] = p.Hits
	}
	return hits
}
