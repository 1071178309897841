package session

import (
	"chograce/internal/race"
	"chograce/internal/replica"
	"time"

	"github.com/charmbracelet/log"
)

// armFallback keeps one timer per race, keyed by its start time. Must hold
// s.mu.
func (s *Session) armFallback(st *race.State) {
	deadline, ok := s.cfg.Policy.FallbackDeadline(st)
	if !ok {
		s.stopFallback()
		return
	}
	key := *st.StartTime
	if s.timer != nil && s.timerKey.Equal(key) {
		return
	}
	s.stopFallback()
	s.timerKey = key
	s.timer = time.AfterFunc(deadline.Sub(s.clock.Now()), func() { s.fallback(key) })
}

func (s *Session) stopFallback() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerKey = time.Time{}
}

func (s *Session) fallback(key time.Time) {
	s.do(func(fx *effects) {
		st := s.replica.State()
		if st.StartTime == nil || !st.StartTime.Equal(key) || !s.cfg.Policy.NeedsFallback(st) {
			return
		}
		log.Info("fallback timeout", "players", len(st.Players))
		s.commit(replica.Command{Kind: replica.KindEnd, Reason: race.ReasonTimeout}, fx)
	})
}
