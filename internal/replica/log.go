package replica

import (
	"sync"

	"chograce/internal/race"
)

const DefaultLogWindow = 1024

// Log assigns sequence numbers and timestamps to commands and keeps the most
// recent ones so lagging peers can catch up without a full snapshot.
type Log struct {
	mu      sync.Mutex
	clock   race.Clock
	window  int
	last    uint64
	entries []Command
}

func NewLog(clock race.Clock, window int) *Log {
	if clock == nil {
		clock = race.SystemClock{}
	}
	if window <= 0 {
		window = DefaultLogWindow
	}
	return &Log{
		clock:   clock,
		window:  window,
		entries: make([]Command, 0, window),
	}
}

func (l *Log) Append(cmd Command) Command {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.last++
	cmd.Seq = l.last
	cmd.At = l.clock.Now()
	if len(l.entries) == l.window {
		copy(l.entries, l.entries[1:])
		l.entries = l.entries[:l.window-1]
	}
	l.entries = append(l.entries, cmd)
	return cmd
}

func (l *Log) Last() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}

// Since returns every command after seq. ok is false when the window no
// longer reaches back that far.
func (l *Log) Since(seq uint64) ([]Command, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if seq >= l.last {
		return []Command{}, true
	}
	if len(l.entries) == 0 || l.entries[0].Seq > seq+1 {
		return nil, false
	}
	start := int(seq + 1 - l.entries[0].Seq)
	return append([]Command(nil), l.entries[start:]...), true
}
