package events

type StatusChangeEvent struct {
	Status string
	Reason string
}

type Bus struct {
	StatusChanges chan StatusChangeEvent
}

func NewBus() *Bus {
	return &Bus{
		StatusChanges: make(chan StatusChangeEvent, 10),
	}
}

// Publish queues ev without blocking. It reports false when the buffer is
// full and the event was dropped.
func (b *Bus) Publish(ev StatusChangeEvent) bool {
	select {
	case b.StatusChanges <- ev:
		return true
	default:
		return false
	}
}
