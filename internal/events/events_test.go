package events

import (
	"testing"
	"time"
)

func TestNewBus(t *testing.T) {
	bus := NewBus()
	if bus == nil {
		t.Fatal("NewBus() returned nil")
	}
	if bus.StatusChanges == nil {
		t.Fatal("StatusChanges channel is nil")
	}
}

func TestBus_SendReceive(t *testing.T) {
	bus := NewBus()
	ev := StatusChangeEvent{Status: "racing"}

	go func() {
		bus.StatusChanges <- ev
	}()

	select {
	case received := <-bus.StatusChanges:
		if received.Status != "racing" {
			t.Errorf("received Status = %q, want %q", received.Status, "racing")
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBus_PublishDropsWhenFull(t *testing.T) {
	bus := NewBus()

	// Should be able to publish up to 10 without a reader
	for i := 0; i < 10; i++ {
		if !bus.Publish(StatusChangeEvent{Status: "finished", Reason: "timeout"}) {
			t.Fatalf("publish %d dropped", i)
		}
	}
	if bus.Publish(StatusChangeEvent{Status: "waiting"}) {
		t.Error("publish on a full bus should drop")
	}

	first := <-bus.StatusChanges
	if first.Reason != "timeout" {
		t.Errorf("Reason = %q, want timeout", first.Reason)
	}
}
