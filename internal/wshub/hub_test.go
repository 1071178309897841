package wshub

import (
	"chograce/internal/replica"
	"encoding/json"
	"testing"
	"time"
)

func newClient(id string, size int) *Client {
	return &Client{PeerID: id, Send: make(chan []byte, size)}
}

func recv(t *testing.T, c *Client) ServerMessage {
	t.Helper()
	select {
	case data := <-c.Send:
		var got ServerMessage
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return got
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("%s did not receive message", c.PeerID)
	}
	return ServerMessage{}
}

func drain(c *Client) {
	for {
		select {
		case _, ok := <-c.Send:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func TestRegisterAnnouncesPeers(t *testing.T) {
	h := NewHub()
	c1 := newClient("p1", 16)
	c2 := newClient("p2", 16)

	h.Register(c1)
	h.Register(c2)

	recv(t, c1) // own arrival
	got := recv(t, c1)
	if got.Type != "peers" || len(got.Peers) != 2 || got.Peers[0] != "p1" || got.Peers[1] != "p2" {
		t.Fatalf("unexpected peers message: %+v", got)
	}
	if h.Count() != 2 {
		t.Errorf("Count = %d, want 2", h.Count())
	}
}

func TestBroadcastExcept(t *testing.T) {
	h := NewHub()
	c1 := newClient("p1", 16)
	c2 := newClient("p2", 16)
	c3 := newClient("p3", 16)
	h.Register(c1)
	h.Register(c2)
	h.Register(c3)
	drain(c1)
	drain(c2)
	drain(c3)

	cmd := replica.Command{Seq: 4, Kind: replica.KindMove, PeerID: "p1"}
	h.BroadcastExcept("p1", ServerMessage{Type: "cmd", Command: &cmd})

	for _, c := range []*Client{c2, c3} {
		got := recv(t, c)
		if got.Type != "cmd" || got.Command == nil || got.Command.Seq != 4 {
			t.Fatalf("unexpected message: %+v", got)
		}
	}

	select {
	case <-c1.Send:
		t.Fatal("c1 should not receive its own message")
	default:
	}
}

func TestUnregisterOnlyCurrentConnection(t *testing.T) {
	h := NewHub()
	old := newClient("p1", 16)
	other := newClient("p2", 16)
	h.Register(old)
	h.Register(other)

	fresh := newClient("p1", 16)
	h.Register(fresh)

	// The displaced connection's channel is closed.
	drain(old)
	if _, ok := <-old.Send; ok {
		t.Fatal("displaced client's Send should be closed")
	}

	if h.Unregister(old) {
		t.Error("unregistering a displaced client should be a no-op")
	}
	if h.Count() != 2 {
		t.Errorf("Count = %d, want 2", h.Count())
	}

	drain(other)
	if !h.Unregister(fresh) {
		t.Error("unregistering the current client should succeed")
	}
	got := recv(t, other)
	if got.Type != "peers" || len(got.Peers) != 1 || got.Peers[0] != "p2" {
		t.Fatalf("expected peers [p2], got: %+v", got)
	}
}

func TestUnregisterNonexistent(t *testing.T) {
	h := NewHub()
	if h.Unregister(newClient("nonexistent", 1)) {
		t.Error("Unregister of an unknown client should report false")
	}
}

func TestSend(t *testing.T) {
	h := NewHub()
	c := newClient("p1", 16)
	h.Register(c)
	drain(c)

	if !h.Send("p1", ServerMessage{Type: "welcome", PeerID: "p1"}) {
		t.Fatal("Send to a connected peer should succeed")
	}
	if got := recv(t, c); got.Type != "welcome" || got.PeerID != "p1" {
		t.Errorf("unexpected message: %+v", got)
	}
	if h.Send("ghost", ServerMessage{Type: "welcome"}) {
		t.Error("Send to an unknown peer should fail")
	}
}

func TestBroadcastDropsWhenFull(t *testing.T) {
	h := NewHub()

	// Channel with capacity 1, filled by the peers announcement
	c := newClient("p1", 1)
	h.Register(c)

	// Should not block; the message is dropped
	h.Broadcast(ServerMessage{Type: "throttled"})

	got := recv(t, c)
	if got.Type != "peers" {
		t.Fatalf("expected peers, got: %+v", got)
	}

	select {
	case <-c.Send:
		t.Fatal("should be empty after draining")
	default:
	}
}
