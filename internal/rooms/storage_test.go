package rooms

import (
	"chograce/internal/race"
	"chograce/internal/session"
	"chograce/internal/wshub"
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func testConfig() Config {
	sc := session.DefaultConfig()
	sc.MaxHits = 3
	return Config{Session: sc, Cooldown: time.Millisecond}
}

func TestNewStore(t *testing.T) {
	s := NewStore(testConfig())
	if s == nil {
		t.Fatal("NewStore() returned nil")
	}
	if len(s.List()) != 0 {
		t.Error("new store should have no rooms")
	}
	if s.cfg.TTL != DefaultTTL {
		t.Errorf("TTL = %v, want %v", s.cfg.TTL, DefaultTTL)
	}
}

func TestStore_Create(t *testing.T) {
	s := NewStore(testConfig())
	room, err := s.Create("host-1")
	if err != nil {
		t.Fatal(err)
	}
	if room == nil {
		t.Fatal("Create() returned nil room")
	}
	if room.Code == "" {
		t.Error("room code should not be empty")
	}
	if room.HostID != "host-1" {
		t.Errorf("HostID = %q, want %q", room.HostID, "host-1")
	}
	if room.Session == nil || room.Broadcaster == nil || room.Hub == nil || room.Peers == nil {
		t.Errorf("room is missing components: %+v", room)
	}
	if room.Session.State().MaxHits != 3 {
		t.Errorf("MaxHits = %d, want 3", room.Session.State().MaxHits)
	}
}

func TestStore_SetupAndTeardown(t *testing.T) {
	cfg := testConfig()
	var setup, teardown []string
	cfg.Setup = func(r *Room) { setup = append(setup, r.Code) }
	cfg.Teardown = func(r *Room) { teardown = append(teardown, r.Code) }
	s := NewStore(cfg)

	room, _ := s.Create("host-1")
	if len(setup) != 1 || setup[0] != room.Code {
		t.Errorf("setup saw %v, want [%s]", setup, room.Code)
	}
	s.Delete(room.Code)
	s.Delete(room.Code)
	if len(teardown) != 1 || teardown[0] != room.Code {
		t.Errorf("teardown saw %v, want [%s]", teardown, room.Code)
	}
}

func TestStore_Get(t *testing.T) {
	s := NewStore(testConfig())
	room, _ := s.Create("host-1")

	got := s.Get(room.Code)
	if got == nil {
		t.Fatal("Get() returned nil for existing room")
	}
	if got.Code != room.Code {
		t.Errorf("Code = %q, want %q", got.Code, room.Code)
	}

	got = s.Get("ZZZZ")
	if got != nil {
		t.Error("Get() should return nil for nonexistent room")
	}
}

func TestStore_Delete(t *testing.T) {
	s := NewStore(testConfig())
	room, _ := s.Create("host-1")
	room.Join("p1", "Alice")

	s.Delete(room.Code)

	if s.Get(room.Code) != nil {
		t.Error("room should be deleted")
	}
	room.Session.Start()
	if room.Session.Status() != race.StatusWaiting {
		t.Error("deleted room's session should be closed")
	}
}

func TestStore_List(t *testing.T) {
	s := NewStore(testConfig())
	s.Create("host-1")
	s.Create("host-2")

	list := s.List()
	if len(list) != 2 {
		t.Errorf("List() returned %d rooms, want 2", len(list))
	}
	if s.Count() != 2 {
		t.Errorf("Count() = %d, want 2", s.Count())
	}
}

func TestStore_Sweep(t *testing.T) {
	s := NewStore(testConfig())
	idle, _ := s.Create("host-1")
	busy, _ := s.Create("host-2")
	fresh, _ := s.Create("host-3")

	old := time.Now().Add(-2 * DefaultTTL)
	idle.CreatedAt = old
	busy.CreatedAt = old
	busy.Hub.Register(&wshub.Client{PeerID: "p1", Send: make(chan []byte, 4)})

	if n := s.Sweep(time.Now()); n != 1 {
		t.Errorf("Sweep removed %d rooms, want 1", n)
	}
	if s.Get(idle.Code) != nil {
		t.Error("idle stale room should be swept")
	}
	if s.Get(busy.Code) == nil {
		t.Error("room with a connected peer should survive")
	}
	if s.Get(fresh.Code) == nil {
		t.Error("fresh room should survive")
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := NewStore(testConfig())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Create("host")
		}()
	}
	wg.Wait()

	list := s.List()
	if len(list) != 50 {
		t.Errorf("concurrent creates: got %d rooms, want 50", len(list))
	}
}

func TestStore_RoomIsolation(t *testing.T) {
	s := NewStore(testConfig())
	room1, _ := s.Create("host-1")
	room2, _ := s.Create("host-2")

	room1.Join("p1", "Alice")
	room2.Join("p2", "Bob")

	r1Players := race.GetPlayers(room1.Session.State())
	r2Players := race.GetPlayers(room2.Session.State())

	if len(r1Players) != 1 || r1Players[0].Name != "Alice" {
		t.Error("room1 should only have Alice")
	}
	if len(r2Players) != 1 || r2Players[0].Name != "Bob" {
		t.Error("room2 should only have Bob")
	}
}

func TestRoom_CommandsReachHub(t *testing.T) {
	s := NewStore(testConfig())
	room, _ := s.Create("host-1")
	c := &wshub.Client{PeerID: "p1", Send: make(chan []byte, 16)}
	room.Hub.Register(c)
	<-c.Send // peers

	room.Join("p1", "Alice")

	var msg wshub.ServerMessage
	if err := json.Unmarshal(<-c.Send, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != "cmd" || msg.Command == nil || msg.Command.Seq != 1 || msg.Command.Player.Name != "Alice" {
		t.Errorf("unexpected message: %+v", msg)
	}

	room.Leave("p1")
	if room.Peers.Count() != 0 {
		t.Error("leave should remove the peer")
	}
	if _, ok := race.GetPlayer(room.Session.State(), "p1"); ok {
		t.Error("leave should remove the player from the race")
	}
}
