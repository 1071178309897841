package server

import (
	"chograce/internal/race"
	"chograce/internal/replica"
	"chograce/internal/rooms"
	"chograce/internal/wshub"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

func dial(t *testing.T, ts *httptest.Server, room *rooms.Room, peer string) (*websocket.Conn, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/rooms/" + room.Code + "/ws?name=" + peer
	conn, _, err := websocket.Dial(ctx, u, &websocket.DialOptions{
		HTTPHeader: http.Header{"Cookie": {peerCookie + "=" + peer}},
	})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.CloseNow() })
	return conn, ctx
}

func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, match func(wshub.ServerMessage) bool) wshub.ServerMessage {
	t.Helper()
	for {
		var msg wshub.ServerMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if match(msg) {
			return msg
		}
	}
}

func isType(typ string) func(wshub.ServerMessage) bool {
	return func(m wshub.ServerMessage) bool { return m.Type == typ }
}

func isCmd(kind replica.Kind) func(wshub.ServerMessage) bool {
	return func(m wshub.ServerMessage) bool {
		return m.Type == "cmd" && m.Command != nil && m.Command.Kind == kind
	}
}

func TestWS_WelcomeAndCommands(t *testing.T) {
	srv, ts := newTestServer(t, testConfig())
	room, _ := srv.Rooms.Create("host")
	conn, ctx := dial(t, ts, room, "p1")

	welcome := readUntil(t, ctx, conn, isType("welcome"))
	if welcome.PeerID != "p1" || welcome.Snapshot == nil {
		t.Fatalf("welcome = %+v", welcome)
	}
	if p, ok := race.GetPlayer(welcome.Snapshot.State, "p1"); !ok || p.Name != "p1" {
		t.Errorf("snapshot should include the joining peer, got %+v", welcome.Snapshot.State)
	}

	if err := wsjson.Write(ctx, conn, wshub.ClientMessage{Type: "start"}); err != nil {
		t.Fatal(err)
	}
	start := readUntil(t, ctx, conn, isCmd(replica.KindStart))
	if start.Command.Seq <= welcome.Snapshot.Version {
		t.Errorf("start seq %d should follow snapshot version %d", start.Command.Seq, welcome.Snapshot.Version)
	}

	if err := wsjson.Write(ctx, conn, wshub.ClientMessage{Type: "move", OK: true}); err != nil {
		t.Fatal(err)
	}
	move := readUntil(t, ctx, conn, isCmd(replica.KindMove))
	if move.Command.PeerID != "p1" {
		t.Errorf("move peer = %q, want p1", move.Command.PeerID)
	}
}

func TestWS_FollowerConverges(t *testing.T) {
	srv, ts := newTestServer(t, testConfig())
	room, _ := srv.Rooms.Create("host")
	room.Join("p2", "Bob")
	conn, ctx := dial(t, ts, room, "p1")

	follower := replica.New(room.Session.Rules())
	welcome := readUntil(t, ctx, conn, isType("welcome"))
	follower.Restore(*welcome.Snapshot)

	room.Session.Start()
	room.Session.Move("p2", true)
	room.Session.Move("p2", true)
	want := room.Session.Version()

	for follower.Version() < want {
		msg := readUntil(t, ctx, conn, isType("cmd"))
		follower.Receive(*msg.Command)
	}
	got := follower.State()
	if !race.IsPlayerFinished(got, "p2") || got.Status != race.StatusRacing {
		t.Errorf("follower state = %+v", got)
	}
}

func TestWS_SyncReplaysLog(t *testing.T) {
	srv, ts := newTestServer(t, testConfig())
	room, _ := srv.Rooms.Create("host")
	room.Join("p2", "Bob")
	conn, ctx := dial(t, ts, room, "p1")
	readUntil(t, ctx, conn, isType("welcome"))

	if err := wsjson.Write(ctx, conn, wshub.ClientMessage{Type: "sync", Version: 0}); err != nil {
		t.Fatal(err)
	}
	first := readUntil(t, ctx, conn, func(m wshub.ServerMessage) bool {
		return m.Type == "cmd" && m.Command.Seq == 1
	})
	if first.Command.Kind != replica.KindJoin || first.Command.PeerID != "p2" {
		t.Errorf("first command = %+v", first.Command)
	}
}

func TestWS_Throttled(t *testing.T) {
	cfg := testConfig()
	cfg.MaxHits = 5
	cfg.MoveCooldown = time.Hour
	srv, ts := newTestServer(t, cfg)
	room, _ := srv.Rooms.Create("host")
	conn, ctx := dial(t, ts, room, "p1")
	readUntil(t, ctx, conn, isType("welcome"))
	room.Session.Start()

	for range 2 {
		if err := wsjson.Write(ctx, conn, wshub.ClientMessage{Type: "move", OK: true}); err != nil {
			t.Fatal(err)
		}
	}
	readUntil(t, ctx, conn, isType("throttled"))
	if p, _ := race.GetPlayer(room.Session.State(), "p1"); p.Hits != 1 {
		t.Errorf("hits = %d, want 1", p.Hits)
	}
}

func TestWS_DisconnectLeaves(t *testing.T) {
	srv, ts := newTestServer(t, testConfig())
	room, _ := srv.Rooms.Create("host")
	conn, ctx := dial(t, ts, room, "p1")
	readUntil(t, ctx, conn, isType("welcome"))

	conn.Close(websocket.StatusNormalClosure, "")

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, ok := race.GetPlayer(room.Session.State(), "p1"); !ok && room.Hub.Count() == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("peer should leave the race once its connection closes")
}

func TestWS_ForceResetFromHost(t *testing.T) {
	srv, ts := newTestServer(t, testConfig())
	room, _ := srv.Rooms.Create("host")
	guest, gctx := dial(t, ts, room, "guest")
	readUntil(t, gctx, guest, isType("welcome"))
	host, hctx := dial(t, ts, room, "host")
	readUntil(t, hctx, host, isType("welcome"))

	if err := wsjson.Write(gctx, guest, wshub.ClientMessage{Type: "force_reset"}); err != nil {
		t.Fatal(err)
	}
	if err := wsjson.Write(hctx, host, wshub.ClientMessage{Type: "force_reset"}); err != nil {
		t.Fatal(err)
	}
	readUntil(t, gctx, guest, isCmd(replica.KindForceReset))
	if n := len(room.Session.State().Players); n != 0 {
		t.Errorf("players after force reset = %d, want 0", n)
	}
}
