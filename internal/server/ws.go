package server

import (
	"chograce/internal/race"
	"chograce/internal/rooms"
	"chograce/internal/wshub"
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const (
	wsReadLimit    = 4096
	wsSendBuffer   = 64
	wsPingInterval = 25 * time.Second
	wsPingTimeout  = 10 * time.Second
)

// handleWS attaches a peer to the room's command stream. The peer joins the
// race on connect if it has not already, and leaves when its last
// connection drops.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	room := s.getRoom(w, r)
	if room == nil {
		return
	}
	id := ensurePeer(w, r)

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Warn("websocket accept", "err", err, "room", room.Code)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(wsReadLimit)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	client := &wshub.Client{PeerID: id, Conn: conn, Send: make(chan []byte, wsSendBuffer)}
	room.Hub.Register(client)
	s.Metrics.PeersOnline.Inc()
	defer s.Metrics.PeersOnline.Dec()

	go func() {
		client.WritePump(ctx)
		cancel()
	}()
	go pingLoop(ctx, conn)

	if _, ok := race.GetPlayer(room.Session.State(), id); !ok {
		s.join(room, id, r.URL.Query().Get("name"))
	}
	snap := room.Session.Snapshot()
	room.Hub.Send(id, wshub.ServerMessage{Type: "welcome", PeerID: id, Snapshot: &snap})
	log.Debug("peer connected", "room", room.Code, "peer", id)

	for {
		var msg wshub.ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			break
		}
		s.handleClientMessage(room, id, msg)
	}

	if room.Hub.Unregister(client) {
		room.Leave(id)
		log.Debug("peer disconnected", "room", room.Code, "peer", id)
	}
}

func (s *Server) handleClientMessage(room *rooms.Room, id string, msg wshub.ClientMessage) {
	switch msg.Type {
	case "move":
		if !room.Peers.Allow(id) {
			s.Metrics.ObserveThrottled()
			room.Hub.Send(id, wshub.ServerMessage{Type: "throttled"})
			return
		}
		room.Session.Move(id, moveOutcome(room, id, msg.OK, msg.Cursor, msg.Target))
	case "start":
		room.Session.Start()
	case "end":
		room.Session.End()
	case "reset":
		room.Session.Reset()
	case "force_reset":
		if id != room.HostID {
			log.Warn("force reset refused", "room", room.Code, "peer", id)
			return
		}
		forceReset(room)
	case "sync":
		resync(room, id, msg.Version)
	default:
		log.Debug("unknown client message", "type", msg.Type, "peer", id)
	}
}

// resync replays the commands a peer missed after seq, or sends a fresh
// snapshot when the log no longer reaches that far back.
func resync(room *rooms.Room, id string, seq uint64) {
	cmds, ok := room.Session.Since(seq)
	if !ok {
		snap := room.Session.Snapshot()
		room.Hub.Send(id, wshub.ServerMessage{Type: "snapshot", Snapshot: &snap})
		return
	}
	for i := range cmds {
		if !room.Hub.Send(id, wshub.ServerMessage{Type: "cmd", Command: &cmds[i]}) {
			return
		}
	}
}

func pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, wsPingTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				conn.CloseNow()
				return
			}
		}
	}
}
