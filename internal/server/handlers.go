package server

import (
	"chograce/internal/peers"
	"chograce/internal/race"
	"chograce/internal/rooms"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

const (
	peerCookie = "peer_id"
	roomCookie = "room_code"
)

type roomView struct {
	Code      string        `json:"code"`
	HostID    string        `json:"hostId"`
	CreatedAt time.Time     `json:"createdAt"`
	Version   uint64        `json:"version"`
	State     *race.State   `json:"state"`
	Peers     []*peers.Peer `json:"peers"`
	Connected []string      `json:"connected"`
	Label     string        `json:"statusLabel"`
}

type roomSummary struct {
	Code      string      `json:"code"`
	Status    race.Status `json:"status"`
	Players   int         `json:"players"`
	Connected int         `json:"connected"`
	CreatedAt time.Time   `json:"createdAt"`
}

func viewRoom(room *rooms.Room) roomView {
	snap := room.Session.Snapshot()
	return roomView{
		Code:      room.Code,
		HostID:    room.HostID,
		CreatedAt: room.CreatedAt,
		Version:   snap.Version,
		State:     snap.State,
		Peers:     room.Peers.GetList(),
		Connected: room.Hub.PeerIDs(),
		Label:     race.DisplayStatus(snap.State.Status),
	}
}

type leaderboardRow struct {
	ID     string `json:"id"`
	Trophy string `json:"trophy,omitempty"`
	Stats  string `json:"stats"`
}

type leaderboardView struct {
	race.LeaderboardData
	Rows []leaderboardRow `json:"rows"`
}

func viewLeaderboard(lb race.LeaderboardData, maxHits int) leaderboardView {
	rows := make([]leaderboardRow, 0, len(lb.Players))
	for _, p := range lb.Players {
		row := leaderboardRow{ID: p.ID, Stats: race.FormatPlayerStats(p, maxHits)}
		if p.Place <= lb.ShowTrophies {
			row.Trophy = race.TrophyEmoji(p.Place)
		}
		rows = append(rows, row)
	}
	return leaderboardView{LeaderboardData: lb, Rows: rows}
}

// moveOutcome derives a move's success from reported cursor geometry when
// present, against the bar the player currently sees.
func moveOutcome(room *rooms.Room, id string, ok bool, cursor *float64, target *int) bool {
	if cursor == nil || target == nil {
		return ok
	}
	p, _ := race.GetPlayer(room.Session.State(), id)
	return race.HitTest(*cursor, *target, race.MoveGameSettings(p.Hits).TargetWidth)
}

func peerID(r *http.Request) string {
	c, err := r.Cookie(peerCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

func setCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
	})
}

// ensurePeer returns the caller's peer id, issuing a new one if needed.
func ensurePeer(w http.ResponseWriter, r *http.Request) string {
	if id := peerID(r); id != "" {
		return id
	}
	id := uuid.New().String()
	setCookie(w, peerCookie, id)
	return id
}

// decodeBody reads an optional JSON body into v.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// getRoom resolves the {code} path value, writing a 404 when there is no
// such room.
func (s *Server) getRoom(w http.ResponseWriter, r *http.Request) *rooms.Room {
	code, ok := rooms.NormalizeCode(r.PathValue("code"))
	var room *rooms.Room
	if ok {
		room = s.Rooms.Get(code)
	}
	if room == nil {
		http.Error(w, "Room not found", http.StatusNotFound)
	}
	return room
}

// join adds the peer to the room's race and records it in the archive.
func (s *Server) join(room *rooms.Room, id, name string) *peers.Peer {
	p := room.Join(id, name)
	s.Archive.PlayerJoined(p)
	log.Info("player joined", "room", room.Code, "player", id, "name", p.Name)
	return p
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	hostID := ensurePeer(w, r)
	room, err := s.Rooms.Create(hostID)
	if err != nil {
		log.Error("create room", "err", err)
		http.Error(w, "Failed to create room", http.StatusInternalServerError)
		return
	}
	setCookie(w, roomCookie, room.Code)
	writeJSON(w, http.StatusCreated, map[string]string{"code": room.Code, "hostId": hostID})
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	list := s.Rooms.List()
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	out := make([]roomSummary, 0, len(list))
	for _, room := range list {
		st := room.Session.State()
		out = append(out, roomSummary{
			Code:      room.Code,
			Status:    st.Status,
			Players:   len(st.Players),
			Connected: room.Hub.Count(),
			CreatedAt: room.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code string `json:"code"`
	}
	if err := decodeBody(r, &body); err != nil {
		http.Error(w, "Invalid body", http.StatusBadRequest)
		return
	}
	code, ok := rooms.NormalizeCode(body.Code)
	if !ok {
		http.Error(w, "Invalid room code", http.StatusBadRequest)
		return
	}
	room := s.Rooms.Get(code)
	if room == nil {
		http.Error(w, "Room not found", http.StatusNotFound)
		return
	}
	ensurePeer(w, r)
	setCookie(w, roomCookie, room.Code)
	writeJSON(w, http.StatusOK, viewRoom(room))
}

func (s *Server) handleRoom(w http.ResponseWriter, r *http.Request) {
	room := s.getRoom(w, r)
	if room == nil {
		return
	}
	writeJSON(w, http.StatusOK, viewRoom(room))
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	room := s.getRoom(w, r)
	if room == nil {
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &body); err != nil {
		http.Error(w, "Invalid body", http.StatusBadRequest)
		return
	}
	id := ensurePeer(w, r)
	p := s.join(room, id, strings.TrimSpace(body.Name))
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	room := s.getRoom(w, r)
	if room == nil {
		return
	}
	id := peerID(r)
	if id == "" {
		http.Error(w, "Not Registered", http.StatusBadRequest)
		return
	}
	room.Leave(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	room := s.getRoom(w, r)
	if room == nil {
		return
	}
	if !room.Session.Start() {
		http.Error(w, "Race cannot start", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, room.Session.State())
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	room := s.getRoom(w, r)
	if room == nil {
		return
	}
	room.Session.End()
	writeJSON(w, http.StatusOK, room.Session.State())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	room := s.getRoom(w, r)
	if room == nil {
		return
	}
	room.Session.Reset()
	writeJSON(w, http.StatusOK, room.Session.State())
}

// forceReset empties the room: the race and every peer registration.
func forceReset(room *rooms.Room) {
	for _, p := range room.Peers.GetList() {
		room.Peers.Remove(p.ID)
	}
	room.Session.ForceReset()
	log.Info("room force reset", "room", room.Code)
}

func (s *Server) handleForceReset(w http.ResponseWriter, r *http.Request) {
	room := s.getRoom(w, r)
	if room == nil {
		return
	}
	if peerID(r) != room.HostID {
		http.Error(w, "Only the host can force a reset", http.StatusForbidden)
		return
	}
	forceReset(room)
	writeJSON(w, http.StatusOK, room.Session.State())
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	room := s.getRoom(w, r)
	if room == nil {
		return
	}
	id := peerID(r)
	if id == "" {
		http.Error(w, "Not Registered", http.StatusBadRequest)
		return
	}
	body := struct {
		OK     bool     `json:"ok"`
		Cursor *float64 `json:"cursor"`
		Target *int     `json:"target"`
	}{OK: true}
	if err := decodeBody(r, &body); err != nil {
		http.Error(w, "Invalid body", http.StatusBadRequest)
		return
	}
	if !room.Peers.Allow(id) {
		s.Metrics.ObserveThrottled()
		http.Error(w, "Too many moves", http.StatusTooManyRequests)
		return
	}
	if !room.Session.Move(id, moveOutcome(room, id, body.OK, body.Cursor, body.Target)) {
		http.Error(w, "Player cannot move", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, room.Session.State())
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	room := s.getRoom(w, r)
	if room == nil {
		return
	}
	lb := room.Session.Leaderboard(peerID(r))
	writeJSON(w, http.StatusOK, viewLeaderboard(lb, room.Session.Rules().MaxHits))
}

// handleBar returns the move bar difficulty for the caller's next move.
func (s *Server) handleBar(w http.ResponseWriter, r *http.Request) {
	room := s.getRoom(w, r)
	if room == nil {
		return
	}
	st := room.Session.State()
	p, ok := race.GetPlayer(st, peerID(r))
	if !ok {
		http.Error(w, "Not Registered", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Hits    int `json:"hits"`
		MaxHits int `json:"maxHits"`
		race.BarSettings
	}{p.Hits, st.MaxHits, race.MoveGameSettings(p.Hits)})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	room := s.getRoom(w, r)
	if room == nil {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	msgChan := room.Broadcaster.Subscribe()
	defer room.Broadcaster.Unsubscribe(msgChan)

	fmt.Fprintf(w, "event: status\ndata: {\"status\":%q}\n\n", room.Session.Status())
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg := <-msgChan:
			fmt.Fprintf(w, "event: %s\n", msg.Event)
			for _, line := range strings.Split(msg.Msg, "\n") {
				fmt.Fprintf(w, "data: %s\n", line)
			}
			fmt.Fprint(w, "\n")
			flusher.Flush()
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.DB != nil {
		if err := s.DB.Ping(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "db_error", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "rooms": s.Rooms.Count()})
}
