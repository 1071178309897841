package server

import (
	"chograce/internal/config"
	"chograce/internal/db"
	"chograce/internal/metrics"
	"chograce/internal/race"
	"chograce/internal/rooms"
	"chograce/internal/session"
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"
)

type Server struct {
	Config  config.Config
	Rooms   *rooms.Store
	DB      *db.DB   // nil if no database configured
	Archive *Archive // nil if no database configured
	Metrics *metrics.Metrics
}

func New(cfg config.Config, database *db.DB) *Server {
	s := &Server{
		Config:  cfg,
		DB:      database,
		Metrics: metrics.New(),
	}
	if database != nil {
		s.Archive = NewArchive(database)
	}
	s.Rooms = rooms.NewStore(rooms.Config{
		Session:  cfg.Session(),
		Cooldown: cfg.MoveCooldown,
		TTL:      cfg.RoomTTL,
		Setup:    s.setupRoom,
		Teardown: s.teardownRoom,
	})
	return s
}

// setupRoom wires a new room's session into metrics and the archive.
func (s *Server) setupRoom(room *rooms.Room) {
	s.Metrics.RoomsActive.Inc()
	room.Session.Subscribe(s.Metrics.ObserveCommand)
	room.Session.SetHooks(session.Hooks{
		OnStart: func(st *race.State) {
			s.Metrics.RacesStarted.Inc()
			s.Archive.RaceStarted(room, st)
			log.Info("race started", "room", room.Code, "players", len(st.Players))
		},
		OnFinish: func(st *race.State, reason race.Reason) {
			s.Metrics.ObserveFinish(st, reason)
			s.Archive.RaceFinished(room.Code, st, reason)
			log.Info("race finished", "room", room.Code, "reason", reason, "finishers", len(st.FinishOrder))
		},
		OnAbort: func(st *race.State, reason race.Reason) {
			s.Archive.RaceAborted(room.Code, st, reason)
			log.Info("race aborted", "room", room.Code, "reason", reason)
		},
		OnMove: func(peerID string, success bool, st *race.State) {
			s.Metrics.ObserveMove(success)
			s.Archive.Move(room.Code, peerID, success, st)
		},
	})
}

func (s *Server) teardownRoom(room *rooms.Room) {
	s.Metrics.RoomsActive.Dec()
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /rooms", s.handleCreateRoom)
	mux.HandleFunc("GET /rooms", s.handleListRooms)
	mux.HandleFunc("POST /rooms/join", s.handleJoinRoom)
	mux.HandleFunc("GET /rooms/{code}", s.handleRoom)
	mux.HandleFunc("POST /rooms/{code}/players", s.handleRegister)
	mux.HandleFunc("DELETE /rooms/{code}/players", s.handleLeave)
	mux.HandleFunc("POST /rooms/{code}/start", s.handleStart)
	mux.HandleFunc("POST /rooms/{code}/end", s.handleEnd)
	mux.HandleFunc("POST /rooms/{code}/reset", s.handleReset)
	mux.HandleFunc("POST /rooms/{code}/force-reset", s.handleForceReset)
	mux.HandleFunc("POST /rooms/{code}/move", s.handleMove)
	mux.HandleFunc("GET /rooms/{code}/leaderboard", s.handleLeaderboard)
	mux.HandleFunc("GET /rooms/{code}/bar", s.handleBar)
	mux.HandleFunc("GET /rooms/{code}/events", s.handleEvents)
	mux.HandleFunc("GET /rooms/{code}/ws", s.handleWS)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", s.Metrics.Handler())
	mux.HandleFunc("GET /analytics/leaderboard", s.handleAnalyticsLeaderboard)
	mux.HandleFunc("GET /analytics/players/{id}", s.handleAnalyticsPlayer)
	mux.HandleFunc("GET /analytics/races/{id}", s.handleAnalyticsRace)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("write response", "err", err)
	}
}

