package server

import (
	"chograce/internal/analytics"
	"chograce/internal/db"
	"chograce/internal/peers"
	"chograce/internal/race"
	"chograce/internal/rooms"
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

const (
	hitBufferSize = 1000
	hitBatchSize  = 50
	flushInterval = 500 * time.Millisecond
	flushTimeout  = 2 * time.Second
)

// Archive persists finished races to Postgres. A nil *Archive discards
// everything, which is how the server runs without a database.
type Archive struct {
	db    *db.DB
	hits  chan db.HitEvent
	flush chan chan struct{}

	mu    sync.Mutex
	races map[string]string // room code -> current race id
}

func NewArchive(database *db.DB) *Archive {
	return &Archive{
		db:    database,
		hits:  make(chan db.HitEvent, hitBufferSize),
		flush: make(chan chan struct{}),
		races: make(map[string]string),
	}
}

// Run batches hit events until ctx is done.
func (a *Archive) Run(ctx context.Context) {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]db.HitEvent, 0, hitBatchSize)
	write := func() {
		if len(batch) == 0 {
			return
		}
		if err := a.db.BatchRecordHits(batch); err != nil {
			log.Error("batch record hits", "err", err, "count", len(batch))
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			write()
			return
		case ev := <-a.hits:
			batch = append(batch, ev)
			if len(batch) >= hitBatchSize {
				write()
			}
		case done := <-a.flush:
			for len(a.hits) > 0 {
				batch = append(batch, <-a.hits)
			}
			write()
			close(done)
		case <-ticker.C:
			write()
		}
	}
}

// Flush waits until every queued hit has been written.
func (a *Archive) Flush() {
	if a == nil {
		return
	}
	done := make(chan struct{})
	select {
	case a.flush <- done:
		<-done
	case <-time.After(flushTimeout):
		log.Warn("archive flush timed out")
	}
}

func (a *Archive) PlayerJoined(p *peers.Peer) {
	if a == nil {
		return
	}
	if err := a.db.UpsertPlayer(p.ID, p.Name, p.Color, p.Logo); err != nil {
		log.Error("upsert player", "err", err, "player", p.ID)
	}
}

func (a *Archive) RaceStarted(room *rooms.Room, st *race.State) {
	if a == nil || st.StartTime == nil {
		return
	}
	id := uuid.New().String()
	if err := a.db.CreateRace(id, room.Code, room.HostID, st.MaxHits, *st.StartTime); err != nil {
		log.Error("create race", "err", err, "room", room.Code)
		return
	}
	a.mu.Lock()
	a.races[room.Code] = id
	a.mu.Unlock()
}

func (a *Archive) raceID(code string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.races[code]
}

func (a *Archive) take(code string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.races[code]
	delete(a.races, code)
	return id
}

func (a *Archive) Move(code, peerID string, success bool, st *race.State) {
	if a == nil {
		return
	}
	id := a.raceID(code)
	if id == "" {
		return
	}
	p, _ := race.GetPlayer(st, peerID)
	select {
	case a.hits <- db.HitEvent{RaceID: id, PlayerID: peerID, Success: success, Hits: p.Hits, At: time.Now()}:
	default:
		log.Warn("hit buffer full, dropping event", "room", code)
	}
}

func (a *Archive) RaceFinished(code string, st *race.State, reason race.Reason) {
	if a == nil {
		return
	}
	id := a.take(code)
	if id == "" {
		return
	}
	go a.writeResults(id, st, reason)
}

func (a *Archive) RaceAborted(code string, st *race.State, reason race.Reason) {
	if a == nil {
		return
	}
	id := a.take(code)
	if id == "" {
		return
	}
	go func() {
		if err := a.db.EndRace(id, string(reason), time.Now()); err != nil {
			log.Error("end race", "err", err, "race", id)
		}
	}()
}

func (a *Archive) writeResults(raceID string, st *race.State, reason race.Reason) {
	a.Flush()

	if err := a.db.EndRace(raceID, string(reason), time.Now()); err != nil {
		log.Error("end race", "err", err, "race", raceID)
	}
	results := raceResults(st)
	for _, res := range results {
		if err := a.db.AddRacePlayer(raceID, res); err != nil {
			log.Error("add race player", "err", err, "race", raceID)
		}
	}

	q := analytics.NewQueries(a.db)
	for _, res := range results {
		stats, err := q.GetPlayerRaceStats(raceID, res.PlayerID)
		if err != nil {
			log.Error("race stats", "err", err, "player", res.PlayerID)
			continue
		}
		for _, b := range analytics.EvaluateRaceBadges(*stats) {
			rid := raceID
			a.award(res.PlayerID, b, &rid)
		}
		life, err := q.GetPlayerLifetimeStats(res.PlayerID)
		if err != nil {
			continue
		}
		for _, b := range analytics.EvaluateLifetimeBadges(*life) {
			a.award(res.PlayerID, b, nil)
		}
	}
	log.Info("race archived", "race", raceID, "reason", reason, "players", len(results))
}

func (a *Archive) award(playerID string, b analytics.Badge, raceID *string) {
	first, err := a.db.AwardBadge(playerID, string(b.ID), raceID)
	if err != nil {
		log.Error("award badge", "err", err)
		return
	}
	if first {
		log.Info("badge earned", "player", playerID, "badge", b.ID)
	}
}

// raceResults ranks the players of a finished race the way the leaderboard
// shows them.
func raceResults(st *race.State) []db.RacePlayerResult {
	board := race.LeaderboardFromState(st, "")
	results := make([]db.RacePlayerResult, 0, len(board.Players))
	for _, lp := range board.Players {
		p, _ := race.GetPlayer(st, lp.ID)
		res := db.RacePlayerResult{
			PlayerID:    lp.ID,
			Hits:        lp.Hits,
			Finished:    p.Finished,
			FinishPlace: p.Place,
			Rank:        lp.Place,
		}
		if lp.CompletionTime != nil {
			ms := lp.CompletionTime.Milliseconds()
			res.CompletionMs = &ms
		}
		results = append(results, res)
	}
	return results
}
