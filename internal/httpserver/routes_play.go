// internal/httpserver/routes_play.go
//
// HTTP routes for playing one puzzle. All routes live under /play/{id}:
//   - GET  /play/{id}         → current session state (restored from the session store)
//   - POST /play/{id}/entry   → {"cell":n,"value":"..."} set a cell's visible value
//   - POST /play/{id}/focus   → {"cell":n} | {"next":true} | {} (clear)
//   - POST /play/{id}/reveal  → reveal one letter of the focused (or given) cell
//   - POST /play/{id}/submit  → check the board; records the daily result once solved
//   - POST /play/{id}/reset   → discard progress
//   - GET  /play/{id}/score   → score report and share text
//
// Each request loads the player's session from the session store, applies the
// change and writes it back. Requests for the same player and puzzle are
// serialized; nothing is kept in memory between requests.

package httpserver

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/hugolynch/double-speak/internal/daily"
	"github.com/hugolynch/double-speak/internal/grid"
	"github.com/hugolynch/double-speak/internal/play"
	"github.com/hugolynch/double-speak/internal/puzzle"
	"github.com/hugolynch/double-speak/internal/score"
	"github.com/hugolynch/double-speak/internal/session"
)

// keyLocks serializes requests per player|puzzle. An entry lives only while
// some request holds or waits on it.
type keyLocks struct {
	mu sync.Mutex
	m  map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{m: make(map[string]*keyLock)}
}

// lock blocks until key is free and returns its release func.
func (k *keyLocks) lock(key string) func() {
	k.mu.Lock()
	l, ok := k.m[key]
	if !ok {
		l = &keyLock{}
		k.m[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		if l.refs--; l.refs == 0 {
			delete(k.m, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyLocks) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.m)
}

type ctxGameKey struct{}

// playCtx is what withGame hands to the play handlers.
type playCtx struct {
	player string
	puzzle *puzzle.Puzzle
	game   *play.Game
}

func (s *Server) mountPlay(r chi.Router) {
	r.Route("/play/{id}", func(r chi.Router) {
		r.Use(s.withGame)
		r.Get("/", s.handleState)
		r.Post("/entry", s.handleEntry)
		r.Post("/focus", s.handleFocus)
		r.Post("/reveal", s.handleReveal)
		r.Post("/submit", s.handleSubmit)
		r.Post("/reset", s.handleReset)
		r.Get("/score", s.handleScore)
	})
}

// game restores player's session on p from the session store, or starts a
// fresh one. Callers hold the player|puzzle lock.
func (s *Server) game(ctx context.Context, player string, p *puzzle.Puzzle) (*play.Game, error) {
	g, err := s.sessions.For(player).Load(ctx, p, s.now)
	switch {
	case err == nil:
	case session.Fresh(err):
		if !errors.Is(err, session.ErrNotFound) {
			zerolog.Ctx(ctx).Warn().Err(err).Str("puzzle", p.ID).Msg("discarding saved session")
		}
		g = play.NewGame(p, s.now)
	default:
		return nil, err
	}
	return g, nil
}

// withGame resolves the player, the puzzle and the session, and holds the
// player|puzzle lock until the handler returns.
func (s *Server) withGame(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := s.loadPuzzle(w, r, chi.URLParam(r, "id"))
		if !ok {
			return
		}
		player := s.playerID(w, r)
		unlock := s.locks.lock(player + "|" + p.ID)
		defer unlock()
		g, err := s.game(r.Context(), player, p)
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("restore session")
			writeError(w, http.StatusInternalServerError, "session_unavailable")
			return
		}
		pc := &playCtx{player: player, puzzle: p, game: g}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxGameKey{}, pc)))
	})
}

func playFrom(r *http.Request) *playCtx {
	pc, _ := r.Context().Value(ctxGameKey{}).(*playCtx)
	return pc
}

// save writes the session through to the store (best effort).
func (s *Server) save(r *http.Request, pc *playCtx) {
	if err := s.sessions.For(pc.player).Save(r.Context(), pc.game); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Str("puzzle", pc.puzzle.ID).Msg("save session")
	}
}

// stateRes is the session as the client sees it: the persisted record plus
// each cell's visible value and the running clock.
type stateRes struct {
	session.Record
	Display map[grid.Index]string `json:"display"`
	Elapsed int                   `json:"elapsed"`
}

func stateOf(pc *playCtx) stateRes {
	snap := pc.game.Snapshot()
	display := make(map[grid.Index]string)
	for _, i := range pc.puzzle.SolutionIndices() {
		if v := snap.State.Display(i); v != "" {
			display[i] = v
		}
	}
	return stateRes{Record: session.FromSnapshot(snap), Display: display, Elapsed: snap.Elapsed}
}

type changeRes struct {
	Changed bool     `json:"changed"`
	State   stateRes `json:"state"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, stateOf(playFrom(r)))
}

type entryReq struct {
	Cell  *grid.Index `json:"cell"`
	Value string      `json:"value"`
}

func (s *Server) handleEntry(w http.ResponseWriter, r *http.Request) {
	pc := playFrom(r)
	var req entryReq
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Cell == nil {
		writeError(w, http.StatusBadRequest, "bad_cell")
		return
	}
	changed, err := pc.game.SetEntry(*req.Cell, req.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_cell")
		return
	}
	if changed {
		s.save(r, pc)
	}
	writeJSON(w, changeRes{Changed: changed, State: stateOf(pc)})
}

type focusReq struct {
	Cell *grid.Index `json:"cell"`
	Next bool        `json:"next"`
}

func (s *Server) handleFocus(w http.ResponseWriter, r *http.Request) {
	pc := playFrom(r)
	var req focusReq
	if !decodeBody(w, r, &req) {
		return
	}
	switch {
	case req.Next:
		pc.game.FocusNext()
	case req.Cell != nil:
		if err := pc.game.Focus(*req.Cell); err != nil {
			writeError(w, http.StatusBadRequest, "bad_cell")
			return
		}
	default:
		_ = pc.game.Focus(play.NoFocus)
	}
	s.save(r, pc)
	writeJSON(w, stateOf(pc))
}

type revealReq struct {
	Cell *grid.Index `json:"cell"`
}

func (s *Server) handleReveal(w http.ResponseWriter, r *http.Request) {
	pc := playFrom(r)
	var req revealReq
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}
	if req.Cell != nil {
		if err := pc.game.Focus(*req.Cell); err != nil {
			writeError(w, http.StatusBadRequest, "bad_cell")
			return
		}
	}
	changed := pc.game.RevealLetter()
	s.save(r, pc)
	writeJSON(w, changeRes{Changed: changed, State: stateOf(pc)})
}

type submitRes struct {
	Result play.Result `json:"result"`
	State  stateRes    `json:"state"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	pc := playFrom(r)
	res := pc.game.Submit()
	s.save(r, pc)
	if res.AllCorrect {
		s.recordResult(r, pc)
	}
	writeJSON(w, submitRes{Result: res, State: stateOf(pc)})
}

// recordResult stores the finished puzzle on the daily board. Only the first
// solve per player counts; later calls are ignored by the store.
func (s *Server) recordResult(r *http.Request, pc *playCtx) {
	snap := pc.game.Snapshot()
	if snap.CompletionTime == nil {
		return
	}
	rep := pc.game.Score()
	err := s.daily.InsertResult(r.Context(), daily.Result{
		PlayerID:       pc.player,
		PuzzleID:       pc.puzzle.ID,
		Score:          rep.Total,
		Submits:        snap.State.Attempts,
		ElapsedSec:     *snap.CompletionTime,
		OneSubmitClear: rep.OneSubmitClear,
	})
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Str("puzzle", pc.puzzle.ID).Msg("insert daily result")
	}
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	pc := playFrom(r)
	pc.game.Reset()
	if err := s.sessions.For(pc.player).Clear(r.Context(), pc.puzzle.ID); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Str("puzzle", pc.puzzle.ID).Msg("clear session")
	}
	writeJSON(w, stateOf(pc))
}

type scoreRes struct {
	Report score.Report `json:"report"`
	Share  string       `json:"share"`
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	pc := playFrom(r)
	rep := pc.game.Score()
	writeJSON(w, scoreRes{Report: rep, Share: score.Share(pc.puzzle, rep)})
}
