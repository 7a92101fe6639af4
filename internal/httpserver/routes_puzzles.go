// internal/httpserver/routes_puzzles.go
//
// Catalog routes:
//   - GET /puzzles        → released puzzles, newest first (?limit=&before=YYYY-MM-DD)
//   - GET /puzzles/today  → today's puzzle without its answers
//   - GET /puzzles/{id}   → one released puzzle without its answers
//
// Puzzles dated after today are treated as missing.

package httpserver

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/hugolynch/double-speak/internal/catalog"
	"github.com/hugolynch/double-speak/internal/daily"
	"github.com/hugolynch/double-speak/internal/puzzle"
)

type indexParams struct {
	Limit  int    `schema:"limit"`
	Before string `schema:"before"`
}

func (s *Server) mountPuzzles(r chi.Router) {
	r.Route("/puzzles", func(r chi.Router) {
		r.Get("/", s.handleIndex)
		r.Get("/today", s.handleToday)
		r.Get("/{id}", s.handlePuzzle)
	})
}

// released returns the index without future puzzles.
func (s *Server) released(r *http.Request) ([]puzzle.Summary, error) {
	index, err := s.catalog.Index(r.Context())
	if err != nil {
		return nil, err
	}
	return daily.Released(index, s.now()), nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var q indexParams
	if !decodeQuery(w, r, &q) {
		return
	}
	if q.Before != "" && !puzzle.ValidDate(q.Before) {
		writeError(w, http.StatusBadRequest, "bad_date")
		return
	}
	list, err := s.released(r)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("load index")
		writeError(w, http.StatusBadGateway, "index_unavailable")
		return
	}
	if q.Before != "" {
		kept := list[:0]
		for _, p := range list {
			if p.Date < q.Before {
				kept = append(kept, p)
			}
		}
		list = kept
	}
	if q.Limit > 0 && q.Limit < len(list) {
		list = list[:q.Limit]
	}
	writeJSON(w, list)
}

func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	p, ok := s.today(w, r)
	if !ok {
		return
	}
	writeJSON(w, p.Public())
}

func (s *Server) handlePuzzle(w http.ResponseWriter, r *http.Request) {
	p, ok := s.loadPuzzle(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	writeJSON(w, p.Public())
}

// today loads the puzzle of the day, writing an error response on failure.
func (s *Server) today(w http.ResponseWriter, r *http.Request) (*puzzle.Puzzle, bool) {
	list, err := s.released(r)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("load index")
		writeError(w, http.StatusBadGateway, "index_unavailable")
		return nil, false
	}
	pick, ok := daily.Pick(list, s.now())
	if !ok {
		writeError(w, http.StatusNotFound, "no_puzzle")
		return nil, false
	}
	return s.loadPuzzle(w, r, pick.ID)
}

// loadPuzzle fetches a released puzzle, writing an error response on failure.
func (s *Server) loadPuzzle(w http.ResponseWriter, r *http.Request, id string) (*puzzle.Puzzle, bool) {
	p, err := s.catalog.Load(r.Context(), id)
	switch {
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, catalog.ErrBadID):
		writeError(w, http.StatusNotFound, "not_found")
		return nil, false
	case err != nil:
		hlog.FromRequest(r).Error().Err(err).Str("puzzle", id).Msg("load puzzle")
		writeError(w, http.StatusBadGateway, "puzzle_unavailable")
		return nil, false
	}
	if p.Date > daily.DateKey(s.now()) {
		writeError(w, http.StatusNotFound, "not_found")
		return nil, false
	}
	return p, true
}
