// internal/httpserver/routes_daily.go
//
// HTTP routes for the daily puzzle:
//   - GET /daily/status      → today's puzzle id/date and whether this player already finished it
//   - GET /daily/leaderboard → best results for a puzzle (?puzzle=<id>&limit=n; default today, 20)
//
// Each player's first solve is the one that counts (enforced by the daily store).

package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/hugolynch/double-speak/internal/catalog"
	"github.com/hugolynch/double-speak/internal/daily"
)

const maxLeaderboard = 100

func (s *Server) mountDaily(r chi.Router) {
	r.Route("/daily", func(r chi.Router) {
		r.Get("/status", s.handleDailyStatus)
		r.Get("/leaderboard", s.handleLeaderboard)
	})
}

type statusRes struct {
	PuzzleID string `json:"puzzleId"`
	Date     string `json:"date"`
	Title    string `json:"title,omitempty"`
	Played   bool   `json:"played"`
}

// handleDailyStatus reports today's puzzle and whether the player has a result for it.
func (s *Server) handleDailyStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := s.today(w, r)
	if !ok {
		return
	}
	played, err := s.daily.AlreadyPlayed(r.Context(), s.playerID(w, r), p.ID)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("check played")
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, statusRes{PuzzleID: p.ID, Date: p.Date, Title: p.Title, Played: played})
}

type lbParams struct {
	Puzzle string `schema:"puzzle"`
	Limit  int    `schema:"limit"`
}

type lbRes struct {
	PuzzleID string        `json:"puzzleId"`
	Top      []daily.LBRow `json:"top"`
}

// handleLeaderboard returns the leaderboard for the given puzzle (default today's).
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	var q lbParams
	if !decodeQuery(w, r, &q) {
		return
	}
	if q.Puzzle == "" {
		p, ok := s.today(w, r)
		if !ok {
			return
		}
		q.Puzzle = p.ID
	} else if !catalog.ValidID(q.Puzzle) {
		writeError(w, http.StatusBadRequest, "bad_puzzle")
		return
	}
	rows, err := s.daily.Leaderboard(r.Context(), q.Puzzle, min(q.Limit, maxLeaderboard))
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("leaderboard")
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, lbRes{PuzzleID: q.Puzzle, Top: rows})
}
