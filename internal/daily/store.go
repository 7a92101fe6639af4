package daily

import (
	"context"
	"database/sql"
)

// Result is one player's finished puzzle.
type Result struct {
	PlayerID       string `json:"playerId"`
	PuzzleID       string `json:"puzzleId"`
	Score          int    `json:"score"`
	Submits        int    `json:"submits"`
	ElapsedSec     int    `json:"elapsedSec"`
	OneSubmitClear bool   `json:"oneSubmitClear"`
}

// GuestName labels leaderboard rows of players without an account.
const GuestName = "Guest"

// LBRow is one leaderboard line. Player ids stay server side; rows carry the
// account's username, or GuestName.
type LBRow struct {
	Name           string `json:"name"`
	Score          int    `json:"score"`
	Submits        int    `json:"submits"`
	ElapsedSec     int    `json:"elapsedSec"`
	OneSubmitClear bool   `json:"oneSubmitClear"`
}

// Store persists results in the daily_results table.
type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// AlreadyPlayed reports whether the player has a result for the puzzle.
func (s *Store) AlreadyPlayed(ctx context.Context, playerID, puzzleID string) (bool, error) {
	var cnt int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM daily_results WHERE player_id=? AND puzzle_id=?`,
		playerID, puzzleID,
	).Scan(&cnt)
	return cnt > 0, err
}

// InsertResult records a finished puzzle. A second result for the same
// player and puzzle is ignored; the first solve stands.
func (s *Store) InsertResult(ctx context.Context, r Result) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO daily_results(player_id, puzzle_id, score, submits, elapsed_s, one_submit_clear)
		VALUES(?,?,?,?,?,?)`,
		r.PlayerID, r.PuzzleID, r.Score, r.Submits, r.ElapsedSec, r.OneSubmitClear,
	)
	return err
}

// Leaderboard lists the best results for a puzzle: lowest score, then fewest
// submits, then earliest finish.
func (s *Store) Leaderboard(ctx context.Context, puzzleID string, limit int) ([]LBRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(u.username, ?), r.score, r.submits, r.elapsed_s, r.one_submit_clear
		FROM daily_results r
		LEFT JOIN users u ON u.id = r.player_id
		WHERE r.puzzle_id=?
		ORDER BY r.score ASC, r.submits ASC, r.created_at ASC
		LIMIT ?`, GuestName, puzzleID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []LBRow{}
	for rows.Next() {
		var r LBRow
		if err := rows.Scan(&r.Name, &r.Score, &r.Submits, &r.ElapsedSec, &r.OneSubmitClear); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
