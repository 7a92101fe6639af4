// internal/catalog/catalog.go
//
// Puzzle catalog: fetches puzzle definitions and the archive index.
// Responsibilities:
//   - Load "puzzles/<id>.json" from a filesystem (embedded or on disk) or an HTTP base URL.
//   - Build the index from "puzzles/index.json" (a raw summary array) or, when that is
//     missing, from "puzzles/manifest.json" (a list of filenames) by fetching and
//     summarizing every listed puzzle concurrently.
//   - Sort the index by date, newest first.
//
// Notes:
//   - A fetch either returns a complete, valid puzzle or an error; callers keep
//     their current puzzle on error.

package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hugolynch/double-speak/internal/puzzle"
)

var (
	ErrNotFound   = errors.New("puzzle not found")
	ErrBadID      = errors.New("bad puzzle id")
	ErrIDMismatch = errors.New("puzzle id does not match its file")
)

const (
	dir          = "puzzles"
	indexFile    = "index.json"
	manifestFile = "manifest.json"
	maxInFlight  = 8
)

// Source provides puzzles and the archive index.
type Source interface {
	Index(ctx context.Context) ([]puzzle.Summary, error)
	Load(ctx context.Context, id string) (*puzzle.Puzzle, error)
}

// fetcher reads one file relative to the catalog root. It returns ErrNotFound
// for missing files.
type fetcher func(ctx context.Context, name string) ([]byte, error)

type source struct {
	fetch fetcher
}

// ValidID reports whether id is safe to use as a file name.
func ValidID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, r := range id {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return false
		}
	}
	return true
}

func (s *source) Load(ctx context.Context, id string) (*puzzle.Puzzle, error) {
	if !ValidID(id) {
		return nil, ErrBadID
	}
	p, err := s.decode(ctx, id+".json")
	if err != nil {
		return nil, err
	}
	if p.ID != id {
		return nil, fmt.Errorf("%w: %q in %s.json", ErrIDMismatch, p.ID, id)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("puzzle %s: %w", id, err)
	}
	return p, nil
}

func (s *source) decode(ctx context.Context, file string) (*puzzle.Puzzle, error) {
	b, err := s.fetch(ctx, path.Join(dir, file))
	if err != nil {
		return nil, err
	}
	p, err := puzzle.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return p, nil
}

func (s *source) Index(ctx context.Context) ([]puzzle.Summary, error) {
	list, err := s.rawIndex(ctx)
	if errors.Is(err, ErrNotFound) {
		list, err = s.manifestIndex(ctx)
	}
	if err != nil {
		return nil, err
	}
	puzzle.SortByDateDesc(list)
	return list, nil
}

func (s *source) rawIndex(ctx context.Context) ([]puzzle.Summary, error) {
	b, err := s.fetch(ctx, path.Join(dir, indexFile))
	if err != nil {
		return nil, err
	}
	var list []puzzle.Summary
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, fmt.Errorf("%s: %w", indexFile, err)
	}
	return list, nil
}

func (s *source) manifestIndex(ctx context.Context) ([]puzzle.Summary, error) {
	b, err := s.fetch(ctx, path.Join(dir, manifestFile))
	if err != nil {
		return nil, err
	}
	var files []string
	if err := json.Unmarshal(b, &files); err != nil {
		return nil, fmt.Errorf("%s: %w", manifestFile, err)
	}

	for _, f := range files {
		if !strings.HasSuffix(f, ".json") || !ValidID(strings.TrimSuffix(f, ".json")) {
			return nil, fmt.Errorf("%s: bad entry %q", manifestFile, f)
		}
	}

	list := make([]puzzle.Summary, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInFlight)
	for i, f := range files {
		g.Go(func() error {
			p, err := s.decode(gctx, f)
			if err != nil {
				return err
			}
			list[i] = p.Summary()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return list, nil
}
