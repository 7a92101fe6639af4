package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hugolynch/double-speak/internal/puzzle"
)

// maxFileSize bounds a single fetched file.
const maxFileSize = 1 << 20

// NewFSSource reads the catalog from fsys (e.g. the embedded assets or os.DirFS).
func NewFSSource(fsys fs.FS) Source {
	return &source{fetch: func(ctx context.Context, name string) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b, err := fs.ReadFile(fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return b, err
	}}
}

// NewHTTPSource reads the catalog from baseURL (files at <baseURL>/puzzles/...).
// A nil client uses a client with a 10s timeout.
func NewHTTPSource(baseURL string, client *http.Client) Source {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	base := strings.TrimRight(baseURL, "/")
	return &source{fetch: func(ctx context.Context, name string) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/"+name, nil)
		if err != nil {
			return nil, err
		}
		res, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", name, err)
		}
		defer res.Body.Close()
		switch {
		case res.StatusCode == http.StatusNotFound:
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		case res.StatusCode != http.StatusOK:
			return nil, fmt.Errorf("fetch %s: status %d", name, res.StatusCode)
		}
		return io.ReadAll(io.LimitReader(res.Body, maxFileSize))
	}}
}

// Cached keeps loaded puzzles for the life of the process (definitions are
// immutable) and the index for ttl. Failed fetches are not cached.
type Cached struct {
	src Source
	ttl time.Duration
	now func() time.Time

	mu        sync.RWMutex
	puzzles   map[string]*puzzle.Puzzle
	index     []puzzle.Summary
	indexedAt time.Time
}

func NewCached(src Source, ttl time.Duration) *Cached {
	return &Cached{src: src, ttl: ttl, now: time.Now, puzzles: map[string]*puzzle.Puzzle{}}
}

func (c *Cached) Load(ctx context.Context, id string) (*puzzle.Puzzle, error) {
	c.mu.RLock()
	p, ok := c.puzzles[id]
	c.mu.RUnlock()
	if ok {
		return p, nil
	}
	p, err := c.src.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.puzzles[id] = p
	c.mu.Unlock()
	return p, nil
}

func (c *Cached) Index(ctx context.Context) ([]puzzle.Summary, error) {
	c.mu.RLock()
	if c.index != nil && c.now().Sub(c.indexedAt) < c.ttl {
		list := append([]puzzle.Summary(nil), c.index...)
		c.mu.RUnlock()
		return list, nil
	}
	c.mu.RUnlock()

	list, err := c.src.Index(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.index, c.indexedAt = list, c.now()
	c.mu.Unlock()
	return append([]puzzle.Summary(nil), list...), nil
}
