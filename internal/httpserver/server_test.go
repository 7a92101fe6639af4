package httpserver

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugolynch/double-speak/assets"
	"github.com/hugolynch/double-speak/internal/account"
	"github.com/hugolynch/double-speak/internal/catalog"
	"github.com/hugolynch/double-speak/internal/daily"
	"github.com/hugolynch/double-speak/internal/database"
	"github.com/hugolynch/double-speak/internal/session"
)

type fixture struct {
	t      *testing.T
	db     *sql.DB
	kv     session.KV
	clock  *atomic.Int64
	s      *Server
	srv    *httptest.Server
	client *http.Client
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db, assets.FS, "sql"))
	return db
}

func newFixture(t *testing.T, today time.Time) *fixture {
	t.Helper()
	db := openDB(t)
	kv, err := session.NewSQLiteKV(db, "sessions")
	require.NoError(t, err)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	f := &fixture{t: t, db: db, kv: kv, clock: &atomic.Int64{}, client: &http.Client{Jar: jar}}
	f.clock.Store(today.Unix())
	f.restart()
	return f
}

// restart replaces the server with a new one over the same storage.
func (f *fixture) restart() {
	if f.srv != nil {
		f.srv.Close()
	}
	f.s = New(Deps{
		Catalog:  catalog.NewFSSource(assets.FS),
		Sessions: session.NewStore(f.kv, "double-speak"),
		Daily:    daily.NewStore(f.db),
		Accounts: account.NewService(f.db, "test-secret", time.Hour),
		Now:      func() time.Time { return time.Unix(f.clock.Load(), 0).UTC() },
	})
	f.srv = httptest.NewServer(f.s.Router())
	f.t.Cleanup(f.srv.Close)
}

func (f *fixture) advance(d time.Duration) { f.clock.Add(int64(d / time.Second)) }

// do sends a request with an optional JSON body and decodes the JSON reply into out.
func (f *fixture) do(method, path string, body, out any) int {
	f.t.Helper()
	return f.doWith(f.client, method, path, body, out)
}

// doWith is do for another client, i.e. another player.
func (f *fixture) doWith(client *http.Client, method, path string, body, out any) int {
	f.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(f.t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, rd)
	require.NoError(f.t, err)
	res, err := client.Do(req)
	require.NoError(f.t, err)
	defer res.Body.Close()
	if out != nil {
		require.NoError(f.t, json.NewDecoder(res.Body).Decode(out))
	}
	return res.StatusCode
}

var march15 = time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)

func TestHealth(t *testing.T) {
	f := newFixture(t, march15)
	var out map[string]bool
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/health", nil, &out))
	assert.True(t, out["ok"])

	var e map[string]string
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/nope", nil, &e))
	assert.Equal(t, "not_found", e["error"])
}

func TestPuzzleRoutes(t *testing.T) {
	f := newFixture(t, time.Date(2025, 3, 14, 23, 0, 0, 0, time.UTC))

	var index []map[string]string
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/puzzles", nil, &index))
	require.Len(t, index, 1, "tomorrow's puzzle is not listed")
	assert.Equal(t, "2025-03-14", index[0]["id"])

	var today map[string]any
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/puzzles/today", nil, &today))
	assert.Equal(t, "Weather Report", today["title"])
	assert.Nil(t, today["solutions"], "answers never leave the server")

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/puzzles/2025-03-15", nil, nil))
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/puzzles/2030-01-01", nil, nil))
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/play/2025-03-15", nil, nil))

	f.advance(time.Hour)
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/puzzles?limit=1", nil, &index))
	require.Len(t, index, 1)
	assert.Equal(t, "2025-03-15", index[0]["id"])
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/puzzles?before=2025-03-15", nil, &index))
	require.Len(t, index, 1)
	assert.Equal(t, "2025-03-14", index[0]["id"])
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/puzzles?before=yesterday", nil, nil))
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/puzzles?limit=many", nil, nil))
}

type stateOut struct {
	PuzzleID       string            `json:"puzzleId"`
	Display        map[string]string `json:"display"`
	LockedCells    []int             `json:"lockedCells"`
	IncorrectCells []int             `json:"incorrectCells"`
	FocusedCell    *int              `json:"focusedCell"`
	Solved         bool              `json:"solved"`
	SubmitCount    int               `json:"submitCount"`
	CompletionTime *int              `json:"completionTime"`
}

func TestPlayThroughAndLeaderboard(t *testing.T) {
	f := newFixture(t, march15)
	const id = "/play/2025-03-14"

	var st stateOut
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, id, nil, &st))
	assert.Equal(t, "2025-03-14", st.PuzzleID)
	assert.Zero(t, st.SubmitCount)

	var change struct {
		Changed bool     `json:"changed"`
		State   stateOut `json:"state"`
	}
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, id+"/entry", map[string]any{"cell": 1, "value": "BOW"}, &change))
	assert.True(t, change.Changed)
	assert.Equal(t, "bow", change.State.Display["1"])
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, id+"/entry", map[string]any{"cell": 2, "value": "strom"}, nil))

	var sub struct {
		Result struct {
			AllCorrect bool  `json:"allCorrect"`
			Locked     []int `json:"locked"`
			Incorrect  []int `json:"incorrect"`
		} `json:"result"`
		State stateOut `json:"state"`
	}
	f.advance(12 * time.Second)
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, id+"/submit", nil, &sub))
	assert.False(t, sub.Result.AllCorrect)
	assert.Equal(t, []int{1}, sub.Result.Locked)
	assert.Equal(t, []int{2}, sub.Result.Incorrect)
	assert.Equal(t, []int{2}, sub.State.IncorrectCells)
	require.NotNil(t, sub.State.FocusedCell)
	assert.Equal(t, 2, *sub.State.FocusedCell)

	// a server restart resumes from the session store
	f.restart()
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, id, nil, &st))
	assert.Equal(t, []int{1}, st.LockedCells)
	assert.Equal(t, 1, st.SubmitCount)

	f.advance(18 * time.Second)
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, id+"/entry", map[string]any{"cell": 2, "value": "storm"}, nil))
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, id+"/submit", nil, &sub))
	assert.True(t, sub.Result.AllCorrect)
	assert.True(t, sub.State.Solved)
	require.NotNil(t, sub.State.CompletionTime)
	assert.Equal(t, 30, *sub.State.CompletionTime)

	var sc struct {
		Report struct {
			Total          int  `json:"total"`
			OneSubmitClear bool `json:"oneSubmitClear"`
		} `json:"report"`
		Share string `json:"share"`
	}
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, id+"/score", nil, &sc))
	assert.Equal(t, 72, sc.Report.Total)
	assert.False(t, sc.Report.OneSubmitClear)
	assert.True(t, strings.HasSuffix(sc.Share, "Score: 72"))

	// submitting again after solving does not replace the recorded result
	f.advance(time.Minute)
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, id+"/submit", nil, nil))

	var lb struct {
		PuzzleID string        `json:"puzzleId"`
		Top      []daily.LBRow `json:"top"`
	}
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/daily/leaderboard?puzzle=2025-03-14", nil, &lb))
	require.Len(t, lb.Top, 1)
	assert.Equal(t, 72, lb.Top[0].Score)
	assert.Equal(t, 2, lb.Top[0].Submits)
	assert.Equal(t, 30, lb.Top[0].ElapsedSec)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/daily/leaderboard?puzzle=../x", nil, nil))
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/daily/leaderboard", nil, &lb))
	assert.Equal(t, "2025-03-15", lb.PuzzleID)
	assert.Empty(t, lb.Top)

	// reset clears progress
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, id+"/reset", nil, &st))
	assert.False(t, st.Solved)
	assert.Zero(t, st.SubmitCount)
	assert.Empty(t, st.LockedCells)
}

func TestPlayRevealAndFocus(t *testing.T) {
	f := newFixture(t, march15)
	const id = "/play/2025-03-15"

	var change struct {
		Changed bool     `json:"changed"`
		State   stateOut `json:"state"`
	}
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, id+"/reveal", map[string]any{"cell": 1}, &change))
	assert.True(t, change.Changed)
	assert.Equal(t, "r", change.State.Display["1"])

	require.Equal(t, http.StatusOK, f.do(http.MethodPost, id+"/reveal", nil, &change))
	assert.Equal(t, "ri", change.State.Display["1"])

	require.Equal(t, http.StatusOK, f.do(http.MethodPost, id+"/reveal", map[string]any{"cell": 0}, &change))
	assert.False(t, change.Changed, "fixed cells have nothing to reveal")

	var st stateOut
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, id+"/focus", map[string]any{"next": true}, &st))
	require.NotNil(t, st.FocusedCell)
	assert.Equal(t, 1, *st.FocusedCell)
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, id+"/focus", map[string]any{}, &st))
	assert.Nil(t, st.FocusedCell)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, id+"/focus", map[string]any{"cell": 99}, nil))
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, id+"/entry", map[string]any{"cell": -3, "value": "x"}, nil))
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, id+"/entry", map[string]any{"value": "x"}, nil))
}

func TestPlayHoldsNoLiveSessions(t *testing.T) {
	f := newFixture(t, march15)
	for range 200 {
		rec := httptest.NewRecorder()
		f.s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/play/2025-03-14", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Zero(t, f.s.locks.size())

	var n int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(1) FROM sessions`).Scan(&n))
	assert.Zero(t, n, "viewing a board stores nothing")
}

func TestPlaySerializesOnePlayer(t *testing.T) {
	f := newFixture(t, march15)
	const id = "/play/2025-03-14"
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, id, nil, nil))

	const n = 10
	var wg sync.WaitGroup
	codes := make([]int, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.client.Post(f.srv.URL+id+"/submit", "application/json", nil)
			if err != nil {
				return
			}
			codes[i] = res.StatusCode
			_ = res.Body.Close()
		}()
	}
	wg.Wait()
	for _, c := range codes {
		assert.Equal(t, http.StatusOK, c)
	}

	var st stateOut
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, id, nil, &st))
	assert.Equal(t, n, st.SubmitCount)
	assert.Zero(t, f.s.locks.size())
}

func TestAnonCookieCannotActAsAccount(t *testing.T) {
	f := newFixture(t, march15)
	const id = "/play/2025-03-14"

	var victim map[string]string
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/auth/signup", map[string]string{"username": "hugo", "password": "correct horse"}, &victim))
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, id+"/entry", map[string]any{"cell": 1, "value": "bow"}, nil))

	// a guest whose anonymous cookie carries the account id
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	u, err := url.Parse(f.srv.URL)
	require.NoError(t, err)
	jar.SetCookies(u, []*http.Cookie{{Name: anonCookieName, Value: victim["id"], Path: "/"}})
	guest := &http.Client{Jar: jar}

	var st stateOut
	require.Equal(t, http.StatusOK, f.doWith(guest, http.MethodGet, id, nil, &st))
	assert.Empty(t, st.Display)
	for _, c := range jar.Cookies(u) {
		if c.Name == anonCookieName {
			assert.NotEqual(t, victim["id"], c.Value, "the cookie is reissued")
		}
	}

	require.Equal(t, http.StatusOK, f.doWith(guest, http.MethodPost, id+"/entry", map[string]any{"cell": 1, "value": "bow"}, nil))
	require.Equal(t, http.StatusOK, f.doWith(guest, http.MethodPost, id+"/entry", map[string]any{"cell": 2, "value": "storm"}, nil))
	require.Equal(t, http.StatusOK, f.doWith(guest, http.MethodPost, id+"/submit", nil, nil))

	// the account's own session and result are untouched
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, id, nil, &st))
	assert.Equal(t, map[string]string{"1": "bow"}, st.Display)
	assert.Zero(t, st.SubmitCount)
	played, err := f.s.daily.AlreadyPlayed(context.Background(), victim["id"], "2025-03-14")
	require.NoError(t, err)
	assert.False(t, played)

	f.advance(10 * time.Second)
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, id+"/entry", map[string]any{"cell": 2, "value": "storm"}, nil))
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, id+"/submit", nil, nil))

	var lb struct {
		Top []map[string]any `json:"top"`
	}
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/daily/leaderboard?puzzle=2025-03-14", nil, &lb))
	require.Len(t, lb.Top, 2)
	assert.Equal(t, daily.GuestName, lb.Top[0]["name"])
	assert.Equal(t, "hugo", lb.Top[1]["name"])
	for _, row := range lb.Top {
		assert.NotContains(t, row, "playerId")
	}
}

func TestAuthFlow(t *testing.T) {
	f := newFixture(t, march15)

	var u map[string]string
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/auth/signup", map[string]string{"username": "hugo", "password": "correct horse"}, &u))
	assert.Equal(t, "hugo", u["username"])
	assert.NotEmpty(t, u["token"])

	var me map[string]string
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/auth/me", nil, &me))
	assert.Equal(t, u["id"], me["id"])

	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/auth/signup", map[string]string{"username": "HUGO", "password": "correct horse"}, nil))
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/auth/signup", map[string]string{"username": "al", "password": "correct horse"}, nil))
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/auth/login", map[string]string{"username": "hugo", "password": "wrong horse"}, nil))

	var status statusRes
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/daily/status", nil, &status))
	assert.Equal(t, "2025-03-15", status.PuzzleID)
	assert.False(t, status.Played)

	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/auth/logout", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/auth/me", nil, nil))

	// bearer tokens work without cookies
	req, err := http.NewRequest(http.MethodGet, f.srv.URL+"/auth/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+u["token"])
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestEditorRoutes(t *testing.T) {
	f := newFixture(t, march15)
	draft := map[string]any{
		"date":  "2025-04-01",
		"title": "Spring",
		"rows":  1,
		"cols":  2,
		"cells": []map[string]any{{"fixed": "rain", "right": true}, {"solution": " Bow "}},
	}

	var p struct {
		ID        string            `json:"id"`
		Solutions map[string]string `json:"solutions"`
		Grid      struct {
			Arrows []map[string]any `json:"arrows"`
		} `json:"grid"`
	}
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/editor/export", draft, &p))
	assert.Equal(t, "2025-04-01", p.ID)
	assert.Equal(t, map[string]string{"1": "bow"}, p.Solutions)
	require.Len(t, p.Grid.Arrows, 1)
	assert.Equal(t, "right", p.Grid.Arrows[0]["dir"])

	// decode into a fresh value each time; omitted fields must not carry over
	edit := func(path string, body any) draftRes {
		t.Helper()
		var out draftRes
		require.Equal(t, http.StatusOK, f.do(http.MethodPost, path, body, &out))
		return out
	}

	out := edit("/editor/resize?rows=2&cols=3", draft)
	assert.Equal(t, 2, out.Draft.Rows)
	assert.Equal(t, 3, out.Draft.Cols)
	assert.Len(t, out.Draft.Cells, 6)
	assert.Equal(t, "rain", out.Draft.Cells[0].Fixed)

	out = edit("/editor/trim", out.Draft)
	assert.True(t, out.Changed)
	assert.Equal(t, 1, out.Draft.Rows)
	assert.Equal(t, 2, out.Draft.Cols)

	out = edit("/editor/rows?edge=top", out.Draft)
	assert.True(t, out.Changed)
	assert.Empty(t, out.Draft.Cells[0].Fixed)
	assert.Equal(t, "rain", out.Draft.Cells[2].Fixed)
	out = edit("/editor/cols?edge=top", out.Draft)
	assert.False(t, out.Changed)
	out = edit("/editor/rows/delete?index=0", out.Draft)
	assert.True(t, out.Changed)
	assert.Equal(t, "rain", out.Draft.Cells[0].Fixed)

	var bad struct {
		Error    string   `json:"error"`
		Problems []string `json:"problems"`
	}
	draft["cols"] = 3
	require.Equal(t, http.StatusUnprocessableEntity, f.do(http.MethodPost, "/editor/export", draft, &bad))
	assert.Equal(t, "invalid_puzzle", bad.Error)
	assert.NotEmpty(t, bad.Problems)

	var fresh draftRes
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/editor/new?rows=20&cols=0", nil, &fresh))
	assert.Equal(t, 12, fresh.Draft.Rows)
	assert.Equal(t, 1, fresh.Draft.Cols)
}

func TestEditorImport(t *testing.T) {
	f := newFixture(t, march15)
	raw, err := assets.FS.ReadFile("puzzles/2025-03-15.json")
	require.NoError(t, err)

	res, err := f.client.Post(f.srv.URL+"/editor/import", "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var out draftRes
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	assert.Equal(t, "rise", out.Draft.Cells[1].Solution)
	assert.True(t, out.Draft.Cells[0].Right)
	assert.True(t, out.Draft.Cells[0].Down)
}
