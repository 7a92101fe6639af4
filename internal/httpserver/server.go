// internal/httpserver/server.go
//
// HTTP server wiring for the Double Speak backend.
// Responsibilities:
//   - Router + middleware (request IDs, access log, CORS, timeouts, panic recovery).
//   - Public endpoints: "/", "/health".
//   - Puzzle catalog endpoints: /puzzles, /puzzles/today, /puzzles/{id}.
//   - Play endpoints (optional auth): mounted under /play/{id}.
//   - Daily endpoints: /daily/status, /daily/leaderboard.
//   - Grid editor endpoints under /editor and auth endpoints under /auth.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - A player is the account id when a valid token is present, otherwise an
//     anonymous cookie id.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/schema"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hugolynch/double-speak/internal/account"
	"github.com/hugolynch/double-speak/internal/catalog"
	"github.com/hugolynch/double-speak/internal/daily"
	"github.com/hugolynch/double-speak/internal/puzzle"
	"github.com/hugolynch/double-speak/internal/session"
)

// maxBody bounds JSON request bodies (drafts are the largest).
const maxBody = 1 << 20

// Deps are the collaborators a Server needs.
type Deps struct {
	Catalog      catalog.Source
	Sessions     *session.Store
	Daily        *daily.Store
	Accounts     *account.Service
	ClientOrigin string
	CookieSecure bool
	Now          func() time.Time // nil means time.Now
}

// Server bundles the router and its collaborators.
type Server struct {
	r            *chi.Mux
	catalog      catalog.Source
	sessions     *session.Store
	daily        *daily.Store
	accounts     *account.Service
	cookieSecure bool
	now          func() time.Time
	locks        *keyLocks
}

// query decodes URL query strings into typed params.
var query = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}()

// New constructs a Server, installs middleware, and registers routes.
func New(d Deps) *Server {
	s := &Server{
		r:            chi.NewRouter(),
		catalog:      d.Catalog,
		sessions:     d.Sessions,
		daily:        d.Daily,
		accounts:     d.Accounts,
		cookieSecure: d.CookieSecure,
		now:          d.Now,
		locks:        newKeyLocks(),
	}
	if s.now == nil {
		s.now = time.Now
	}
	origin := d.ClientOrigin
	if origin == "" {
		origin = "http://localhost:5173"
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(hlog.NewHandler(log.Logger))
	s.r.Use(requestIDLogger)
	s.r.Use(hlog.AccessHandler(accessLog))
	s.r.Use(chimw.Recoverer)
	s.r.Use(chimw.Timeout(10 * time.Second))
	s.r.Use(jsonContentType)
	s.r.Use(corsFor(origin))

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"service":"double-speak","endpoints":["/health","/puzzles","/play/{id}","/daily/*","/editor/*","/auth/*"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	s.mountPuzzles(s.r)
	s.mountPlay(s.r.With(s.withOptionalAuth()))
	s.mountDaily(s.r.With(s.withOptionalAuth()))
	s.mountEditor(s.r)
	s.mountAuthRoutes()

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found")
	})
	return s
}

// Run serves HTTP on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFor enables credentialed CORS for a single origin.
func corsFor(origin string) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   []string{origin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler
}

// requestIDLogger tags the request logger with chi's request id.
func requestIDLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := chimw.GetReqID(r.Context()); id != "" {
			zerolog.Ctx(r.Context()).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("req_id", id)
			})
		}
		next.ServeHTTP(w, r)
	})
}

func accessLog(r *http.Request, status, size int, dur time.Duration) {
	hlog.FromRequest(r).Info().
		Str("method", r.Method).
		Stringer("url", r.URL).
		Int("status", status).
		Int("size", size).
		Dur("duration", dur).
		Msg("request")
}

// ------------------------------ helpers ------------------------------------

func writeJSON(w http.ResponseWriter, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("encode response")
	}
}

// writeError writes {"error": code} with the given status.
func writeError(w http.ResponseWriter, status int, code string) {
	w.WriteHeader(status)
	writeJSON(w, map[string]string{"error": code})
}

// writeInvalid reports a rejected puzzle or draft with every problem found.
// It returns false when err is not a validation error.
func writeInvalid(w http.ResponseWriter, err error) bool {
	var ve *puzzle.ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	w.WriteHeader(http.StatusUnprocessableEntity)
	writeJSON(w, map[string]any{"error": "invalid_puzzle", "problems": ve.Problems})
	return true
}

// decodeBody reads a bounded JSON body into dst.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return false
	}
	return true
}

// decodeQuery fills dst from the URL query string.
func decodeQuery(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := query.Decode(dst, r.URL.Query()); err != nil {
		writeError(w, http.StatusBadRequest, "bad_query")
		return false
	}
	return true
}
