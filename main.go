// main.go
//
// Entry point for the Double Speak server.
// Responsibilities:
//   - Load .env and configure the global zerolog logger.
//   - Open the SQLite database and apply the bundled migrations.
//   - Choose the puzzle catalog (remote URL, directory on disk, or the embedded set).
//   - Wire the session store, accounts and daily results into the HTTP server.

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hugolynch/double-speak/assets"
	"github.com/hugolynch/double-speak/internal/account"
	"github.com/hugolynch/double-speak/internal/catalog"
	"github.com/hugolynch/double-speak/internal/config"
	"github.com/hugolynch/double-speak/internal/daily"
	"github.com/hugolynch/double-speak/internal/database"
	"github.com/hugolynch/double-speak/internal/httpserver"
	"github.com/hugolynch/double-speak/internal/session"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("bad configuration")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("open database")
	}
	defer db.Close()
	if err := database.Migrate(db, assets.FS, "sql"); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	kv, err := session.NewSQLiteKV(db, "sessions")
	if err != nil {
		log.Fatal().Err(err).Msg("session store")
	}

	srv := httpserver.New(httpserver.Deps{
		Catalog:      catalog.NewCached(puzzleSource(cfg), cfg.IndexTTL),
		Sessions:     session.NewStore(kv, cfg.Namespace),
		Daily:        daily.NewStore(db),
		Accounts:     account.NewService(db, cfg.JWTSecret, cfg.TokenLifetime),
		ClientOrigin: cfg.ClientOrigin,
		CookieSecure: cfg.CookieSecure,
	})

	log.Info().Str("port", cfg.Port).Msg("starting double-speak server")
	if err := srv.Run(ctx, ":"+cfg.Port); err != nil {
		log.Error().Err(err).Msg("server exited")
	}
}

// puzzleSource picks where puzzle files come from: a remote base URL, a
// directory on disk, or the puzzles embedded in the binary.
func puzzleSource(cfg *config.Config) catalog.Source {
	switch {
	case cfg.PuzzleBaseURL != "":
		log.Info().Str("url", cfg.PuzzleBaseURL).Msg("serving puzzles from remote catalog")
		return catalog.NewHTTPSource(cfg.PuzzleBaseURL, &http.Client{Timeout: 10 * time.Second})
	case cfg.PuzzleDir != "":
		log.Info().Str("dir", cfg.PuzzleDir).Msg("serving puzzles from disk")
		return catalog.NewFSSource(os.DirFS(cfg.PuzzleDir))
	default:
		return catalog.NewFSSource(assets.FS)
	}
}
