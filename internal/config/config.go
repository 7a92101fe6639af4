// Package config reads server settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the full server configuration.
type Config struct {
	Port          string
	LogLevel      string
	DatabasePath  string
	PuzzleDir     string // directory holding puzzles/; replaces the embedded set
	PuzzleBaseURL string // serve puzzles from a remote host; wins over PuzzleDir
	IndexTTL      time.Duration
	ClientOrigin  string
	JWTSecret     string
	TokenLifetime time.Duration
	Namespace     string
	CookieSecure  bool
}

// Load reads the environment. Unset values take defaults; malformed numbers
// are errors.
func Load() (*Config, error) {
	c := &Config{
		Port:          getEnv("PORT", "5175"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabasePath:  getEnv("DATABASE_PATH", "./data/double-speak.db"),
		PuzzleDir:     os.Getenv("PUZZLE_DIR"),
		PuzzleBaseURL: os.Getenv("PUZZLE_BASE_URL"),
		ClientOrigin:  getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		JWTSecret:     getEnv("JWT_SECRET", "dev_secret_change_me"),
		Namespace:     getEnv("SESSION_NAMESPACE", "double-speak"),
		CookieSecure:  os.Getenv("COOKIE_SECURE") == "1",
	}

	days, err := envInt("JWT_EXPIRES_DAYS", 14)
	if err != nil {
		return nil, err
	}
	c.TokenLifetime = time.Duration(days) * 24 * time.Hour

	ttl, err := envInt("INDEX_TTL_SECONDS", 300)
	if err != nil {
		return nil, err
	}
	c.IndexTTL = time.Duration(ttl) * time.Second

	return c, nil
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", k, v)
	}
	return n, nil
}
