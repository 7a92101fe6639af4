// internal/account/account.go
//
// Optional player accounts.
// Responsibilities:
//   - Signup with username/password rules and bcrypt hashing.
//   - Login by case-insensitive username.
//   - Signing and verifying HS256 player tokens.
//
// Guests never need an account; an account only gives a stable player id
// across devices for saved sessions and the leaderboard.

package account

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUsernameTaken  = errors.New("username taken")
	ErrBadCredentials = errors.New("invalid username or password")
	ErrBadToken       = errors.New("invalid token")
	ErrBadSignup      = errors.New("invalid signup")
)

// User is a row of the users table.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Claims are carried in player tokens.
type Claims struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Service manages users and tokens.
type Service struct {
	db       *sql.DB
	secret   []byte
	lifetime time.Duration
}

func NewService(db *sql.DB, secret string, lifetime time.Duration) *Service {
	return &Service{db: db, secret: []byte(secret), lifetime: lifetime}
}

// Validate enforces username/password rules. Violations wrap ErrBadSignup.
func Validate(username, password string) error {
	if len(username) < 3 || len(username) > 24 {
		return fmt.Errorf("%w: username must be 3-24 chars", ErrBadSignup)
	}
	for _, r := range username {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return fmt.Errorf("%w: username may use letters, numbers and underscore only", ErrBadSignup)
		}
	}
	if len(password) < 8 || len(password) > 72 {
		return fmt.Errorf("%w: password must be 8-72 chars", ErrBadSignup)
	}
	return nil
}

// Create registers a new user.
func (s *Service) Create(ctx context.Context, username, password string) (*User, error) {
	username = strings.TrimSpace(username)
	if err := Validate(username, password); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &User{ID: NewID(), Username: username, PasswordHash: string(hash), CreatedAt: time.Now().UTC().Truncate(time.Second)}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, created_at) VALUES (?,?,?,?)`,
		u.ID, u.Username, u.PasswordHash, u.CreatedAt.Format(time.RFC3339))
	if err != nil {
		var se sqlite3.Error
		if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// Authenticate checks a username/password pair.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u, err := s.scan(s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = ? COLLATE NOCASE`,
		strings.TrimSpace(username)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrBadCredentials
	}
	return u, nil
}

// ByID loads a user.
func (s *Service) ByID(ctx context.Context, id string) (*User, error) {
	return s.scan(s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE id = ?`, id))
}

func (s *Service) scan(row *sql.Row) (*User, error) {
	var u User
	var created string
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &created); err != nil {
		return nil, err
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &u, nil
}

// Issue signs a token for u and returns it with its expiry.
func (s *Service) Issue(u *User) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.lifetime)
	claims := &Claims{
		UserID:   u.ID,
		Username: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	return tok, exp, err
}

// Parse verifies a token and returns its claims.
func (s *Service) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	t, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid || claims.UserID == "" {
		return nil, ErrBadToken
	}
	return claims, nil
}

// NewID creates a 22-char URL-safe random identifier.
func NewID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
