package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mpapenbr/f1-race-predictor/pkg/grid"
	"github.com/mpapenbr/f1-race-predictor/pkg/model"
)

const SessionIDCookie = "frp_sessionid"

type (
	// Data is everything a user arranged in one session
	Data struct {
		ID           string        `json:"id"`
		Grid         *grid.State   `json:"grid"`
		Circuit      string        `json:"circuit"`
		Weather      model.Weather `json:"weather"`
		LastAccessed time.Time     `json:"lastAccessed"`
	}
	Store interface {
		Get(ctx context.Context, id string) (*Data, error)
		Save(ctx context.Context, d *Data) error
		Delete(ctx context.Context, id string) error
		Timeout() time.Duration
	}
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrInvalidSession  = errors.New("invalid session for this store")
)

// NewData creates a session with an empty grid, dry weather and no circuit
func NewData() *Data {
	return &Data{
		ID:           uuid.New().String(),
		Grid:         grid.NewState(),
		Weather:      model.WeatherDry,
		LastAccessed: time.Now(),
	}
}

// Clone returns a deep copy
func (d *Data) Clone() *Data {
	ret := *d
	if d.Grid != nil {
		ret.Grid = d.Grid.Clone()
	}
	return &ret
}

// Expired reports whether the session was idle longer than timeout
func (d *Data) Expired(now time.Time, timeout time.Duration) bool {
	return timeout > 0 && d.LastAccessed.Add(timeout).Before(now)
}

// CreateCookieForSession returns a browser-session cookie. It carries neither
// MaxAge nor Expires, so closing the browser starts a new session. The store
// timeout only limits how long an idle session is kept on the server.
func CreateCookieForSession(d *Data, cfg *Config) *http.Cookie {
	name := cfg.CookieName
	if name == "" {
		name = SessionIDCookie
	}
	return &http.Cookie{
		Name:     name,
		Value:    d.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
