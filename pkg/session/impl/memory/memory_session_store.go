package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mpapenbr/f1-race-predictor/log"
	"github.com/mpapenbr/f1-race-predictor/pkg/session"
	"github.com/mpapenbr/f1-race-predictor/pkg/session/factory"
)

var SessionTypeMemory factory.SessionType = "memory"

type (
	Option      func(*memoryConfig)
	memoryConfig struct {
		cleanupInterval time.Duration
		ctx             context.Context
	}
	memorySessionStore struct {
		cfg      *session.Config
		mu       sync.Mutex
		sessions map[string]*session.Data
		log      *log.Logger
	}
)

// WithCleanup removes expired sessions every interval until ctx is done
func WithCleanup(ctx context.Context, interval time.Duration) Option {
	return func(c *memoryConfig) {
		c.ctx = ctx
		c.cleanupInterval = interval
	}
}

func New(common []session.Option, specific []Option) (session.Store, error) {
	cfg := session.NewConfig(common...)
	own := &memoryConfig{}
	for _, o := range specific {
		o(own)
	}
	ret := &memorySessionStore{
		cfg:      cfg,
		sessions: make(map[string]*session.Data),
		log:      log.Default().Named("session.memory"),
	}
	if own.ctx != nil && own.cleanupInterval > 0 {
		go ret.cleanupLoop(own.ctx, own.cleanupInterval)
	}
	return ret, nil
}

func (s *memorySessionStore) Get(ctx context.Context, id string) (*session.Data, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.sessions[id]
	if !ok {
		return nil, session.ErrSessionNotFound
	}
	if d.Expired(s.cfg.Now(), s.cfg.Timeout) {
		delete(s.sessions, id)
		return nil, session.ErrSessionExpired
	}
	return d.Clone(), nil
}

func (s *memorySessionStore) Save(ctx context.Context, d *session.Data) error {
	if d == nil || d.ID == "" {
		return session.ErrInvalidSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d.LastAccessed = s.cfg.Now()
	s.sessions[d.ID] = d.Clone()
	return nil
}

func (s *memorySessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *memorySessionStore) Timeout() time.Duration {
	return s.cfg.Timeout
}

// removeExpired returns the number of removed sessions
func (s *memorySessionStore) removeExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.cfg.Now()
	removed := 0
	for id, d := range s.sessions {
		if d.Expired(now, s.cfg.Timeout) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

func (s *memorySessionStore) cleanupLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.removeExpired(); n > 0 {
				s.log.Debug("removed expired sessions", log.Int("count", n))
			}
		}
	}
}

func init() {
	factory.Register(SessionTypeMemory, New)
}
