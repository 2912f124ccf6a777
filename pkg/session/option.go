package session

import "time"

type (
	Config struct {
		Timeout    time.Duration
		CookieName string
		Secure     bool
		Now        func() time.Time
	}
	Option func(*Config)
)

// NewConfig applies opts on the defaults (30m timeout, default cookie)
func NewConfig(opts ...Option) *Config {
	cfg := &Config{
		Timeout:    30 * time.Minute,
		CookieName: SessionIDCookie,
		Now:        time.Now,
	}
	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

func WithCookieName(name string) Option {
	return func(c *Config) {
		c.CookieName = name
	}
}

func WithSecureCookie(secure bool) Option {
	return func(c *Config) {
		c.Secure = secure
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		c.Now = now
	}
}
