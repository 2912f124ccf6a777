package nats

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/mpapenbr/f1-race-predictor/log"
	"github.com/mpapenbr/f1-race-predictor/pkg/session"
	"github.com/mpapenbr/f1-race-predictor/pkg/session/factory"
)

var SessionTypeNats factory.SessionType = "nats"

const defaultBucket = "frp_sessions"

type (
	Option          func(*natsStoreConfig)
	natsStoreConfig struct {
		nc     *nats.Conn
		bucket string
	}
	// natsSessionStore keeps sessions in a JetStream key value bucket.
	// The bucket TTL equals the session timeout, every Save starts a new TTL.
	natsSessionStore struct {
		cfg    *session.Config
		ownCfg *natsStoreConfig
		log    *log.Logger
		kv     jetstream.KeyValue
	}
)

func WithNATS(nc *nats.Conn) Option {
	return func(c *natsStoreConfig) {
		c.nc = nc
	}
}

func WithBucket(name string) Option {
	return func(c *natsStoreConfig) {
		c.bucket = name
	}
}

func New(common []session.Option, specific []Option) (session.Store, error) {
	cfg := session.NewConfig(common...)
	ownCfg := &natsStoreConfig{bucket: defaultBucket}
	for _, o := range specific {
		o(ownCfg)
	}
	if ownCfg.nc == nil {
		return nil, errors.New("nats session store requires a nats connection")
	}
	ret := &natsSessionStore{
		cfg:    cfg,
		ownCfg: ownCfg,
		log:    log.Default().Named("session.nats"),
	}
	ret.log.Debug("Initializing NATS storage for sessions",
		log.String("bucket", ownCfg.bucket))
	if err := ret.init(); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *natsSessionStore) init() error {
	var js jetstream.JetStream
	var err error
	if js, err = jetstream.New(s.ownCfg.nc); err != nil {
		return err
	}
	s.kv, err = js.CreateOrUpdateKeyValue(context.Background(), jetstream.KeyValueConfig{
		Bucket: s.ownCfg.bucket,
		TTL:    s.cfg.Timeout,
	})
	return err
}

func (s *natsSessionStore) Get(ctx context.Context, id string) (*session.Data, error) {
	kve, err := s.kv.Get(ctx, s.composeKey(id))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) ||
			errors.Is(err, jetstream.ErrKeyDeleted) ||
			errors.Is(err, jetstream.ErrInvalidKey) {

			return nil, session.ErrSessionNotFound
		}
		return nil, err
	}
	var d session.Data
	if err := json.Unmarshal(kve.Value(), &d); err != nil {
		return nil, err
	}
	if d.Expired(s.cfg.Now(), s.cfg.Timeout) {
		return nil, session.ErrSessionExpired
	}
	return &d, nil
}

func (s *natsSessionStore) Save(ctx context.Context, d *session.Data) error {
	if d == nil || d.ID == "" {
		return session.ErrInvalidSession
	}
	d.LastAccessed = s.cfg.Now()
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	_, err = s.kv.Put(ctx, s.composeKey(d.ID), data)
	return err
}

func (s *natsSessionStore) Delete(ctx context.Context, id string) error {
	err := s.kv.Delete(ctx, s.composeKey(id))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil
	}
	return err
}

func (s *natsSessionStore) Timeout() time.Duration {
	return s.cfg.Timeout
}

func (s *natsSessionStore) composeKey(id string) string {
	return "session." + id
}

func init() {
	factory.Register(SessionTypeNats, New)
}
