package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mpapenbr/f1-race-predictor/log"
	"github.com/mpapenbr/f1-race-predictor/pkg/grid"
	"github.com/mpapenbr/f1-race-predictor/pkg/model"
	sessionrepos "github.com/mpapenbr/f1-race-predictor/pkg/repository/session"
	"github.com/mpapenbr/f1-race-predictor/pkg/session"
	"github.com/mpapenbr/f1-race-predictor/pkg/session/factory"
)

var SessionTypePostgres factory.SessionType = "postgres"

type (
	Option          func(*pgStoreConfig)
	pgStoreConfig struct {
		pool *pgxpool.Pool
	}
	pgSessionStore struct {
		cfg  *session.Config
		pool *pgxpool.Pool
		log  *log.Logger
	}
)

func WithPool(pool *pgxpool.Pool) Option {
	return func(c *pgStoreConfig) {
		c.pool = pool
	}
}

func New(common []session.Option, specific []Option) (session.Store, error) {
	own := &pgStoreConfig{}
	for _, o := range specific {
		o(own)
	}
	if own.pool == nil {
		return nil, errors.New("postgres session store requires a pool")
	}
	return &pgSessionStore{
		cfg:  session.NewConfig(common...),
		pool: own.pool,
		log:  log.Default().Named("session.postgres"),
	}, nil
}

func (s *pgSessionStore) Get(ctx context.Context, id string) (*session.Data, error) {
	dbID, err := uuid.FromString(id)
	if err != nil {
		return nil, session.ErrSessionNotFound
	}
	row, err := sessionrepos.LoadByID(ctx, s.pool, dbID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, session.ErrSessionNotFound
		}
		return nil, err
	}
	d := &session.Data{
		ID:           row.ID.String(),
		Grid:         grid.NewState(),
		Circuit:      row.Circuit,
		Weather:      model.Weather(row.Weather),
		LastAccessed: row.LastAccessed,
	}
	if d.Expired(s.cfg.Now(), s.cfg.Timeout) {
		if _, err := sessionrepos.DeleteByID(ctx, s.pool, dbID); err != nil {
			s.log.Warn("could not delete expired session", log.ErrorField(err))
		}
		return nil, session.ErrSessionExpired
	}
	if err := json.Unmarshal(row.State, d.Grid); err != nil {
		return nil, err
	}
	d.Grid = d.Grid.Clone()
	return d, nil
}

func (s *pgSessionStore) Save(ctx context.Context, d *session.Data) error {
	if d == nil {
		return session.ErrInvalidSession
	}
	dbID, err := uuid.FromString(d.ID)
	if err != nil {
		return session.ErrInvalidSession
	}
	state := d.Grid
	if state == nil {
		state = grid.NewState()
	}
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	d.LastAccessed = s.cfg.Now()
	return sessionrepos.Upsert(ctx, s.pool, &sessionrepos.Row{
		ID:           dbID,
		State:        data,
		Circuit:      d.Circuit,
		Weather:      string(d.Weather),
		LastAccessed: d.LastAccessed,
	})
}

func (s *pgSessionStore) Delete(ctx context.Context, id string) error {
	dbID, err := uuid.FromString(id)
	if err != nil {
		return nil
	}
	_, err = sessionrepos.DeleteByID(ctx, s.pool, dbID)
	return err
}

func (s *pgSessionStore) Timeout() time.Duration {
	return s.cfg.Timeout
}

// RemoveExpired deletes all sessions idle longer than the timeout
func (s *pgSessionStore) RemoveExpired(ctx context.Context) (int, error) {
	return sessionrepos.DeleteIdle(ctx, s.pool, s.cfg.Now().Add(-s.cfg.Timeout))
}

func init() {
	factory.Register(SessionTypePostgres, New)
}
