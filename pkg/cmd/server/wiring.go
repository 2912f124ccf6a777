package server

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"

	"github.com/mpapenbr/f1-race-predictor/log"
	"github.com/mpapenbr/f1-race-predictor/pkg/collaborator"
	"github.com/mpapenbr/f1-race-predictor/pkg/config"
	"github.com/mpapenbr/f1-race-predictor/pkg/db/postgres"
	"github.com/mpapenbr/f1-race-predictor/pkg/service"
	"github.com/mpapenbr/f1-race-predictor/pkg/session"
	"github.com/mpapenbr/f1-race-predictor/pkg/session/factory"
	"github.com/mpapenbr/f1-race-predictor/pkg/session/impl/memory"
	natsStore "github.com/mpapenbr/f1-race-predictor/pkg/session/impl/nats"
	pgStore "github.com/mpapenbr/f1-race-predictor/pkg/session/impl/postgres"
)

type (
	dependencies struct {
		pool       *pgxpool.Pool
		nc         *nats.Conn
		sessionCfg *session.Config
		store      session.Store
		service    *service.PredictorService
	}
	// implemented by stores that do not expire sessions on their own
	expiredRemover interface {
		RemoveExpired(ctx context.Context) (int, error)
	}
)

//nolint:whitespace // can't make both editor and linter happy
func setupDependencies(
	ctx context.Context, sqlLogger *log.Logger, telemetry bool,
) (*dependencies, error) {
	ret := &dependencies{}
	var err error
	if needsDatabase() {
		pgTraceOption := postgres.WithTracer(sqlLogger, log.DebugLevel)
		if telemetry {
			pgTraceOption = postgres.WithOtlpTracer()
		}
		if ret.pool, err = postgres.NewPool(ctx, config.DB, pgTraceOption); err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
	}

	ret.sessionCfg = session.NewConfig(
		session.WithTimeout(parseDuration(config.SessionTimeout, 30*time.Minute)),
		session.WithCookieName(config.SessionCookieName),
		session.WithSecureCookie(appConfig.SecureCookie),
	)
	if err = ret.createSessionStore(ctx); err != nil {
		ret.close()
		return nil, err
	}
	if r, ok := ret.store.(expiredRemover); ok {
		go removeExpiredLoop(ctx, r, ret.sessionCfg.Timeout)
	}

	client := collaborator.New(
		collaborator.WithBaseURL(config.PredictorURL),
		collaborator.WithTimeout(parseDuration(config.PredictorTimeout, 30*time.Second)),
		collaborator.WithCacheExpiration(
			parseDuration(config.LookupCacheExpiration, 5*time.Minute)),
	)
	opts := []service.Option{
		service.WithCleanup(ctx, cleanupInterval(ret.sessionCfg.Timeout)),
	}
	if config.PredictionLog {
		opts = append(opts, service.WithPredictionLog(ret.pool))
	}
	ret.service = service.NewPredictorService(ret.store, client, opts...)
	return ret, nil
}

func (d *dependencies) createSessionStore(ctx context.Context) error {
	common := []session.Option{
		session.WithTimeout(d.sessionCfg.Timeout),
		session.WithCookieName(d.sessionCfg.CookieName),
	}
	var err error
	switch factory.SessionType(config.SessionStore) {
	case memory.SessionTypeMemory:
		d.store, err = factory.New[session.Store](
			memory.SessionTypeMemory, common,
			[]memory.Option{memory.WithCleanup(ctx, time.Minute)})
	case natsStore.SessionTypeNats:
		if d.nc, err = nats.Connect(config.NatsURL,
			nats.Name("frp"),
			nats.MaxReconnects(-1)); err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		d.store, err = factory.New[session.Store](
			natsStore.SessionTypeNats, common,
			[]natsStore.Option{natsStore.WithNATS(d.nc)})
	case pgStore.SessionTypePostgres:
		d.store, err = factory.New[session.Store](
			pgStore.SessionTypePostgres, common,
			[]pgStore.Option{pgStore.WithPool(d.pool)})
	default:
		return fmt.Errorf("%w: %s", factory.ErrSessionStoreTypeNotSupported, config.SessionStore)
	}
	if err != nil {
		return fmt.Errorf("create session store: %w", err)
	}
	log.Info("Using session store", log.String("type", config.SessionStore))
	return nil
}

func (d *dependencies) close() {
	if d.nc != nil {
		if err := d.nc.Drain(); err != nil {
			log.Warn("could not drain nats connection", log.ErrorField(err))
		}
	}
	if d.pool != nil {
		d.pool.Close()
	}
}

//nolint:whitespace // can't make both editor and linter happy
func removeExpiredLoop(
	ctx context.Context, r expiredRemover, timeout time.Duration,
) {
	ticker := time.NewTicker(cleanupInterval(timeout))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := r.RemoveExpired(ctx)
			if err != nil {
				log.Warn("could not remove expired sessions", log.ErrorField(err))
				continue
			}
			if n > 0 {
				log.Debug("removed expired sessions", log.Int("count", n))
			}
		}
	}
}

func cleanupInterval(timeout time.Duration) time.Duration {
	return max(timeout/4, time.Minute)
}
