package postgres

import (
	"context"

	"github.com/exaring/otelpgx"
	pgxuuid "github.com/jackc/pgx-gofrs-uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mpapenbr/f1-race-predictor/log"
)

type PoolConfigOption func(cfg *pgxpool.Config)

// WithTracer logs every statement on the given level
func WithTracer(logger *log.Logger, level log.Level) PoolConfigOption {
	return func(cfg *pgxpool.Config) {
		cfg.ConnConfig.Tracer = &myQueryTracer{log: logger.Named("sql"), level: level}
	}
}

// WithOtlpTracer creates spans for every statement
func WithOtlpTracer() PoolConfigOption {
	return func(cfg *pgxpool.Config) {
		cfg.ConnConfig.Tracer = otelpgx.NewTracer(otelpgx.WithIncludeQueryParameters())
	}
}

// InitWithURL creates a connection pool. The process is terminated if the
// database is not reachable.
func InitWithURL(url string, opts ...PoolConfigOption) *pgxpool.Pool {
	pool, err := NewPool(context.Background(), url, opts...)
	if err != nil {
		log.Fatal("Unable to get a valid database connection", log.ErrorField(err))
	}
	return pool
}

//nolint:whitespace // editor/linter issue
func NewPool(
	ctx context.Context, url string, opts ...PoolConfigOption,
) (*pgxpool.Pool, error) {
	dbConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	dbConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxuuid.Register(conn.TypeMap())
		return nil
	}
	for _, opt := range opts {
		opt(dbConfig)
	}

	pool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

type myQueryTracer struct {
	log   *log.Logger
	level log.Level
}

func (tracer *myQueryTracer) TraceQueryStart(
	ctx context.Context,
	_ *pgx.Conn,
	data pgx.TraceQueryStartData,
) context.Context {
	fields := []log.Field{log.String("sql", data.SQL), log.Any("args", data.Args)}
	if tracer.level == log.DebugLevel {
		tracer.log.Debug("Executing", fields...)
	} else {
		tracer.log.Info("Executing", fields...)
	}
	return ctx
}

//nolint:whitespace // can't make the linters happy
func (tracer *myQueryTracer) TraceQueryEnd(
	ctx context.Context,
	conn *pgx.Conn,
	data pgx.TraceQueryEndData,
) {
	if data.Err != nil {
		tracer.log.Warn("query failed", log.ErrorField(data.Err))
	}
}
