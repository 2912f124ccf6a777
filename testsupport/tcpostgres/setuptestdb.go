//nolint:errcheck // testsetup
package tcpostgres

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mpapenbr/f1-race-predictor/pkg/db/migrate"
	database "github.com/mpapenbr/f1-race-predictor/pkg/db/postgres"
)

// create a pg connection pool for the predictor test database
func SetupTestDb() *pgxpool.Pool {
	ctx := context.Background()
	port, err := nat.NewPort("tcp", "5432")
	if err != nil {
		log.Fatal(err)
	}
	opts := []ContainerOption{
		WithPort(port.Port()),
		WithInitialDatabase("postgres", "password", "postgres"),
		WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
		WithName("f1-race-predictor-test"),
	}
	if image := os.Getenv("TESTDB_IMAGE"); image != "" {
		opts = append(opts, WithImage(image))
	}
	container, err := SetupPostgres(ctx, opts...)
	if err != nil {
		log.Fatal(err)
	}
	containerPort, _ := container.MappedPort(ctx, port)
	host, _ := container.Host(ctx)
	dbURL := fmt.Sprintf("postgresql://postgres:password@%s:%s/postgres",
		host, containerPort.Port())

	return migrateAndConnect(dbURL)
}

// SetupExternalTestDb uses the database given by TESTDB_URL
func SetupExternalTestDb() *pgxpool.Pool {
	return migrateAndConnect(os.Getenv("TESTDB_URL"))
}

func migrateAndConnect(dbURL string) *pgxpool.Pool {
	if err := migrate.MigrateDb(dbURL); err != nil {
		log.Fatal(err)
	}
	return database.InitWithURL(dbURL)
}

func ClearSessionTable(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from grid_session")
}

func ClearPredictionLogTable(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from prediction_log")
}

func ClearAllTables(pool *pgxpool.Pool) {
	ClearPredictionLogTable(pool)
	ClearSessionTable(pool)
}
