package tcpostgres

import (
	"context"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const defaultImage = "postgres:17-alpine"

// PostgresContainer is a started (and possibly reused) postgres container
type PostgresContainer struct {
	testcontainers.Container
}

type ContainerOption func(req *testcontainers.ContainerRequest)

func WithImage(image string) ContainerOption {
	return func(req *testcontainers.ContainerRequest) {
		req.Image = image
	}
}

// WithWaitStrategy waits for all strategies, at most one minute
func WithWaitStrategy(strategies ...wait.Strategy) ContainerOption {
	return func(req *testcontainers.ContainerRequest) {
		req.WaitingFor = wait.ForAll(strategies...).WithDeadline(1 * time.Minute)
	}
}

func WithPort(port string) ContainerOption {
	return func(req *testcontainers.ContainerRequest) {
		req.ExposedPorts = append(req.ExposedPorts, port)
	}
}

// WithName names the container. Named containers are reused between test runs.
func WithName(containerName string) ContainerOption {
	return func(req *testcontainers.ContainerRequest) {
		req.Name = containerName
	}
}

func WithInitialDatabase(user, password, dbName string) ContainerOption {
	return func(req *testcontainers.ContainerRequest) {
		req.Env["POSTGRES_USER"] = user
		req.Env["POSTGRES_PASSWORD"] = password
		req.Env["POSTGRES_DB"] = dbName
	}
}

//nolint:whitespace // editor/linter issue
func SetupPostgres(ctx context.Context, opts ...ContainerOption) (
	*PostgresContainer, error,
) {
	req := testcontainers.ContainerRequest{
		Image:        defaultImage,
		Env:          map[string]string{},
		ExposedPorts: []string{},
		Cmd:          []string{"postgres", "-c", "fsync=off", "-c", "synchronous_commit=off"},
	}
	for _, opt := range opts {
		opt(&req)
	}

	container, err := testcontainers.GenericContainer(
		ctx,
		testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
			Reuse:            req.Name != "",
		})
	if err != nil {
		return nil, err
	}
	return &PostgresContainer{Container: container}, nil
}
