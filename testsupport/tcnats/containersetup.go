package tcnats

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/nats-io/nats.go"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// SetupNats starts a NATS server with JetStream enabled and connects to it.
// The returned func closes the connection and terminates the container.
func SetupNats(ctx context.Context) (*nats.Conn, func(), error) {
	port, err := nat.NewPort("tcp", "4222")
	if err != nil {
		return nil, nil, err
	}
	container, err := testcontainers.GenericContainer(
		ctx,
		testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "nats:2.10",
				ExposedPorts: []string{string(port)},
				Cmd:          []string{"-js"},
				WaitingFor: wait.ForLog("Server is ready").
					WithStartupTimeout(30 * time.Second),
			},
			Started: true,
		})
	if err != nil {
		return nil, nil, err
	}
	host, err := container.Host(ctx)
	if err != nil {
		return nil, nil, err
	}
	mapped, err := container.MappedPort(ctx, port)
	if err != nil {
		return nil, nil, err
	}
	nc, err := nats.Connect(fmt.Sprintf("nats://%s:%s", host, mapped.Port()))
	if err != nil {
		return nil, nil, err
	}
	return nc, func() {
		nc.Close()
		//nolint:errcheck // test cleanup
		container.Terminate(context.Background())
	}, nil
}
