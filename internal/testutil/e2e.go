//go:build integration

// Package testutil provides the shared harness for integration tests that
// exercise the pipeline against a real Redis.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/caprock-sim/caprock/pkg/runstore"
)

// E2EEnvironment is an isolated integration test environment: a dedicated
// Redis container plus a run store client bound to a unique run name.
type E2EEnvironment struct {
	T         *testing.T
	Ctx       context.Context
	Run       string
	RedisAddr string
	Store     *runstore.Client
}

// SetupE2EEnvironment starts a Redis container and connects a run store
// client to it. Everything is cleaned up when the test finishes.
func SetupE2EEnvironment(t *testing.T) *E2EEnvironment {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "Failed to start Redis container")
	t.Cleanup(func() {
		if err := redisC.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate Redis container: %v", err)
		}
	})

	host, err := redisC.Host(ctx)
	require.NoError(t, err, "Failed to get container host")
	port, err := redisC.MappedPort(ctx, "6379")
	require.NoError(t, err, "Failed to get container port")

	addr := fmt.Sprintf("%s:%s", host, port.Port())

	// Unique run name so parallel tests on a shared daemon never collide.
	run := fmt.Sprintf("test-e2e-%s", time.Now().Format("20060102-150405-000000"))

	store, err := runstore.NewClient(&redis.Options{Addr: addr}, run)
	require.NoError(t, err, "Failed to create run store client")
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.Ping(ctx), "Redis container not reachable")

	return &E2EEnvironment{
		T:         t,
		Ctx:       ctx,
		Run:       run,
		RedisAddr: addr,
		Store:     store,
	}
}

// WaitForArtifact polls the store for an artifact by name (up to 60 seconds).
func (env *E2EEnvironment) WaitForArtifact(name string) *runstore.Artifact {
	env.T.Helper()

	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		artifact, err := env.Store.GetArtifact(env.Ctx, name)
		if err == nil {
			return artifact
		}
		if !runstore.IsArtifactMissing(err) {
			require.NoError(env.T, err, "Failed to query for artifact %s", name)
		}
		time.Sleep(200 * time.Millisecond)
	}

	require.Fail(env.T, fmt.Sprintf("Artifact %s did not appear within 60 seconds", name))
	return nil
}
