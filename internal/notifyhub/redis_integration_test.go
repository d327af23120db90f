//go:build integration

package notifyhub

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/openmesh-chat/groupchat-core/internal/ids"
)

// TestRedisBridgePublishSubscribeRoundTrip exercises RedisBridge against
// a real Redis instance (not a mock), the same "spin up the real backend"
// instinct behind the teacher pulling in testcontainers-go in the first
// place — run with `go test -tags=integration ./...`.
func TestRedisBridgePublishSubscribeRoundTrip(t *testing.T) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	defer container.Terminate(ctx)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})
	defer client.Close()

	logger := logrus.New()
	hub := NewHub(logger, nil)
	go hub.Run(2)

	// Subscribe directly (independent of RedisBridge) so the assertion
	// checks what actually crossed Redis, not just that Hub.Notify ran.
	raw := client.Subscribe(ctx, notifyChannel)
	defer raw.Close()
	_, err = raw.Receive(ctx)
	require.NoError(t, err)

	bridge := NewRedisBridge(client, hub, logger)
	require.NoError(t, bridge.Publish(ctx, []ids.UserId{"alice"}, "general", 42))

	select {
	case msg := <-raw.Channel():
		require.Contains(t, msg.Payload, "\"chat\":\"general\"")
		require.Contains(t, msg.Payload, "\"eventIndex\":42")
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the published notification")
	}
}
