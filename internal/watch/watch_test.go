package watch

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caprock-sim/caprock/pkg/runstore"
)

// syncBuffer lets the streaming goroutine and the test write and read
// concurrently.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func setupStore(t *testing.T) *runstore.Client {
	t.Helper()

	mr := miniredis.RunT(t)
	store, err := runstore.NewClient(&redis.Options{Addr: mr.Addr()}, "test-run")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func putArtifact(t *testing.T, store *runstore.Client, name string) {
	t.Helper()
	err := store.PutArtifact(context.Background(), &runstore.Artifact{
		ID:            uuid.New().String(),
		Name:          name,
		Group:         runstore.GroupStatic,
		ProducerStage: "grid",
		Payload:       `{}`,
		Sources:       []string{},
		CreatedAtMs:   time.Now().UnixMilli(),
	})
	require.NoError(t, err)
}

func TestStreamPrintsArtifactEvents(t *testing.T) {
	store := setupStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out syncBuffer
	done := make(chan error, 1)
	go func() { done <- Stream(ctx, store, &out) }()

	// Wait for the subscription header before publishing.
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Watching run 'test-run'")
	}, 2*time.Second, 10*time.Millisecond)

	putArtifact(t, store, "grid")

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "grid")
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, out.String(), "group=static")
	assert.Contains(t, out.String(), "stage=grid")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Stream did not return after cancellation")
	}
}

func TestWaitForArtifactFindsLateWrite(t *testing.T) {
	store := setupStore(t)

	go func() {
		time.Sleep(300 * time.Millisecond)
		putArtifact(t, store, "schedule")
	}()

	artifact, err := WaitForArtifact(context.Background(), store, "schedule", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "schedule", artifact.Name)
}

func TestWaitForArtifactTimesOut(t *testing.T) {
	store := setupStore(t)

	_, err := WaitForArtifact(context.Background(), store, "states", 500*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout waiting for artifact")
}

func TestWaitForArtifactRespectsContext(t *testing.T) {
	store := setupStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	_, err := WaitForArtifact(ctx, store, "states", 10*time.Second)
	require.ErrorIs(t, err, context.Canceled)
}
