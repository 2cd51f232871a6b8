package runstore

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestClient creates a test client connected to a miniredis instance
func setupTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	mr := miniredis.NewMiniRedis()
	err := mr.Start()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewClient(&redis.Options{Addr: mr.Addr()}, "test-run")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client, mr
}

func TestNewClient(t *testing.T) {
	t.Run("creates client successfully", func(t *testing.T) {
		client, _ := setupTestClient(t)
		assert.NotNil(t, client)
		assert.Equal(t, "test-run", client.Run())
	})

	t.Run("rejects empty run name", func(t *testing.T) {
		_, err := NewClient(&redis.Options{Addr: "localhost:6379"}, "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "run name cannot be empty")
	})
}

func TestPing(t *testing.T) {
	client, _ := setupTestClient(t)
	assert.NoError(t, client.Ping(context.Background()))
}

func TestPutArtifact(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	t.Run("writes and reads back", func(t *testing.T) {
		a := validArtifact()
		require.NoError(t, client.PutArtifact(ctx, a))

		got, err := client.GetArtifact(ctx, a.Name)
		require.NoError(t, err)
		assert.Equal(t, a.ID, got.ID)
		assert.Equal(t, a.Group, got.Group)
		assert.Equal(t, a.ProducerStage, got.ProducerStage)
		assert.Equal(t, a.Payload, got.Payload)
	})

	t.Run("rejects invalid artifact", func(t *testing.T) {
		a := validArtifact()
		a.ID = "nope"
		err := client.PutArtifact(ctx, a)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid artifact")
	})

	t.Run("same producer may re-put", func(t *testing.T) {
		a := validArtifact()
		a.Name = "rock"
		require.NoError(t, client.PutArtifact(ctx, a))

		a2 := validArtifact()
		a2.Name = "rock"
		a2.Payload = `{"layers":3}`
		require.NoError(t, client.PutArtifact(ctx, a2))

		got, err := client.GetArtifact(ctx, "rock")
		require.NoError(t, err)
		assert.Equal(t, `{"layers":3}`, got.Payload)
	})

	t.Run("different producer conflicts", func(t *testing.T) {
		a := validArtifact()
		a.Name = "fluid"
		a.ProducerStage = "props"
		require.NoError(t, client.PutArtifact(ctx, a))

		b := validArtifact()
		b.Name = "fluid"
		b.ProducerStage = "export"
		err := client.PutArtifact(ctx, b)
		require.Error(t, err)
		assert.True(t, IsArtifactConflict(err))

		var conflict *ArtifactConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, "props", conflict.Owner)
		assert.Equal(t, "export", conflict.Attempted)
	})

	t.Run("appends provenance record per put", func(t *testing.T) {
		fresh, _ := setupTestClient(t)

		a := validArtifact()
		require.NoError(t, fresh.PutArtifact(ctx, a))
		b := validArtifact()
		b.Name = "rock"
		b.ProducerStage = "props"
		require.NoError(t, fresh.PutArtifact(ctx, b))

		records, err := fresh.Provenance(ctx)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "grid", records[0].Name)
		assert.Equal(t, "rock", records[1].Name)
		assert.Equal(t, "props", records[1].ProducerStage)
	})

	t.Run("publishes event after write", func(t *testing.T) {
		fresh, _ := setupTestClient(t)

		sub, err := fresh.SubscribeArtifactEvents(ctx)
		require.NoError(t, err)
		defer sub.Close()

		a := validArtifact()
		require.NoError(t, fresh.PutArtifact(ctx, a))

		select {
		case msg := <-sub.Channel():
			var got Artifact
			require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
			assert.Equal(t, a.Name, got.Name)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for artifact event")
		}
	})
}

func TestGetArtifact(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	t.Run("missing artifact", func(t *testing.T) {
		_, err := client.GetArtifact(ctx, "never-written")
		require.Error(t, err)
		assert.True(t, IsArtifactMissing(err))
		assert.Contains(t, err.Error(), "never-written")
	})
}

func TestArtifactExists(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	exists, err := client.ArtifactExists(ctx, "grid")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, client.PutArtifact(ctx, validArtifact()))

	exists, err = client.ArtifactExists(ctx, "grid")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestListArtifacts(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	first := validArtifact()
	first.CreatedAtMs = 1000
	require.NoError(t, client.PutArtifact(ctx, first))

	second := validArtifact()
	second.Name = "schedule"
	second.Group = GroupSchedule
	second.ProducerStage = "schedule"
	second.CreatedAtMs = 2000
	require.NoError(t, client.PutArtifact(ctx, second))

	artifacts, err := client.ListArtifacts(ctx)
	require.NoError(t, err)
	require.Len(t, artifacts, 2)
	assert.Equal(t, "grid", artifacts[0].Name)
	assert.Equal(t, "schedule", artifacts[1].Name)
}

func TestCreateSession(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	session := &Session{
		Status:        SessionStatusReady,
		RootPaths:     []string{"/data/runs/test-run"},
		LoadedModules: []string{"grid", "props", "schedule"},
		CreatedAtMs:   time.Now().UnixMilli(),
	}

	t.Run("creates once", func(t *testing.T) {
		require.NoError(t, client.CreateSession(ctx, session))

		raw, err := client.GetSessionRaw(ctx)
		require.NoError(t, err)

		var got Session
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, session.RootPaths, got.RootPaths)
		assert.Equal(t, session.LoadedModules, got.LoadedModules)
	})

	t.Run("second create fails", func(t *testing.T) {
		err := client.CreateSession(ctx, session)
		require.Error(t, err)

		var already *AlreadyInitializedError
		assert.ErrorAs(t, err, &already)
	})
}

func TestGetSessionRaw(t *testing.T) {
	client, _ := setupTestClient(t)

	_, err := client.GetSessionRaw(context.Background())
	require.Error(t, err)
	assert.True(t, IsSessionNotFound(err))
	assert.Contains(t, err.Error(), "bootstrap")
}

func TestSerializationRoundTrip(t *testing.T) {
	a := validArtifact()
	a.Sources = []string{"grid", "rock"}

	hash, err := ArtifactToHash(a)
	require.NoError(t, err)

	stringHash := make(map[string]string, len(hash))
	for k, v := range hash {
		switch val := v.(type) {
		case string:
			stringHash[k] = val
		case int64:
			stringHash[k] = jsonNumber(val)
		}
	}

	got, err := HashToArtifact(stringHash)
	require.NoError(t, err)
	assert.Equal(t, a, got)
}

func jsonNumber(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
