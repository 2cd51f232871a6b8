package contract

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caprock-sim/caprock/pkg/runstore"
)

func setupChecker(t *testing.T) (*Checker, *runstore.Client) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	store, err := runstore.NewClient(&redis.Options{Addr: mr.Addr()}, "test-run")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	producers := map[string]string{
		"grid":     "grid",
		"rock":     "props",
		"fluid":    "props",
		"schedule": "schedule",
	}

	return NewChecker(store, producers), store
}

func putArtifact(t *testing.T, store *runstore.Client, name, producer, payload string) {
	t.Helper()
	err := store.PutArtifact(context.Background(), &runstore.Artifact{
		ID:            uuid.New().String(),
		Name:          name,
		Group:         runstore.GroupStatic,
		ProducerStage: producer,
		Payload:       payload,
		CreatedAtMs:   time.Now().UnixMilli(),
	})
	require.NoError(t, err)
}

func TestRequireMissingArtifact(t *testing.T) {
	checker, _ := setupChecker(t)

	err := checker.Require(context.Background(), "props", []Spec{{Name: "grid", RequiredFields: []string{"nx"}}})
	require.Error(t, err)

	var missing *MissingArtifactError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "grid", missing.Name)
	assert.Equal(t, "grid", missing.ExpectedProducer)
	assert.Contains(t, missing.Remediation, "caprock grid")
	assert.Contains(t, missing.Remediation, "test-run")
}

func TestRequireUnknownProducer(t *testing.T) {
	checker, _ := setupChecker(t)

	err := checker.Require(context.Background(), "export", []Spec{{Name: "mystery"}})
	require.Error(t, err)

	var missing *MissingArtifactError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "unknown", missing.ExpectedProducer)
}

func TestRequirePresentAndWellFormed(t *testing.T) {
	checker, store := setupChecker(t)
	putArtifact(t, store, "grid", "grid", `{"nx":20,"ny":20,"nz":4}`)

	err := checker.Require(context.Background(), "props", []Spec{
		{Name: "grid", RequiredFields: []string{"nx", "ny", "nz"}},
	})
	assert.NoError(t, err)
}

func TestRequireMalformedArtifact(t *testing.T) {
	checker, store := setupChecker(t)

	t.Run("missing fields listed", func(t *testing.T) {
		putArtifact(t, store, "grid", "grid", `{"nx":20}`)

		err := checker.Require(context.Background(), "props", []Spec{
			{Name: "grid", RequiredFields: []string{"nx", "ny", "nz"}},
		})
		require.Error(t, err)

		var malformed *MalformedArtifactError
		require.ErrorAs(t, err, &malformed)
		assert.Equal(t, "grid", malformed.Name)
		assert.Equal(t, []string{"ny", "nz"}, malformed.MissingFields)
	})

	t.Run("non-object payload", func(t *testing.T) {
		putArtifact(t, store, "rock", "props", `[1,2,3]`)

		err := checker.Require(context.Background(), "simulate", []Spec{
			{Name: "rock", RequiredFields: []string{"layers"}},
		})
		require.Error(t, err)

		var malformed *MalformedArtifactError
		require.ErrorAs(t, err, &malformed)
		assert.Equal(t, []string{"layers"}, malformed.MissingFields)
	})
}

func TestRequireNoFieldCheckWhenUndeclared(t *testing.T) {
	checker, store := setupChecker(t)
	putArtifact(t, store, "fluid", "props", `"opaque"`)

	// Presence-only specs never inspect the payload shape.
	err := checker.Require(context.Background(), "simulate", []Spec{{Name: "fluid"}})
	assert.NoError(t, err)
}

func TestRequireStopsAtFirstViolation(t *testing.T) {
	checker, store := setupChecker(t)
	putArtifact(t, store, "grid", "grid", `{"nx":20,"ny":20}`)

	err := checker.Require(context.Background(), "simulate", []Spec{
		{Name: "schedule"},
		{Name: "grid", RequiredFields: []string{"nz"}},
	})
	require.Error(t, err)

	var missing *MissingArtifactError
	assert.ErrorAs(t, err, &missing, "first violation (missing schedule) should be reported")
}
