package stage

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caprock-sim/caprock/internal/contract"
	"github.com/caprock-sim/caprock/pkg/runstore"
)

// fakeStage is a scriptable stage for runner tests.
type fakeStage struct {
	id        string
	bootstrap bool
	requires  []contract.Spec
	execute   func(ctx context.Context, env *Env) ([]*runstore.Artifact, error)
	executed  bool
}

func (f *fakeStage) ID() string                { return f.id }
func (f *fakeStage) Bootstrap() bool           { return f.bootstrap }
func (f *fakeStage) Requires() []contract.Spec { return f.requires }

func (f *fakeStage) Execute(ctx context.Context, env *Env) ([]*runstore.Artifact, error) {
	f.executed = true
	return f.execute(ctx, env)
}

func setupRunner(t *testing.T) (*Runner, *runstore.Client) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	store, err := runstore.NewClient(&redis.Options{Addr: mr.Addr()}, "test-run")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	producers := map[string]string{"grid": "grid", "rock": "props"}
	return NewRunner(nil, store, producers, nil), store
}

func bootstrapRun(t *testing.T, r *Runner) {
	t.Helper()
	boot := &fakeStage{
		id:        "bootstrap",
		bootstrap: true,
		execute: func(ctx context.Context, env *Env) ([]*runstore.Artifact, error) {
			if _, err := env.Registry.Initialize(ctx, []string{"/data"}, []string{"grid"}); err != nil {
				return nil, err
			}
			return []*runstore.Artifact{{
				Name:    "run_meta",
				Group:   runstore.GroupMeta,
				Payload: `{"run":"test-run"}`,
			}}, nil
		},
	}
	res, err := r.Run(context.Background(), boot)
	require.NoError(t, err)
	require.Equal(t, StateDone, res.State)
}

func TestRunnerHappyPath(t *testing.T) {
	r, store := setupRunner(t)
	bootstrapRun(t, r)

	s := &fakeStage{
		id: "grid",
		execute: func(ctx context.Context, env *Env) ([]*runstore.Artifact, error) {
			require.NotNil(t, env.Session)
			return []*runstore.Artifact{{
				Name:    "grid",
				Group:   runstore.GroupStatic,
				Payload: `{"nx":20,"ny":20,"nz":4}`,
			}}, nil
		},
	}

	res, err := r.Run(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, []string{"grid"}, res.Artifacts)

	got, err := store.GetArtifact(context.Background(), "grid")
	require.NoError(t, err)
	assert.Equal(t, "grid", got.ProducerStage, "producer stamp comes from the stage ID")
	assert.NotEmpty(t, got.ID)
	assert.NotZero(t, got.CreatedAtMs)
}

func TestRunnerFailsWithoutSession(t *testing.T) {
	r, store := setupRunner(t)

	s := &fakeStage{
		id: "grid",
		execute: func(ctx context.Context, env *Env) ([]*runstore.Artifact, error) {
			return nil, nil
		},
	}

	res, err := r.Run(context.Background(), s)
	require.Error(t, err)
	assert.Equal(t, StateFailed, res.State)
	assert.True(t, runstore.IsSessionNotFound(err))
	assert.False(t, s.executed, "transformation must not run without a session")

	artifacts, err := store.ListArtifacts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, artifacts, "no side effects on failure")
}

func TestRunnerFailsFastOnMissingDependency(t *testing.T) {
	r, store := setupRunner(t)
	bootstrapRun(t, r)

	s := &fakeStage{
		id:       "props",
		requires: []contract.Spec{{Name: "grid", RequiredFields: []string{"nx"}}},
		execute: func(ctx context.Context, env *Env) ([]*runstore.Artifact, error) {
			return []*runstore.Artifact{{Name: "rock", Group: runstore.GroupStatic, Payload: `{}`}}, nil
		},
	}

	res, err := r.Run(context.Background(), s)
	require.Error(t, err)
	assert.Equal(t, StateFailed, res.State)

	var missing *contract.MissingArtifactError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "grid", missing.Name)
	assert.False(t, s.executed, "transformation must not run with missing dependencies")

	// The store holds only what bootstrap wrote.
	artifacts, listErr := store.ListArtifacts(context.Background())
	require.NoError(t, listErr)
	require.Len(t, artifacts, 1)
	assert.Equal(t, "run_meta", artifacts[0].Name)
}

func TestRunnerExecutionFailureWritesNothing(t *testing.T) {
	r, store := setupRunner(t)
	bootstrapRun(t, r)

	s := &fakeStage{
		id: "grid",
		execute: func(ctx context.Context, env *Env) ([]*runstore.Artifact, error) {
			return nil, errors.New("transformation exploded")
		},
	}

	res, err := r.Run(context.Background(), s)
	require.Error(t, err)
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, err, res.Err)

	exists, err2 := store.ArtifactExists(context.Background(), "grid")
	require.NoError(t, err2)
	assert.False(t, exists)
}

func TestRunnerRejectsEmptyOutput(t *testing.T) {
	r, _ := setupRunner(t)
	bootstrapRun(t, r)

	s := &fakeStage{
		id: "grid",
		execute: func(ctx context.Context, env *Env) ([]*runstore.Artifact, error) {
			return nil, nil
		},
	}

	res, err := r.Run(context.Background(), s)
	require.Error(t, err)
	assert.Equal(t, StateFailed, res.State)
	assert.Contains(t, err.Error(), "produced no artifacts")
}

func TestRunnerArtifactConflict(t *testing.T) {
	r, _ := setupRunner(t)
	bootstrapRun(t, r)

	impostor := &fakeStage{
		id: "props",
		execute: func(ctx context.Context, env *Env) ([]*runstore.Artifact, error) {
			// Tries to write the meta artifact that bootstrap owns.
			return []*runstore.Artifact{{Name: "run_meta", Group: runstore.GroupMeta, Payload: `{}`}}, nil
		},
	}

	res, err := r.Run(context.Background(), impostor)
	require.Error(t, err)
	assert.Equal(t, StateFailed, res.State)
	assert.True(t, runstore.IsArtifactConflict(err))
}
