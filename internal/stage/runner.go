// Package stage drives a single pipeline stage invocation through its
// lifecycle: restore the session, verify declared dependencies, execute the
// transformation, persist outputs, report status. Stages are launched as
// independent processes; the runner is what makes each invocation fail fast
// and never leave a half-written artifact visible to later stages.
package stage

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/caprock-sim/caprock/internal/config"
	"github.com/caprock-sim/caprock/internal/contract"
	"github.com/caprock-sim/caprock/internal/session"
	"github.com/caprock-sim/caprock/internal/solver"
	"github.com/caprock-sim/caprock/pkg/runstore"
)

// State is the runner's position in the per-invocation lifecycle.
type State string

const (
	StateStart                State = "START"
	StateSessionRestored      State = "SESSION_RESTORED"
	StateDependenciesVerified State = "DEPENDENCIES_VERIFIED"
	StateExecuting            State = "EXECUTING"
	StatePersisted            State = "PERSISTED"
	StateDone                 State = "DONE"
	StateFailed               State = "FAILED"
)

// Env is everything a stage's transformation may touch. Stages read from the
// store and return artifacts; they never write to the store themselves.
type Env struct {
	Config   *config.Config
	Store    *runstore.Client
	Registry *session.Registry
	Session  *runstore.Session // nil for the bootstrap stage
	Solver   solver.Solver     // nil except for the simulate stage
}

// Stage is one discrete unit of pipeline work.
type Stage interface {
	// ID is the stage's name, also used as the producer stamp on its outputs.
	ID() string

	// Bootstrap reports whether this stage creates the session instead of
	// restoring it. Exactly one stage per pipeline returns true.
	Bootstrap() bool

	// Requires declares the upstream artifacts this stage consumes.
	Requires() []contract.Spec

	// Execute performs the transformation and returns the artifacts to
	// persist. It must not write to the store directly.
	Execute(ctx context.Context, env *Env) ([]*runstore.Artifact, error)
}

// Result reports how far an invocation progressed and what it produced.
type Result struct {
	StageID   string
	State     State
	Artifacts []string // Names of persisted artifacts
	Err       error    // The originating error when State == FAILED
}

// Runner composes the session registry, contract checker, and run store into
// the per-stage driver.
type Runner struct {
	store    *runstore.Client
	registry *session.Registry
	checker  *contract.Checker
	config   *config.Config
	solver   solver.Solver
}

// NewRunner creates a runner for one stage invocation. producers maps
// artifact names to their owning stages (used for remediation messages).
func NewRunner(cfg *config.Config, store *runstore.Client, producers map[string]string, sol solver.Solver) *Runner {
	return &Runner{
		store:    store,
		registry: session.NewRegistry(store),
		checker:  contract.NewChecker(store, producers),
		config:   cfg,
		solver:   sol,
	}
}

// Run drives one stage through the full lifecycle. On any error the returned
// Result is in StateFailed with the originating error preserved, and nothing
// produced by the failed transformation is visible in the store.
func (r *Runner) Run(ctx context.Context, s Stage) (*Result, error) {
	result := &Result{StageID: s.ID(), State: StateStart}
	log.Printf("[INFO] Stage %s starting: run=%s", s.ID(), r.store.Run())

	fail := func(err error) (*Result, error) {
		result.State = StateFailed
		result.Err = err
		log.Printf("[ERROR] Stage %s failed: %v", s.ID(), err)
		return result, err
	}

	env := &Env{
		Config:   r.config,
		Store:    r.store,
		Registry: r.registry,
		Solver:   r.solver,
	}

	if !s.Bootstrap() {
		sess, err := r.registry.Restore(ctx)
		if err != nil {
			return fail(err)
		}
		env.Session = sess
	}
	result.State = StateSessionRestored

	if err := r.checker.Require(ctx, s.ID(), s.Requires()); err != nil {
		return fail(err)
	}
	result.State = StateDependenciesVerified

	result.State = StateExecuting
	artifacts, err := s.Execute(ctx, env)
	if err != nil {
		return fail(err)
	}
	if len(artifacts) == 0 {
		return fail(fmt.Errorf("stage %q produced no artifacts", s.ID()))
	}

	// Outputs are only persisted once the whole transformation has returned
	// successfully, never incrementally mid-transformation.
	for _, a := range artifacts {
		stamp(a, s.ID())
		if err := r.store.PutArtifact(ctx, a); err != nil {
			return fail(err)
		}
		result.Artifacts = append(result.Artifacts, a.Name)
	}
	result.State = StatePersisted

	result.State = StateDone
	log.Printf("[INFO] Stage %s done: artifacts=%v", s.ID(), result.Artifacts)
	return result, nil
}

// stamp fills the bookkeeping fields a stage does not set itself. The
// producer stamp always comes from the stage ID, so a stage cannot write an
// artifact under another stage's identity.
func stamp(a *runstore.Artifact, stageID string) {
	a.ProducerStage = stageID
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAtMs == 0 {
		a.CreatedAtMs = time.Now().UnixMilli()
	}
	if a.Sources == nil {
		a.Sources = []string{}
	}
}
