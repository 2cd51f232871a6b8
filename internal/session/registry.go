// Package session manages the per-run initialization record shared by all
// pipeline stages. The record is created exactly once by the bootstrap stage
// and restored read-only by every subsequent stage invocation, so that
// independently launched processes observe one consistent initialization
// state for the run.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/kaptinlin/jsonschema"

	"github.com/caprock-sim/caprock/pkg/runstore"
)

// sessionSchema is the structural contract a persisted session record must
// satisfy before it is trusted. Restore validates against it so that a
// truncated or hand-edited record fails loudly as SessionCorrupt instead of
// surfacing as a confusing downstream failure.
const sessionSchema = `{
	"type": "object",
	"required": ["status", "root_paths", "loaded_modules", "created_at_ms"],
	"properties": {
		"status": {"type": "string", "enum": ["uninitialized", "ready", "failed"]},
		"root_paths": {"type": "array", "items": {"type": "string"}, "minItems": 1},
		"loaded_modules": {"type": "array", "items": {"type": "string"}},
		"created_at_ms": {"type": "integer", "minimum": 1}
	}
}`

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func compiledSessionSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiledSchema, compileErr = compiler.Compile([]byte(sessionSchema))
	})
	if compileErr != nil {
		return nil, fmt.Errorf("compile session schema: %w", compileErr)
	}
	return compiledSchema, nil
}

// SessionCorruptError indicates the persisted session record exists but fails
// structural validation. The run cannot proceed; it must be restarted under a
// new run name.
type SessionCorruptError struct {
	Run    string
	Reason string
}

func (e *SessionCorruptError) Error() string {
	return fmt.Sprintf("session record for run %q is corrupt (%s): restart the run under a new name", e.Run, e.Reason)
}

// Registry mediates all session access for a run.
type Registry struct {
	store *runstore.Client
}

// NewRegistry creates a session registry backed by the given run store client.
func NewRegistry(store *runstore.Client) *Registry {
	return &Registry{store: store}
}

// Initialize creates the run's session record. Only the bootstrap stage may
// call this; a second call for the same run fails with AlreadyInitialized.
func (r *Registry) Initialize(ctx context.Context, rootPaths, modules []string) (*runstore.Session, error) {
	session := &runstore.Session{
		Status:        runstore.SessionStatusReady,
		RootPaths:     rootPaths,
		LoadedModules: modules,
		CreatedAtMs:   time.Now().UnixMilli(),
	}

	if err := r.store.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	// The bootstrap process gets the same process-local state every other
	// stage gets from Restore.
	registerRootPaths(rootPaths)

	return session, nil
}

// Restore loads and validates the run's session record, then populates
// process-local state (resource search paths). It is idempotent: calling it
// twice in one process does not duplicate any registered state.
//
// Fails with SessionNotFound if no record has been persisted for the run and
// with SessionCorrupt if the record fails structural validation.
func (r *Registry) Restore(ctx context.Context) (*runstore.Session, error) {
	raw, err := r.store.GetSessionRaw(ctx)
	if err != nil {
		return nil, err
	}

	schema, err := compiledSessionSchema()
	if err != nil {
		return nil, err
	}

	result := schema.ValidateJSON(raw)
	if !result.IsValid() {
		return nil, &SessionCorruptError{
			Run:    r.store.Run(),
			Reason: fmt.Sprintf("schema validation failed: %v", result.Errors),
		}
	}

	var session runstore.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, &SessionCorruptError{Run: r.store.Run(), Reason: err.Error()}
	}

	registerRootPaths(session.RootPaths)

	return &session, nil
}

// Process-local resource search paths, populated by Restore/Initialize.
// Stages resolve relative resource references against these in order.
var (
	pathsMu     sync.Mutex
	searchPaths []string
)

// registerRootPaths adds paths to the process-local search list, skipping any
// that are already registered. Repeated restoration never duplicates entries.
func registerRootPaths(paths []string) {
	pathsMu.Lock()
	defer pathsMu.Unlock()

	seen := make(map[string]bool, len(searchPaths))
	for _, p := range searchPaths {
		seen[p] = true
	}
	for _, p := range paths {
		if !seen[p] {
			searchPaths = append(searchPaths, p)
			seen[p] = true
		}
	}
}

// SearchPaths returns the process-local resource search paths in registration
// order.
func SearchPaths() []string {
	pathsMu.Lock()
	defer pathsMu.Unlock()

	out := make([]string, len(searchPaths))
	copy(out, searchPaths)
	return out
}

// resetSearchPaths clears process-local state. Test hook.
func resetSearchPaths() {
	pathsMu.Lock()
	defer pathsMu.Unlock()
	searchPaths = nil
}
