// Package runstore provides type-safe Go definitions and Redis schema patterns
// for the caprock run store. The run store is the shared state system through
// which all pipeline stages exchange named artifacts: every grid, property set,
// schedule, and exported dataset is an immutable artifact with full provenance.
//
// All Redis keys and channels are namespaced by run name so that multiple runs
// can safely coexist on a single Redis server. Stages are launched as
// independent processes; the run store is the only shared mutable resource
// between them.
package runstore
