package runstore

import (
	"errors"
	"fmt"
)

// ArtifactMissingError indicates a requested artifact has not been written
// for this run.
type ArtifactMissingError struct {
	Name string
}

func (e *ArtifactMissingError) Error() string {
	return fmt.Sprintf("artifact %q does not exist for this run", e.Name)
}

// ArtifactConflictError indicates an attempt to write an artifact name that is
// already owned by a different producer stage. A name may only ever be written
// by the stage that first produced it.
type ArtifactConflictError struct {
	Name      string
	Owner     string // Stage that originally produced the artifact
	Attempted string // Stage that attempted the conflicting write
}

func (e *ArtifactConflictError) Error() string {
	return fmt.Sprintf("artifact %q is owned by stage %q; stage %q may not overwrite it",
		e.Name, e.Owner, e.Attempted)
}

// SessionNotFoundError indicates no session record has been persisted for the
// run. The remediation is always the same: run the bootstrap stage first.
type SessionNotFoundError struct {
	Run string
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("no session found for run %q: run the bootstrap stage first", e.Run)
}

// AlreadyInitializedError indicates a second Initialize attempt for a run that
// already holds a session record.
type AlreadyInitializedError struct {
	Run string
}

func (e *AlreadyInitializedError) Error() string {
	return fmt.Sprintf("run %q is already initialized: a session may only be created once per run", e.Run)
}

// IsArtifactMissing reports whether err is an ArtifactMissingError.
func IsArtifactMissing(err error) bool {
	var e *ArtifactMissingError
	return errors.As(err, &e)
}

// IsArtifactConflict reports whether err is an ArtifactConflictError.
func IsArtifactConflict(err error) bool {
	var e *ArtifactConflictError
	return errors.As(err, &e)
}

// IsSessionNotFound reports whether err is a SessionNotFoundError.
func IsSessionNotFound(err error) bool {
	var e *SessionNotFoundError
	return errors.As(err, &e)
}
