package runstore

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Artifact represents an immutable, named work product of one pipeline stage.
// Artifacts are written once per run by the stage that owns their name and are
// read-only for every downstream stage.
type Artifact struct {
	ID            string   `json:"id"`             // UUID - unique identifier for this artifact write
	Name          string   `json:"name"`           // Unique key within a run (e.g. "grid", "schedule")
	Group         Group    `json:"group"`          // Logical dataset category, used for key partitioning only
	ProducerStage string   `json:"producer_stage"` // Stage ID that wrote this artifact
	Payload       string   `json:"payload"`        // JSON-encoded content
	Sources       []string `json:"sources"`        // Names of upstream artifacts this was derived from
	CreatedAtMs   int64    `json:"created_at_ms"`  // Unix timestamp in milliseconds when the artifact was written
}

// Group is the dataset category an artifact belongs to. Groups partition the
// Redis key space; they carry no behavioral meaning beyond that.
type Group string

const (
	// GroupInitial holds initial-condition datasets (state at day zero).
	GroupInitial Group = "initial"

	// GroupStatic holds properties that do not change over the run (grid, rock, fluid).
	GroupStatic Group = "static"

	// GroupDynamic holds per-timestep field arrays (pressure, saturation).
	GroupDynamic Group = "dynamic"

	// GroupWells holds per-timestep well-operational series.
	GroupWells Group = "wells"

	// GroupTemporal holds temporal indices (cumulative day count per step).
	GroupTemporal Group = "temporal"

	// GroupSchedule holds the assembled well-control schedule.
	GroupSchedule Group = "schedule"

	// GroupMeta holds run metadata.
	GroupMeta Group = "meta"
)

// ProvenanceRecord is one entry in a run's append-only provenance log.
// Every successful artifact write appends exactly one record.
type ProvenanceRecord struct {
	ID            string `json:"id"`             // UUID of the artifact write
	Name          string `json:"name"`           // Artifact name
	ProducerStage string `json:"producer_stage"` // Stage that performed the write
	CreatedAtMs   int64  `json:"created_at_ms"`  // Unix timestamp in milliseconds
}

// SessionStatus is the lifecycle state of a run's session record.
type SessionStatus string

const (
	// SessionStatusUninitialized means no bootstrap stage has run yet.
	SessionStatusUninitialized SessionStatus = "uninitialized"

	// SessionStatusReady means the bootstrap stage completed and downstream stages may run.
	SessionStatusReady SessionStatus = "ready"

	// SessionStatusFailed means bootstrap failed; the run must be restarted under a new name.
	SessionStatusFailed SessionStatus = "failed"
)

// Session is the per-run initialization record. It is created exactly once by
// the bootstrap stage and restored read-only by every other stage invocation.
type Session struct {
	Status        SessionStatus `json:"status"`
	RootPaths     []string      `json:"root_paths"`     // Ordered resource-search locations
	LoadedModules []string      `json:"loaded_modules"` // Capability names initialized for the run
	CreatedAtMs   int64         `json:"created_at_ms"`
}

// Validate checks that the Artifact has valid field values.
func (a *Artifact) Validate() error {
	if !isValidUUID(a.ID) {
		return fmt.Errorf("invalid artifact ID: not a valid UUID")
	}

	if a.Name == "" {
		return fmt.Errorf("artifact name cannot be empty")
	}

	if err := a.Group.Validate(); err != nil {
		return fmt.Errorf("invalid group: %w", err)
	}

	if a.ProducerStage == "" {
		return fmt.Errorf("producer_stage cannot be empty")
	}

	if a.Payload == "" || !json.Valid([]byte(a.Payload)) {
		return fmt.Errorf("artifact %q payload must be valid JSON", a.Name)
	}

	return nil
}

// Validate checks that the Group is a known category.
func (g Group) Validate() error {
	switch g {
	case GroupInitial, GroupStatic, GroupDynamic, GroupWells,
		GroupTemporal, GroupSchedule, GroupMeta:
		return nil
	default:
		return fmt.Errorf("unknown artifact group: %q", g)
	}
}

// Validate checks that the SessionStatus is a valid enum value.
func (s SessionStatus) Validate() error {
	switch s {
	case SessionStatusUninitialized, SessionStatusReady, SessionStatusFailed:
		return nil
	default:
		return fmt.Errorf("unknown session status: %q", s)
	}
}

// Validate checks that the Session has valid field values.
func (s *Session) Validate() error {
	if err := s.Status.Validate(); err != nil {
		return err
	}

	if len(s.RootPaths) == 0 {
		return fmt.Errorf("session must declare at least one root path")
	}

	if s.CreatedAtMs <= 0 {
		return fmt.Errorf("session created_at_ms must be positive, got %d", s.CreatedAtMs)
	}

	return nil
}

// isValidUUID checks if a string is a valid UUID format.
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
