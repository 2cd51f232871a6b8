// Package contract enforces the artifact contract between pipeline stages.
// A stage declares the artifacts it consumes and the fields it relies on; the
// checker verifies presence and shape before any transformation logic runs,
// so producer and consumer stay decoupled in time and process while the
// contract remains enforced rather than merely documented.
package contract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/caprock-sim/caprock/pkg/runstore"
)

// Spec declares one required upstream artifact: its name and the top-level
// payload fields the consuming stage reads.
type Spec struct {
	Name           string
	RequiredFields []string
}

// MissingArtifactError indicates a required upstream artifact has not been
// produced. It names the stage that should have produced it and how to fix it.
type MissingArtifactError struct {
	Name             string
	ExpectedProducer string
	Remediation      string
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("required artifact %q is missing (produced by stage %q): %s",
		e.Name, e.ExpectedProducer, e.Remediation)
}

// MalformedArtifactError indicates a required artifact exists but lacks
// fields the consuming stage depends on.
type MalformedArtifactError struct {
	Name          string
	MissingFields []string
}

func (e *MalformedArtifactError) Error() string {
	return fmt.Sprintf("artifact %q is malformed: missing required fields [%s]: re-run the producing stage",
		e.Name, strings.Join(e.MissingFields, ", "))
}

// Checker verifies stage dependency contracts against the run store.
type Checker struct {
	store     *runstore.Client
	producers map[string]string // artifact name → producing stage ID
}

// NewChecker creates a checker. producers maps every known artifact name to
// the stage that owns it; it drives the remediation text in errors.
func NewChecker(store *runstore.Client, producers map[string]string) *Checker {
	return &Checker{store: store, producers: producers}
}

// Require verifies that every declared upstream artifact exists and carries
// the declared fields. It runs before any transformation and has no side
// effects: on the first violation it returns immediately with a descriptive
// error and the stage must not execute.
func (c *Checker) Require(ctx context.Context, stageID string, specs []Spec) error {
	for _, spec := range specs {
		exists, err := c.store.ArtifactExists(ctx, spec.Name)
		if err != nil {
			return fmt.Errorf("stage %q dependency check failed: %w", stageID, err)
		}
		if !exists {
			producer := c.producers[spec.Name]
			remediation := fmt.Sprintf("run 'caprock %s --run %s' before 'caprock %s'", producer, c.store.Run(), stageID)
			if producer == "" {
				producer = "unknown"
				remediation = fmt.Sprintf("no stage is registered as producer of %q; check the run configuration", spec.Name)
			}
			return &MissingArtifactError{
				Name:             spec.Name,
				ExpectedProducer: producer,
				Remediation:      remediation,
			}
		}

		if len(spec.RequiredFields) == 0 {
			continue
		}

		artifact, err := c.store.GetArtifact(ctx, spec.Name)
		if err != nil {
			return fmt.Errorf("stage %q dependency check failed: %w", stageID, err)
		}

		var payload map[string]json.RawMessage
		if err := json.Unmarshal([]byte(artifact.Payload), &payload); err != nil {
			// Not a JSON object at all: every declared field is missing.
			return &MalformedArtifactError{Name: spec.Name, MissingFields: spec.RequiredFields}
		}

		var missing []string
		for _, field := range spec.RequiredFields {
			if _, ok := payload[field]; !ok {
				missing = append(missing, field)
			}
		}
		if len(missing) > 0 {
			return &MalformedArtifactError{Name: spec.Name, MissingFields: missing}
		}
	}

	return nil
}
