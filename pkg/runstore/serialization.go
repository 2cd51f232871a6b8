package runstore

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Serialization helpers for converting between Go structs and Redis hashes
//
// Redis stores data as string-to-string maps (hashes). Array fields are
// JSON-encoded into single hash fields. This keeps individual fields
// queryable while allowing structured content where needed.

// ArtifactToHash converts an Artifact struct to a Redis hash format.
// The sources array is JSON-encoded.
func ArtifactToHash(a *Artifact) (map[string]interface{}, error) {
	sourcesJSON, err := json.Marshal(a.Sources)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sources: %w", err)
	}

	hash := map[string]interface{}{
		"id":             a.ID,
		"name":           a.Name,
		"group":          string(a.Group),
		"producer_stage": a.ProducerStage,
		"payload":        a.Payload,
		"sources":        string(sourcesJSON),
		"created_at_ms":  a.CreatedAtMs,
	}

	return hash, nil
}

// HashToArtifact converts a Redis hash back to an Artifact struct.
func HashToArtifact(hash map[string]string) (*Artifact, error) {
	var sources []string
	if sourcesJSON := hash["sources"]; sourcesJSON != "" {
		if err := json.Unmarshal([]byte(sourcesJSON), &sources); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sources: %w", err)
		}
	}

	// Empty slice instead of nil for consistency
	if sources == nil {
		sources = []string{}
	}

	createdAtMs, err := strconv.ParseInt(hash["created_at_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at_ms field: %w", err)
	}

	artifact := &Artifact{
		ID:            hash["id"],
		Name:          hash["name"],
		Group:         Group(hash["group"]),
		ProducerStage: hash["producer_stage"],
		Payload:       hash["payload"],
		Sources:       sources,
		CreatedAtMs:   createdAtMs,
	}

	return artifact, nil
}
