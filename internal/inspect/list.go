// Package inspect implements the read-only artifact views behind the
// `caprock artifacts` command: tabular and JSONL listings of a run's
// artifacts, single-artifact detail, and the provenance log.
package inspect

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/caprock-sim/caprock/pkg/runstore"
)

// OutputFormat specifies how to format the artifact list output.
type OutputFormat string

const (
	// OutputFormatDefault uses a table format with truncated payloads
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL outputs complete artifacts as line-delimited JSON
	OutputFormatJSONL OutputFormat = "jsonl"
)

// FilterCriteria defines filtering options for the artifact list.
// All filters are ANDed together.
type FilterCriteria struct {
	SinceTimestampMs int64  // Unix timestamp in milliseconds, 0 = no filter
	UntilTimestampMs int64  // Unix timestamp in milliseconds, 0 = no filter
	NameGlob         string // Glob pattern for artifact name, empty = no filter
	Group            string // Exact match for artifact group, empty = no filter
	ProducerStage    string // Exact match for producing stage, empty = no filter
}

// matchesFilter returns true if the artifact matches all filter criteria.
func (fc *FilterCriteria) matchesFilter(a *runstore.Artifact) bool {
	if fc.SinceTimestampMs > 0 && a.CreatedAtMs < fc.SinceTimestampMs {
		return false
	}
	if fc.UntilTimestampMs > 0 && a.CreatedAtMs > fc.UntilTimestampMs {
		return false
	}

	if fc.NameGlob != "" {
		matched, err := filepath.Match(fc.NameGlob, a.Name)
		if err != nil || !matched {
			return false
		}
	}

	if fc.Group != "" && string(a.Group) != fc.Group {
		return false
	}

	if fc.ProducerStage != "" && a.ProducerStage != fc.ProducerStage {
		return false
	}

	return true
}

// ListArtifacts retrieves a run's artifacts and writes them to the provided
// writer in the requested format. Applies filter criteria if provided. The
// store returns artifacts already ordered by creation time.
func ListArtifacts(ctx context.Context, store *runstore.Client, format OutputFormat, filters *FilterCriteria, w io.Writer) error {
	all, err := store.ListArtifacts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list artifacts: %w", err)
	}

	var artifacts []*runstore.Artifact
	for _, a := range all {
		if filters != nil && !filters.matchesFilter(a) {
			continue
		}
		artifacts = append(artifacts, a)
	}

	switch format {
	case OutputFormatDefault:
		FormatTable(w, artifacts, store.Run())
	case OutputFormatJSONL:
		if err := FormatJSONL(w, artifacts); err != nil {
			return fmt.Errorf("failed to format JSONL output: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}

	return nil
}

// GetArtifact retrieves a single artifact by name and writes it as
// pretty-printed JSON. The store's ArtifactMissingError passes through so
// the caller can render its remediation.
func GetArtifact(ctx context.Context, store *runstore.Client, name string, w io.Writer) error {
	artifact, err := store.GetArtifact(ctx, name)
	if err != nil {
		return err
	}

	if err := FormatSingleJSON(w, artifact); err != nil {
		return fmt.Errorf("failed to format artifact: %w", err)
	}

	return nil
}

// Provenance writes the run's provenance log in chronological order: one
// line per artifact write, naming the producing stage.
func Provenance(ctx context.Context, store *runstore.Client, w io.Writer) error {
	records, err := store.Provenance(ctx)
	if err != nil {
		return fmt.Errorf("failed to read provenance: %w", err)
	}

	FormatProvenance(w, records, store.Run())
	return nil
}
