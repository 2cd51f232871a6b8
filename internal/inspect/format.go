package inspect

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/caprock-sim/caprock/pkg/runstore"
)

// FormatTable writes artifacts as a formatted table to the provided writer.
// Columns: NAME, GROUP, STAGE, AGE, and PAYLOAD (truncated to the first
// line). Returns the number of artifacts formatted.
func FormatTable(w io.Writer, artifacts []*runstore.Artifact, run string) int {
	if len(artifacts) == 0 {
		fmt.Fprintf(w, "No artifacts found for run '%s'\n", run)
		return 0
	}

	fmt.Fprintf(w, "Artifacts for run '%s':\n\n", run)

	fmt.Fprintf(w, "%-20s %-10s %-12s %-8s %s\n",
		"NAME", "GROUP", "STAGE", "AGE", "PAYLOAD")
	fmt.Fprintf(w, "%-20s %-10s %-12s %-8s %s\n",
		"--------------------", "----------", "------------", "--------", "----------------------------------------")

	for _, a := range artifacts {
		fmt.Fprintf(w, "%-20s %-10s %-12s %-8s %s\n",
			a.Name,
			a.Group,
			formatStage(a.ProducerStage),
			formatTimestamp(a.CreatedAtMs),
			formatPayload(a.Payload),
		)
	}

	countMsg := "artifact"
	if len(artifacts) != 1 {
		countMsg = "artifacts"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(artifacts), countMsg)

	return len(artifacts)
}

// FormatJSONL writes artifacts as line-delimited JSON to the provided
// writer, one complete artifact object per line.
func FormatJSONL(w io.Writer, artifacts []*runstore.Artifact) error {
	for _, artifact := range artifacts {
		data, err := json.Marshal(artifact)
		if err != nil {
			return fmt.Errorf("failed to marshal artifact to JSON: %w", err)
		}

		if _, err := fmt.Fprintf(w, "%s\n", string(data)); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}

	return nil
}

// FormatSingleJSON writes a single artifact as pretty-printed JSON. Used in
// get mode to display complete artifact details including the full payload.
func FormatSingleJSON(w io.Writer, artifact *runstore.Artifact) error {
	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal artifact to JSON: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}

	fmt.Fprintln(w)
	return nil
}

// FormatProvenance writes the provenance log as a table in write order.
func FormatProvenance(w io.Writer, records []runstore.ProvenanceRecord, run string) {
	if len(records) == 0 {
		fmt.Fprintf(w, "No provenance records for run '%s'\n", run)
		return
	}

	fmt.Fprintf(w, "Provenance for run '%s':\n\n", run)
	fmt.Fprintf(w, "%-4s %-20s %-12s %s\n", "#", "NAME", "STAGE", "WRITTEN")
	for i, r := range records {
		fmt.Fprintf(w, "%-4d %-20s %-12s %s\n",
			i+1, r.Name, formatStage(r.ProducerStage), formatTimestamp(r.CreatedAtMs))
	}
}

// formatPayload truncates a payload to its first non-empty line with max 40
// characters for table display. Empty payloads render as "-".
func formatPayload(payload string) string {
	if payload == "" {
		return "-"
	}

	var firstLine string
	for _, line := range strings.Split(payload, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			firstLine = trimmed
			break
		}
	}

	if firstLine == "" {
		return "-"
	}

	if len(firstLine) > 40 {
		return firstLine[:37] + "..."
	}

	return firstLine
}

func formatStage(stage string) string {
	if stage == "" {
		return "-"
	}
	return stage
}

// formatTimestamp formats Unix milliseconds as relative time like "2m ago".
func formatTimestamp(timestampMs int64) string {
	if timestampMs == 0 {
		return "-"
	}

	t := time.Unix(timestampMs/1000, (timestampMs%1000)*1000000)
	diff := time.Since(t)

	if diff < time.Minute {
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	} else if diff < time.Hour {
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	} else if diff < 24*time.Hour {
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	}
	return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
}
