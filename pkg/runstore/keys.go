package runstore

import "fmt"

// Redis key pattern helpers
//
// All keys and Pub/Sub channels are namespaced by run name so that multiple
// runs can safely coexist on a single Redis server.
//
// Key pattern: caprock:{run}:{entity}...
// Channel pattern: caprock:{run}:{event_type}_events

// ArtifactKey returns the Redis key for an artifact.
// Pattern: caprock:{run}:artifact:{group}:{name}
func ArtifactKey(run string, group Group, name string) string {
	return fmt.Sprintf("caprock:%s:artifact:%s:%s", run, group, name)
}

// ArtifactIndexKey returns the Redis key for the run's name→group index hash.
// The index is what makes artifact names resolvable without knowing their group.
// Pattern: caprock:{run}:artifact_index
func ArtifactIndexKey(run string) string {
	return fmt.Sprintf("caprock:%s:artifact_index", run)
}

// ProvenanceKey returns the Redis key for the run's append-only provenance log.
// Pattern: caprock:{run}:provenance
func ProvenanceKey(run string) string {
	return fmt.Sprintf("caprock:%s:provenance", run)
}

// SessionKey returns the Redis key for the run's session record.
// Pattern: caprock:{run}:session
func SessionKey(run string) string {
	return fmt.Sprintf("caprock:%s:session", run)
}

// ArtifactEventsChannel returns the Pub/Sub channel name for artifact events.
// Every successful artifact write publishes the full artifact JSON here.
// Pattern: caprock:{run}:artifact_events
func ArtifactEventsChannel(run string) string {
	return fmt.Sprintf("caprock:%s:artifact_events", run)
}
