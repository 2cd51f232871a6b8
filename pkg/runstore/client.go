package runstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// Client provides run-scoped Redis operations for the run store.
// All keys and channels are automatically namespaced with the run name.
// The client is safe for concurrent use from multiple goroutines.
type Client struct {
	rdb *redis.Client
	run string
}

// NewClient creates a new run store client for the specified run.
//
// Parameters:
//   - redisOpts: Redis connection options (address, password, DB, etc.)
//   - run: run identifier (must not be empty)
//
// Returns an error if run is empty.
func NewClient(redisOpts *redis.Options, run string) (*Client, error) {
	if run == "" {
		return nil, fmt.Errorf("run name cannot be empty")
	}

	return &Client{
		rdb: redis.NewClient(redisOpts),
		run: run,
	}, nil
}

// Run returns the run name this client is scoped to.
func (c *Client) Run() string {
	return c.run
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// PutArtifact writes an artifact to the run store, appends a provenance
// record, and publishes an artifact event.
//
// Fails with ArtifactConflictError if the name already exists for this run
// and was written by a different producer stage. A re-put by the same
// producer replaces the payload (stages may only ever write the names they
// own, so this is a same-owner overwrite, not a cross-stage one).
func (c *Client) PutArtifact(ctx context.Context, a *Artifact) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("invalid artifact: %w", err)
	}

	// Ownership check: the index records which group (and therefore key) a
	// name resolves to; the stored hash records the owning producer.
	existing, err := c.GetArtifact(ctx, a.Name)
	if err != nil && !IsArtifactMissing(err) {
		return err
	}
	if existing != nil && existing.ProducerStage != a.ProducerStage {
		return &ArtifactConflictError{
			Name:      a.Name,
			Owner:     existing.ProducerStage,
			Attempted: a.ProducerStage,
		}
	}

	hash, err := ArtifactToHash(a)
	if err != nil {
		return fmt.Errorf("failed to serialize artifact: %w", err)
	}

	key := ArtifactKey(c.run, a.Group, a.Name)
	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, key, hash)
	pipe.HSet(ctx, ArtifactIndexKey(c.run), a.Name, string(a.Group))

	record := ProvenanceRecord{
		ID:            a.ID,
		Name:          a.Name,
		ProducerStage: a.ProducerStage,
		CreatedAtMs:   a.CreatedAtMs,
	}
	recordJSON, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal provenance record: %w", err)
	}
	pipe.RPush(ctx, ProvenanceKey(c.run), recordJSON)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write artifact to Redis: %w", err)
	}

	artifactJSON, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact for event: %w", err)
	}

	channel := ArtifactEventsChannel(c.run)
	if err := c.rdb.Publish(ctx, channel, artifactJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish artifact event: %w", err)
	}

	return nil
}

// GetArtifact retrieves an artifact by name.
// Returns ArtifactMissingError if the artifact has not been written.
func (c *Client) GetArtifact(ctx context.Context, name string) (*Artifact, error) {
	group, err := c.rdb.HGet(ctx, ArtifactIndexKey(c.run), name).Result()
	if err == redis.Nil {
		return nil, &ArtifactMissingError{Name: name}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve artifact %q: %w", name, err)
	}

	key := ArtifactKey(c.run, Group(group), name)
	hashData, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %q from Redis: %w", name, err)
	}

	// HGetAll returns an empty map for non-existent keys
	if len(hashData) == 0 {
		return nil, &ArtifactMissingError{Name: name}
	}

	artifact, err := HashToArtifact(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize artifact %q: %w", name, err)
	}

	return artifact, nil
}

// ArtifactExists checks if an artifact exists without fetching its payload.
func (c *Client) ArtifactExists(ctx context.Context, name string) (bool, error) {
	exists, err := c.rdb.HExists(ctx, ArtifactIndexKey(c.run), name).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check artifact existence: %w", err)
	}
	return exists, nil
}

// ListArtifacts returns every artifact written for this run, ordered by
// creation time (oldest first).
func (c *Client) ListArtifacts(ctx context.Context) ([]*Artifact, error) {
	index, err := c.rdb.HGetAll(ctx, ArtifactIndexKey(c.run)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact index: %w", err)
	}

	artifacts := make([]*Artifact, 0, len(index))
	for name := range index {
		a, err := c.GetArtifact(ctx, name)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, a)
	}

	sort.Slice(artifacts, func(i, j int) bool {
		if artifacts[i].CreatedAtMs != artifacts[j].CreatedAtMs {
			return artifacts[i].CreatedAtMs < artifacts[j].CreatedAtMs
		}
		return artifacts[i].Name < artifacts[j].Name
	})

	return artifacts, nil
}

// Provenance returns the run's append-only provenance log in write order.
func (c *Client) Provenance(ctx context.Context) ([]ProvenanceRecord, error) {
	entries, err := c.rdb.LRange(ctx, ProvenanceKey(c.run), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read provenance log: %w", err)
	}

	records := make([]ProvenanceRecord, 0, len(entries))
	for i, entry := range entries {
		var record ProvenanceRecord
		if err := json.Unmarshal([]byte(entry), &record); err != nil {
			return nil, fmt.Errorf("corrupt provenance record at index %d: %w", i, err)
		}
		records = append(records, record)
	}

	return records, nil
}

// CreateSession persists the run's session record. The write is guarded with
// SETNX: the record is created exactly once per run, and a second attempt
// fails with AlreadyInitializedError.
func (c *Client) CreateSession(ctx context.Context, s *Session) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid session: %w", err)
	}

	sessionJSON, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	set, err := c.rdb.SetNX(ctx, SessionKey(c.run), sessionJSON, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to write session to Redis: %w", err)
	}
	if !set {
		return &AlreadyInitializedError{Run: c.run}
	}

	return nil
}

// GetSessionRaw retrieves the persisted session record as raw JSON.
// Returns SessionNotFoundError if no session exists for the run.
// Callers that need structural validation (the session registry) operate on
// the raw bytes before decoding.
func (c *Client) GetSessionRaw(ctx context.Context) ([]byte, error) {
	data, err := c.rdb.Get(ctx, SessionKey(c.run)).Bytes()
	if err == redis.Nil {
		return nil, &SessionNotFoundError{Run: c.run}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session from Redis: %w", err)
	}
	return data, nil
}

// SubscribeArtifactEvents subscribes to the run's artifact event channel.
// The caller is responsible for closing the returned PubSub.
func (c *Client) SubscribeArtifactEvents(ctx context.Context) (*redis.PubSub, error) {
	sub := c.rdb.Subscribe(ctx, ArtifactEventsChannel(c.run))

	// Confirm the subscription is established before returning
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("failed to subscribe to artifact events: %w", err)
	}

	return sub, nil
}
