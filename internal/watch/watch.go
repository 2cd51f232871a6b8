// Package watch follows a run's artifact event channel, printing one line
// per persisted artifact as pipeline stages complete.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/caprock-sim/caprock/pkg/runstore"
)

// Stream subscribes to the run's artifact events and writes one line per
// event to w until the context is cancelled. Events that fail to decode are
// reported inline and skipped.
func Stream(ctx context.Context, store *runstore.Client, w io.Writer) error {
	sub, err := store.SubscribeArtifactEvents(ctx)
	if err != nil {
		return err
	}
	defer sub.Close()

	fmt.Fprintf(w, "Watching run '%s' (Ctrl+C to stop)...\n", store.Run())

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil

		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("event subscription closed unexpectedly")
			}

			var artifact runstore.Artifact
			if err := json.Unmarshal([]byte(msg.Payload), &artifact); err != nil {
				fmt.Fprintf(w, "skipping malformed event: %v\n", err)
				continue
			}

			fmt.Fprintf(w, "%s  %-20s group=%-10s stage=%s\n",
				time.UnixMilli(artifact.CreatedAtMs).Format("15:04:05"),
				artifact.Name, artifact.Group, artifact.ProducerStage)
		}
	}
}

// WaitForArtifact polls the store until the named artifact appears or the
// timeout elapses. Polls every 200ms. Useful for scripting against a
// pipeline whose stages run in separate processes.
func WaitForArtifact(ctx context.Context, store *runstore.Client, name string, timeout time.Duration) (*runstore.Artifact, error) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	timeoutCh := time.After(timeout)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-timeoutCh:
			return nil, fmt.Errorf("timeout waiting for artifact %q after %v", name, timeout)

		case <-ticker.C:
			artifact, err := store.GetArtifact(ctx, name)
			if err != nil {
				if runstore.IsArtifactMissing(err) {
					continue
				}
				return nil, fmt.Errorf("failed to query for artifact: %w", err)
			}

			return artifact, nil
		}
	}
}
