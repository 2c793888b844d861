package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/ogglobi/audiolox/internal/models"
)

// performHandoff is the single-completion-future barrier behind
// StartWithHandoff (spec §4.3/§9): the new pipeline must prove it has
// produced at least one encoded chunk on the given profile within timeout
// before the caller is allowed to retire the old pipeline. On success it
// returns nil and next is ready to take over; on failure next has already
// been retired and the caller must leave old running untouched.
func performHandoff(ctx context.Context, next *pipeline, profile models.Profile, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- next.waitForFirstChunk(ctx, profile, timeout)
	}()

	select {
	case err := <-done:
		if err != nil {
			next.stop(true)
			return fmt.Errorf("engine: handoff barrier failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		next.stop(true)
		return ctx.Err()
	}
}
