package ai

import (
	"context"
	"fmt"
	"time"
)

// WaitForOperation re-fetches op every interval until the provider reports it done.
// An operation that finishes with an error is returned as an error.
func WaitForOperation(ctx context.Context, gen VideoGenerator, op *Operation, interval time.Duration) (*Operation, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for !op.Done {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		next, err := gen.GetOperation(ctx, op.Name)
		if err != nil {
			return nil, err
		}
		if next.Name == "" {
			next.Name = op.Name
		}
		op = next
	}

	if op.Error != "" {
		return nil, fmt.Errorf("video generation failed: %s", op.Error)
	}
	return op, nil
}
