// Batch driver: steps a Run one batch at a time and yields to the caller
// between batches.
package engine

import (
	"context"
	"log/slog"
)

// BatchProgress describes the state of a run after one batch.
type BatchProgress struct {
	Batch     int // 1-based
	Played    int // matches in this batch
	Completed int // matches played so far
	Total     int
}

// Driver runs a Run to completion. Cancellation and progress reporting happen
// between batches only; a batch itself always runs to the end.
type Driver struct {
	// OnBatch is called after every batch.
	OnBatch func(BatchProgress)
}

// Drive calls run.Next until the run is done or ctx is cancelled.
func (d *Driver) Drive(ctx context.Context, run *Run) error {
	batch := 0
	for !run.Done() {
		if err := ctx.Err(); err != nil {
			slog.Debug("run cancelled", "completed", run.Total()-run.Remaining(), "total", run.Total())
			return err
		}
		played, err := run.Next()
		if err != nil {
			return err
		}
		batch++
		p := BatchProgress{
			Batch:     batch,
			Played:    played,
			Completed: run.Total() - run.Remaining(),
			Total:     run.Total(),
		}
		slog.Debug("batch complete", "batch", p.Batch, "completed", p.Completed, "total", p.Total)
		if d.OnBatch != nil {
			d.OnBatch(p)
		}
	}
	return nil
}
