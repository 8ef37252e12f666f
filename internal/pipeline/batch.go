package pipeline

import (
	"context"
	"log"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c0d3rb4b4/image-optimizer/internal/entities"
)

// Orchestrator fans a batch out over a bounded worker pool and collects the
// per-item results back in submission order.
type Orchestrator struct {
	pipeline *Pipeline
	workers  int
	timeout  time.Duration
}

// NewOrchestrator wraps p with a worker pool. workers <= 0 means one worker
// per CPU; timeout <= 0 disables the per-request ceiling.
func NewOrchestrator(p *Pipeline, workers int, timeout time.Duration) *Orchestrator {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Orchestrator{pipeline: p, workers: workers, timeout: timeout}
}

// Process runs a single input under the same per-request ceiling the batch
// path gets.
func (o *Orchestrator) Process(ctx context.Context, in entities.RawInput, spec entities.TargetSpec) entities.Result {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	return o.pipeline.Process(ctx, in, spec)
}

// RunBatch processes every input independently; one item failing never
// aborts its siblings. Results[i] always belongs to inputs[i] no matter
// which worker finished first. When the request ceiling expires, unfinished
// items are reported as timeouts while items already written stay written.
func (o *Orchestrator) RunBatch(ctx context.Context, inputs []entities.RawInput, spec entities.TargetSpec) entities.BatchSummary {
	results := make([]entities.Result, len(inputs))
	if len(inputs) == 0 {
		return entities.Summarize(results)
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	g := new(errgroup.Group)
	g.SetLimit(o.workers)
	for i := range inputs {
		i := i
		g.Go(func() error {
			results[i] = o.pipeline.Process(ctx, inputs[i], spec)
			return nil
		})
	}
	_ = g.Wait()

	summary := entities.Summarize(results)
	log.Printf("[batch] done: total=%d processed=%d failed=%d", len(inputs), summary.Processed, summary.Failed)
	return summary
}
