// Package batch runs many independent power-flow solves on a worker pool:
// time-series steps, Monte-Carlo realizations, contingency scans. Each job
// is an independent unit of work with no shared mutable state; results are
// indexed back to the originating scenario.
package batch

import (
	"context"
	"runtime"
	"sync"

	"github.com/edp1096/gridflow/pkg/grid"
	"github.com/edp1096/gridflow/pkg/powerflow"
)

// Job is one solve. Index must be unique within a batch and in
// [0, len(jobs)). The circuit must not be shared mutably with other jobs;
// apply contingencies to a private copy before submitting.
type Job struct {
	Index   int
	Circuit *grid.NumericalCircuit
	Options powerflow.Options
}

// Outcome pairs a job index with its result. Err is set when the solve
// could not start (invalid shapes, no such backend) or the job was
// cancelled; non-convergence is reported inside Results, not here.
type Outcome struct {
	Index   int
	Results *powerflow.Results
	Err     error
}

// Runner executes jobs on Workers goroutines (NumCPU when zero).
type Runner struct {
	Workers int
}

// Run executes all jobs and returns the outcomes ordered by job Index.
// Cancellation is checked between units of work: jobs not yet started when
// ctx is done come back with ctx.Err().
func (r Runner) Run(ctx context.Context, jobs []Job) []Outcome {
	workers := r.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	in := make(chan Job)
	out := make([]Outcome, len(jobs))
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range in {
				res, err := powerflow.Run(job.Circuit, job.Options)
				out[job.Index] = Outcome{Index: job.Index, Results: res, Err: err}
			}
		}()
	}

	cancelled := false
	for _, job := range jobs {
		if !cancelled {
			select {
			case <-ctx.Done():
				cancelled = true
			default:
			}
		}
		if !cancelled {
			select {
			case <-ctx.Done():
				cancelled = true
			case in <- job:
				continue
			}
		}
		out[job.Index] = Outcome{Index: job.Index, Err: ctx.Err()}
	}
	close(in)
	wg.Wait()
	return out
}
