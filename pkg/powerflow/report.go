package powerflow

import "time"

// ReportEntry records one method attempt on one island.
type ReportEntry struct {
	Island     int
	Method     string
	Converged  bool
	Error      float64
	Iterations int
	Elapsed    time.Duration
	Trace      []float64 // mismatch norm per iteration, for plotting
}

// ConvergenceReport collects every attempt across islands and retries, in
// execution order. It exists for diagnosis: the orchestrator never hides a
// failed attempt behind a later successful one.
type ConvergenceReport struct {
	Entries []ReportEntry
}

func (r *ConvergenceReport) add(island int, method string, sol Solution) {
	r.Entries = append(r.Entries, ReportEntry{
		Island:     island,
		Method:     method,
		Converged:  sol.Converged,
		Error:      sol.Error,
		Iterations: sol.Iterations,
		Elapsed:    sol.Elapsed,
		Trace:      sol.Trace,
	})
}
