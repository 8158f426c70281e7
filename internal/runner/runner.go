// Package runner applies a manifest of jobs with a bounded pool of workers and
// streams per-file progress as events.
package runner

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Digital-Shane/autotag/internal/core"
	"github.com/Digital-Shane/autotag/internal/media"
)

// Processor handles a single file. *core.Writer satisfies it.
type Processor interface {
	Process(ctx context.Context, path string, rec *media.Record, r core.Reporter) core.Result
}

// EventKind identifies what an Event reports.
type EventKind int

const (
	// EventStarted is sent when a worker picks up a job.
	EventStarted EventKind = iota
	// EventStatus carries one status message for a job.
	EventStatus
	// EventPath reports a job's file moved to NewPath.
	EventPath
	// EventDone is sent once per job with its Result.
	EventDone
)

// Event is one progress notification. Index is the job's manifest position.
type Event struct {
	Kind     EventKind
	Index    int
	Path     string
	Message  string
	Severity core.Severity
	NewPath  string
	Result   core.Result
}

// Summary aggregates the results of a run. Results are in manifest order.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	Results   []core.Result
}

// Runner processes jobs concurrently.
type Runner struct {
	proc    Processor
	workers int
}

// New returns a Runner with at most workers files in flight.
func New(proc Processor, workers int) *Runner {
	if workers <= 0 {
		workers = 1
	}
	return &Runner{proc: proc, workers: workers}
}

// Run processes every job and closes events, if non-nil, when finished. Jobs
// not started before ctx is cancelled are counted as skipped.
func (r *Runner) Run(ctx context.Context, jobs []media.Job, events chan<- Event) Summary {
	if events != nil {
		defer close(events)
	}

	results := make([]core.Result, len(jobs))
	started := make([]bool, len(jobs))
	var mu sync.Mutex

	emit := func(ev Event) {
		if events == nil {
			return
		}
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}

	g := new(errgroup.Group)
	g.SetLimit(r.workers)

	for i, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			mu.Lock()
			started[i] = true
			mu.Unlock()

			emit(Event{Kind: EventStarted, Index: i, Path: job.Path})
			reporter := core.ReporterFuncs{
				Path: func(p string) {
					emit(Event{Kind: EventPath, Index: i, Path: job.Path, NewPath: p})
				},
				Status: func(msg string, sev core.Severity) {
					emit(Event{Kind: EventStatus, Index: i, Path: job.Path, Message: msg, Severity: sev})
				},
			}

			res := r.proc.Process(ctx, job.Path, job.Record, reporter)
			results[i] = res
			emit(Event{Kind: EventDone, Index: i, Path: job.Path, Result: res})
			return nil
		})
	}
	_ = g.Wait()

	sum := Summary{Total: len(jobs), Results: results}
	for i, res := range results {
		switch {
		case !started[i]:
			sum.Skipped++
			sum.Results[i] = core.Result{Path: jobs[i].Path, Err: context.Cause(ctx)}
		case res.OK():
			sum.Succeeded++
		default:
			sum.Failed++
		}
	}
	return sum
}
