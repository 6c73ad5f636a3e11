// Package batch extracts many pages concurrently with a bounded number of
// workers.
package batch

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/maltedev/offer-extractor/internal/models"
	"github.com/maltedev/offer-extractor/internal/sites"
	"golang.org/x/sync/errgroup"
)

// Job is one page to extract.
type Job struct {
	ID   string `json:"id,omitempty"`
	Site string `json:"site"`
	HTML string `json:"html"`
}

// Outcome pairs a job with its result. When Error is set, Result is an
// empty failed result carrying the same diagnostic.
type Outcome struct {
	JobID  string        `json:"job_id"`
	Site   string        `json:"site"`
	Result models.Result `json:"result"`
	Error  string        `json:"error,omitempty"`
}

type Runner struct {
	registry *sites.Registry
	workers  int
	logger   *slog.Logger
}

func NewRunner(registry *sites.Registry, workers int, logger *slog.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		registry: registry,
		workers:  workers,
		logger:   logger.With("component", "batch"),
	}
}

// Run extracts every job and returns outcomes in job order. Jobs without
// an ID get a generated one. Unknown sites fail their own job only; a
// cancelled context stops jobs that have not started yet.
func (r *Runner) Run(ctx context.Context, jobs []Job) ([]Outcome, error) {
	outcomes := make([]Outcome, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i, job := range jobs {
		if job.ID == "" {
			job.ID = uuid.NewString()
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = r.runOne(job)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.logger.Info("batch finished", "jobs", len(jobs), "workers", r.workers)
	return outcomes, nil
}

func (r *Runner) runOne(job Job) Outcome {
	out := Outcome{JobID: job.ID, Site: job.Site}

	e, err := r.registry.Get(job.Site)
	if err != nil {
		out.Error = err.Error()
		out.Result = models.Failed(job.Site, sites.CodeUnknownSite, err.Error())
		return out
	}

	out.Result = e.Extract(job.HTML)
	return out
}
