package benchmarks

import (
	"context"
	"log"

	"github.com/inferencemax/dashboard/pkg/models"
)

// FetchResult is the outcome of one live fetch.
type FetchResult struct {
	Records []models.BenchmarkRecord
	// Runs is everything the run listing returned, before the date window
	// and run cap were applied.
	Runs []models.WorkflowRun
}

// PagesFor returns how many run pages are read for a window of days.
func (f *Fetcher) PagesFor(days int) int {
	if days > f.opts.LongWindowDays {
		return f.opts.LongWindowPages
	}
	return f.opts.ShortWindowPages
}

// Fetch collects the benchmark records of the most recent successful runs of
// workflow created within the last days days. Listing and per-run failures are
// logged and skipped; only cancellation of ctx ends the fetch early, in which
// case the records gathered so far are returned with ctx's error.
func (f *Fetcher) Fetch(ctx context.Context, days int, workflow string) (*FetchResult, error) {
	log.Printf("[Fetcher] Fetching benchmark data for %d days, workflow: %s", days, workflow)

	runs, err := f.api.ListWorkflowRuns(ctx, workflow, f.PagesFor(days))
	if err != nil {
		log.Printf("[Fetcher] Run listing incomplete, continuing with %d runs: %v", len(runs), err)
	}
	log.Printf("[Fetcher] Found %d total runs", len(runs))

	recent := models.RunsSince(runs, f.now().AddDate(0, 0, -days))
	log.Printf("[Fetcher] %d runs in date range", len(recent))
	if len(recent) > f.opts.MaxRuns {
		recent = recent[:f.opts.MaxRuns]
	}

	result := &FetchResult{Runs: runs}
	for i, run := range recent {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		records, err := f.ProcessRun(ctx, run)
		if err != nil {
			log.Printf("[Fetcher] Error processing run %d: %v", run.ID, err)
		}
		result.Records = append(result.Records, records...)
		f.metrics.RunProcessed()

		if i < len(recent)-1 {
			if err := sleepCtx(ctx, f.opts.RunDelay); err != nil {
				return result, err
			}
		}
	}

	log.Printf("[Fetcher] Total benchmark results: %d", len(result.Records))
	return result, nil
}
