package benchmarks

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/inferencemax/dashboard/pkg/github"
	"github.com/inferencemax/dashboard/pkg/metrics"
	"github.com/inferencemax/dashboard/pkg/models"
)

// Artifact extraction strategies, also used as metric labels.
const (
	StrategyAggregated = "aggregated"
	StrategyPerConfig  = "per-config"
)

const aggregatedPrefix = "results_"

// Per-config artifacts are named like dsr1_1k1k_fp8_sglang_tp8_...; a name
// must carry one model token and one framework token to be downloaded.
var (
	perConfigModelTokens     = []string{"dsr1_", "gptoss_", "llama_", "qwen_"}
	perConfigFrameworkTokens = []string{"_sglang_", "_vllm_", "_trt_", "_dynamo"}
)

// ActionsAPI is the subset of the GitHub client the fetcher depends on.
type ActionsAPI interface {
	ListWorkflowRuns(ctx context.Context, workflow string, maxPages int) ([]models.WorkflowRun, error)
	ListRunArtifacts(ctx context.Context, runID int64) ([]github.Artifact, error)
	DownloadArtifact(ctx context.Context, artifactID int64) (string, error)
}

var _ ActionsAPI = (*github.Client)(nil)

// Options bounds how much upstream work one fetch does.
type Options struct {
	MaxRuns          int           // runs processed per fetch
	ShortWindowPages int           // run pages read for windows up to LongWindowDays
	LongWindowPages  int           // run pages read for longer windows
	LongWindowDays   int
	RunDelay         time.Duration // pause between runs
	BatchSize        int           // concurrent per-config downloads
	BatchDelay       time.Duration // pause between download batches
}

// DefaultOptions returns the limits used in production.
func DefaultOptions() Options {
	return Options{
		MaxRuns:          30,
		ShortWindowPages: 5,
		LongWindowPages:  10,
		LongWindowDays:   60,
		RunDelay:         100 * time.Millisecond,
		BatchSize:        20,
		BatchDelay:       100 * time.Millisecond,
	}
}

// Fetcher turns workflow runs into benchmark records.
type Fetcher struct {
	api     ActionsAPI
	opts    Options
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewFetcher creates a Fetcher. Zero-valued limits in opts fall back to
// DefaultOptions; delays are used as given so tests can disable them.
func NewFetcher(api ActionsAPI, opts Options, m *metrics.Metrics) *Fetcher {
	def := DefaultOptions()
	if opts.MaxRuns <= 0 {
		opts.MaxRuns = def.MaxRuns
	}
	if opts.ShortWindowPages <= 0 {
		opts.ShortWindowPages = def.ShortWindowPages
	}
	if opts.LongWindowPages <= 0 {
		opts.LongWindowPages = def.LongWindowPages
	}
	if opts.LongWindowDays <= 0 {
		opts.LongWindowDays = def.LongWindowDays
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = def.BatchSize
	}
	return &Fetcher{api: api, opts: opts, metrics: m, now: time.Now}
}

type artifactResult struct {
	records []models.BenchmarkRecord
	err     error
}

// ProcessRun extracts the benchmark records of one run. Aggregated
// "results_" artifacts are used exclusively when the run has any; otherwise
// the per-config artifacts are downloaded in concurrent batches. Artifacts
// that fail to download or parse contribute no records.
func (f *Fetcher) ProcessRun(ctx context.Context, run models.WorkflowRun) ([]models.BenchmarkRecord, error) {
	prov := ProvenanceOf(run)
	log.Printf("[Fetcher] Processing run %d (%s)", run.ID, prov.RunDate)

	artifacts, err := f.api.ListRunArtifacts(ctx, run.ID)
	if err != nil {
		if len(artifacts) == 0 {
			return nil, fmt.Errorf("failed to list artifacts of run %d: %w", run.ID, err)
		}
		log.Printf("[Fetcher] Run %d: continuing with %d artifacts after listing error: %v", run.ID, len(artifacts), err)
	}
	if len(artifacts) == 0 {
		return nil, nil
	}

	if aggregated := filterArtifacts(artifacts, isAggregated); len(aggregated) > 0 {
		log.Printf("[Fetcher] Run %d: using %d aggregated result artifacts", run.ID, len(aggregated))
		var records []models.BenchmarkRecord
		for _, a := range aggregated {
			res := f.extract(ctx, StrategyAggregated, a, prov)
			records = append(records, res.records...)
		}
		log.Printf("[Fetcher] Run %d: got %d records from aggregated artifacts", run.ID, len(records))
		return records, nil
	}

	perConfig := filterArtifacts(artifacts, isPerConfig)
	log.Printf("[Fetcher] Run %d: parsing %d per-config artifacts", run.ID, len(perConfig))

	var records []models.BenchmarkRecord
	for start := 0; start < len(perConfig); start += f.opts.BatchSize {
		end := min(start+f.opts.BatchSize, len(perConfig))
		records = append(records, f.extractBatch(ctx, perConfig[start:end], prov)...)

		if end < len(perConfig) {
			if err := sleepCtx(ctx, f.opts.BatchDelay); err != nil {
				return records, err
			}
		}
	}
	log.Printf("[Fetcher] Run %d: got %d records from per-config artifacts", run.ID, len(records))
	return records, nil
}

// extractBatch downloads a batch concurrently. Each task writes its own slot,
// so results are concatenated in batch order regardless of completion order.
func (f *Fetcher) extractBatch(ctx context.Context, batch []github.Artifact, prov Provenance) []models.BenchmarkRecord {
	results := make([]artifactResult, len(batch))

	// No WithContext: one failed download must not cancel its siblings.
	var g errgroup.Group
	for i, a := range batch {
		g.Go(func() error {
			results[i] = f.extract(ctx, StrategyPerConfig, a, prov)
			return nil
		})
	}
	_ = g.Wait()

	var records []models.BenchmarkRecord
	failed := 0
	for _, res := range results {
		if res.err != nil {
			failed++
		}
		records = append(records, res.records...)
	}
	if failed > 0 {
		log.Printf("[Fetcher] %d of %d downloads in batch failed", failed, len(batch))
	}
	return records
}

func (f *Fetcher) extract(ctx context.Context, strategy string, a github.Artifact, prov Provenance) artifactResult {
	content, err := f.api.DownloadArtifact(ctx, a.ID)
	if err != nil {
		log.Printf("[Fetcher] Skipping artifact %s (%d): %v", a.Name, a.ID, err)
		f.metrics.ArtifactDownload(strategy, metrics.ResultError)
		return artifactResult{err: err}
	}

	records := ParseArtifact(content, prov)
	if len(records) == 0 {
		log.Printf("[Fetcher] Artifact %s (%d) held no usable records: %s", a.Name, a.ID, compactJSON(content, 200))
		f.metrics.ArtifactDownload(strategy, "empty")
		return artifactResult{}
	}
	f.metrics.ArtifactDownload(strategy, "ok")
	return artifactResult{records: records}
}

func filterArtifacts(artifacts []github.Artifact, keep func(string) bool) []github.Artifact {
	var out []github.Artifact
	for _, a := range artifacts {
		if keep(a.Name) {
			out = append(out, a)
		}
	}
	return out
}

func isAggregated(name string) bool {
	return strings.HasPrefix(name, aggregatedPrefix)
}

func isPerConfig(name string) bool {
	lower := strings.ToLower(name)
	return containsAny(lower, perConfigModelTokens) && containsAny(lower, perConfigFrameworkTokens)
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// sleepCtx pauses for d, returning early with ctx's error if it is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
