package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// UnboundedConcurrency is the concurrency value benchmark jobs use for an
// unbounded (saturating) client. Anything at or above it is rendered as "inf".
const UnboundedConcurrency = 9999

// UnboundedLabel is how an unbounded concurrency level is displayed
const UnboundedLabel = "inf"

// BenchmarkRecord is one benchmark configuration measured in one CI run.
// TPOT is stored in milliseconds; every other latency is in seconds.
type BenchmarkRecord struct {
	Model            string  `json:"model"`
	Hardware         string  `json:"hardware"`
	Framework        string  `json:"framework"`
	Precision        string  `json:"precision"`
	ISL              int     `json:"isl"`
	OSL              int     `json:"osl"`
	TP               int     `json:"tp"`
	EP               int     `json:"ep"`
	DPAttention      bool    `json:"dpAttention"`
	Concurrency      int     `json:"concurrency"`
	TTFT             float64 `json:"ttft"`
	TPOT             float64 `json:"tpot"`
	Interactivity    float64 `json:"interactivity"`
	E2EL             float64 `json:"e2el"`
	TputPerGPU       float64 `json:"tputPerGpu"`
	OutputTputPerGPU float64 `json:"outputTputPerGpu"`
	InputTputPerGPU  float64 `json:"inputTputPerGpu"`
	RunDate          string  `json:"runDate"`
	RunID            string  `json:"runId"`
	CommitSHA        string  `json:"commitSha,omitempty"`
}

// IsUnbounded reports whether the record was measured without a concurrency cap.
func (r BenchmarkRecord) IsUnbounded() bool {
	return r.Concurrency >= UnboundedConcurrency
}

// ConcurrencyLabel returns the display form of the concurrency level.
func (r BenchmarkRecord) ConcurrencyLabel() string {
	if r.IsUnbounded() {
		return UnboundedLabel
	}
	return strconv.Itoa(r.Concurrency)
}

// ConfigKey identifies the benchmark configuration a record belongs to, so
// records from different runs can be grouped into one time series.
func (r BenchmarkRecord) ConfigKey() string {
	return strings.Join([]string{
		r.Model,
		r.Hardware,
		r.Framework,
		r.Precision,
		fmt.Sprintf("tp%d", r.TP),
		"conc" + r.ConcurrencyLabel(),
	}, "|")
}

// WorkflowRun is a successful GitHub Actions run of a benchmark workflow
type WorkflowRun struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	CreatedAt  string `json:"created_at"`
	Conclusion string `json:"conclusion"`
	HTMLURL    string `json:"html_url"`
	HeadSHA    string `json:"head_sha"`
	RunNumber  int    `json:"run_number"`
}

// CreatedTime parses the run's ISO 8601 creation timestamp.
func (r WorkflowRun) CreatedTime() (time.Time, error) {
	return time.Parse(time.RFC3339, r.CreatedAt)
}

// RunDate returns the creation date truncated to the day (YYYY-MM-DD).
func (r WorkflowRun) RunDate() string {
	if i := strings.IndexByte(r.CreatedAt, 'T'); i >= 0 {
		return r.CreatedAt[:i]
	}
	return r.CreatedAt
}

// CacheEntry is the unit stored by both cache tiers
type CacheEntry struct {
	Data      []BenchmarkRecord `json:"data"`
	Runs      []WorkflowRun     `json:"runs"`
	Timestamp time.Time         `json:"timestamp"`
	Workflow  string            `json:"workflow"`
	Days      int               `json:"days"`
}

// Age returns how long ago the entry was built.
func (e *CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.Timestamp)
}

// RunsSince returns the runs created on or after cutoff, in their original order.
// Runs whose timestamp cannot be parsed are dropped.
func RunsSince(runs []WorkflowRun, cutoff time.Time) []WorkflowRun {
	out := make([]WorkflowRun, 0, len(runs))
	for _, r := range runs {
		created, err := r.CreatedTime()
		if err != nil {
			continue
		}
		if !created.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out
}
