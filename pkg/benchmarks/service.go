package benchmarks

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/inferencemax/dashboard/pkg/metrics"
	"github.com/inferencemax/dashboard/pkg/models"
	"github.com/inferencemax/dashboard/pkg/notifications"
	"github.com/inferencemax/dashboard/pkg/workflows"
)

// DefaultDays is the window used when a request does not name one.
const DefaultDays = 30

// isoMillis matches the timestamps the dashboard UI produces and parses.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// ErrorKind classifies a failed request.
type ErrorKind string

const (
	ErrKindUnauthorized ErrorKind = "unauthorized"
	ErrKindInvalid      ErrorKind = "invalid"
	ErrKindFetch        ErrorKind = "fetch"
)

// RequestError is the structured failure returned by Service.Handle.
type RequestError struct {
	Kind    ErrorKind
	Message string
	Details string
	Err     error
}

func (e *RequestError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Request is one query for benchmark data.
type Request struct {
	Days         int
	Workflow     string
	ForceRefresh bool
}

// DateRange is the window a result covers.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Result is a successful answer to a Request.
type Result struct {
	Data      []models.BenchmarkRecord `json:"data"`
	Runs      []models.WorkflowRun     `json:"runs"`
	Total     int                      `json:"total"`
	RunsCount int                      `json:"runsCount"`
	Workflow  string                   `json:"workflow"`
	Cached    bool                     `json:"cached"`
	CacheAge  *int                     `json:"cacheAge,omitempty"` // minutes
	DateRange DateRange                `json:"dateRange"`
}

// LiveFetcher performs an uncached fetch.
type LiveFetcher interface {
	Fetch(ctx context.Context, days int, workflow string) (*FetchResult, error)
}

// WorkflowSource supplies the workflow used when a request names none and
// tells known workflows from ad-hoc ones.
type WorkflowSource interface {
	Default() string
	Lookup(file string) (workflows.Workflow, bool)
}

// ServiceConfig configures a Service.
type ServiceConfig struct {
	// TokenConfigured is false when no CI provider token is available; every
	// request is then rejected as unauthorized.
	TokenConfigured bool
	DefaultDays     int
	Workflows       WorkflowSource
	Notifier        notifications.Notifier
	Metrics         *metrics.Metrics
}

// Service answers benchmark queries from the cache, falling back to a live fetch.
type Service struct {
	fetcher  LiveFetcher
	cache    *Cache
	cfg      ServiceConfig
	now      func() time.Time
	alerting chan struct{}
}

// NewService creates a Service.
func NewService(fetcher LiveFetcher, cache *Cache, cfg ServiceConfig) *Service {
	if cfg.DefaultDays <= 0 {
		cfg.DefaultDays = DefaultDays
	}
	if cfg.Workflows == nil {
		cfg.Workflows = workflows.NewCatalog()
	}
	return &Service{
		fetcher:  fetcher,
		cache:    cache,
		cfg:      cfg,
		now:      time.Now,
		alerting: make(chan struct{}, 1),
	}
}

// Handle resolves defaults, serves fresh cached data when allowed and
// otherwise runs a live fetch and caches its result. Failures are returned as
// *RequestError.
func (s *Service) Handle(ctx context.Context, req Request) (*Result, error) {
	if !s.cfg.TokenConfigured {
		return nil, &RequestError{Kind: ErrKindUnauthorized, Message: "GITHUB_TOKEN not configured"}
	}

	days := req.Days
	if days <= 0 {
		days = s.cfg.DefaultDays
	}
	workflow := req.Workflow
	if workflow == "" {
		workflow = s.cfg.Workflows.Default()
	}
	if !workflows.ValidFile(workflow) {
		return nil, &RequestError{Kind: ErrKindInvalid, Message: "Invalid workflow", Details: workflow}
	}

	if !req.ForceRefresh {
		if entry, ok := s.cache.Get(workflow, days); ok {
			now := s.now()
			cutoff := now.AddDate(0, 0, -days)
			runs := models.RunsSince(entry.Runs, cutoff)
			age := int(math.Round(entry.Age(now).Minutes()))
			log.Printf("[API] Serving %s/%dd from cache (%d records, %d min old)", workflow, days, len(entry.Data), age)
			return &Result{
				Data:      entry.Data,
				Runs:      runs,
				Total:     len(entry.Data),
				RunsCount: len(runs),
				Workflow:  workflow,
				Cached:    true,
				CacheAge:  &age,
				DateRange: dateRange(cutoff, now),
			}, nil
		}
	}

	return s.fetchLive(ctx, workflow, days)
}

func (s *Service) fetchLive(ctx context.Context, workflow string, days int) (result *Result, err error) {
	fetchID := uuid.NewString()
	start := time.Now()
	log.Printf("[API] Fetching fresh data from GitHub for %s (%d days), fetch %s", workflow, days, fetchID)

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[API] Fetch %s panicked: %v", fetchID, r)
			result, err = nil, s.fetchFailed(fetchID, workflow, days, fmt.Errorf("panic: %v", r))
		}
	}()

	label := s.metricLabel(workflow)
	res, err := s.fetcher.Fetch(ctx, days, workflow)
	s.cfg.Metrics.ObserveFetch(label, start)
	if err != nil {
		return nil, s.fetchFailed(fetchID, workflow, days, err)
	}
	s.cfg.Metrics.Records(label, len(res.Records))

	now := s.now()
	cutoff := now.AddDate(0, 0, -days)
	runs := models.RunsSince(res.Runs, cutoff)

	entry := s.cache.Set(workflow, days, res.Records, res.Runs)
	log.Printf("[API] Fetch %s done in %s: %d records, %d runs in range", fetchID, time.Since(start).Round(time.Millisecond), len(entry.Data), len(runs))

	return &Result{
		Data:      entry.Data,
		Runs:      runs,
		Total:     len(entry.Data),
		RunsCount: len(runs),
		Workflow:  workflow,
		Cached:    false,
		DateRange: dateRange(cutoff, now),
	}, nil
}

// metricLabel maps workflow to a catalog file, or OtherWorkflow when the
// request named a workflow outside the catalog.
func (s *Service) metricLabel(workflow string) string {
	if w, ok := s.cfg.Workflows.Lookup(workflow); ok {
		return w.File
	}
	return metrics.OtherWorkflow
}

func (s *Service) fetchFailed(fetchID, workflow string, days int, cause error) *RequestError {
	log.Printf("[API] Error fetching benchmark data (fetch %s): %v", fetchID, cause)
	reqErr := &RequestError{
		Kind:    ErrKindFetch,
		Message: "Failed to fetch benchmark data",
		Details: cause.Error(),
		Err:     cause,
	}
	s.alert(notifications.Alert{
		Title:    "Benchmark fetch failed",
		Message:  reqErr.Message,
		Severity: notifications.SeverityWarning,
		Workflow: workflow,
		Days:     days,
		FetchID:  fetchID,
		Details:  reqErr.Details,
		FiredAt:  s.now(),
	})
	return reqErr
}

// alert sends in the background. At most one alert is in flight; alerts
// raised meanwhile are dropped so a failing upstream cannot pile up senders.
func (s *Service) alert(a notifications.Alert) {
	if s.cfg.Notifier == nil {
		return
	}
	select {
	case s.alerting <- struct{}{}:
	default:
		log.Printf("[API] Dropping alert for fetch %s, previous alert still sending", a.FetchID)
		return
	}
	go func() {
		defer func() { <-s.alerting }()
		if err := s.cfg.Notifier.Send(a); err != nil {
			log.Printf("[API] Failed to send fetch alert: %v", err)
		}
	}()
}

func dateRange(start, end time.Time) DateRange {
	return DateRange{
		Start: start.UTC().Format(isoMillis),
		End:   end.UTC().Format(isoMillis),
	}
}
