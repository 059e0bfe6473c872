// Package github is a minimal GitHub Actions REST client covering the endpoints
// the benchmark pipeline reads: workflow runs, run artifacts and artifact archives.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/oauth2"

	"github.com/inferencemax/dashboard/pkg/metrics"
	"github.com/inferencemax/dashboard/pkg/models"
)

const (
	DefaultAPIBase = "https://api.github.com"
	DefaultRepo    = "InferenceMAX/InferenceMAX"

	// PageSize is the per_page value used for every paginated listing.
	PageSize = 100

	apiVersion         = "2022-11-28"
	defaultHTTPTimeout = 60 * time.Second
	errorBodyLimit     = 512
)

// Endpoint names used in logs and metrics.
const (
	EndpointRuns      = "runs"
	EndpointArtifacts = "artifacts"
	EndpointArchive   = "archive"
)

// Config configures a Client.
type Config struct {
	Token    string
	Repo     string // owner/name
	BaseURL  string // API root, without trailing slash
	RetryMax int    // retries for 5xx/429 and transport errors

	// HTTPClient overrides the client used for individual attempts.
	HTTPClient *http.Client
	Metrics    *metrics.Metrics
}

// Client talks to the GitHub Actions API of a single repository.
type Client struct {
	repo    string
	baseURL string
	tokens  oauth2.TokenSource
	http    *http.Client
	metrics *metrics.Metrics
}

// Artifact is the subset of a workflow run artifact the pipeline needs.
type Artifact struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	SizeInBytes        int64  `json:"size_in_bytes"`
	Expired            bool   `json:"expired"`
	ArchiveDownloadURL string `json:"archive_download_url"`
	CreatedAt          string `json:"created_at"`
}

// APIError is returned when GitHub answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Endpoint   string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("GitHub API returned %d for %s: %s", e.StatusCode, e.Endpoint, e.Body)
}

// NewClient creates a Client. Requests are retried by go-retryablehttp and
// authenticated with a static bearer token when one is configured.
func NewClient(cfg Config) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = max(cfg.RetryMax, 0)
	rc.Logger = retryLogger{}
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if cfg.HTTPClient != nil {
		rc.HTTPClient = cfg.HTTPClient
	} else {
		rc.HTTPClient.Timeout = defaultHTTPTimeout
	}

	c := &Client{
		repo:    cfg.Repo,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    rc.StandardClient(),
		metrics: cfg.Metrics,
	}
	if c.repo == "" {
		c.repo = DefaultRepo
	}
	if c.baseURL == "" {
		c.baseURL = DefaultAPIBase
	}
	if cfg.Token != "" {
		c.tokens = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"})
	}
	return c
}

// ListWorkflowRuns pages through the successful runs of workflow, newest first,
// reading at most maxPages pages. It stops early on a short page. On a failed
// request it returns the runs gathered so far together with the error.
func (c *Client) ListWorkflowRuns(ctx context.Context, workflow string, maxPages int) ([]models.WorkflowRun, error) {
	var runs []models.WorkflowRun
	for page := 1; page <= maxPages; page++ {
		endpoint := fmt.Sprintf("%s/repos/%s/actions/workflows/%s/runs?status=success&per_page=%d&page=%d",
			c.baseURL, c.repo, url.PathEscape(workflow), PageSize, page)

		var data struct {
			WorkflowRuns []struct {
				ID         int64  `json:"id"`
				Name       string `json:"name"`
				CreatedAt  string `json:"created_at"`
				Conclusion string `json:"conclusion"`
				HTMLURL    string `json:"html_url"`
				HeadSHA    string `json:"head_sha"`
				RunNumber  int    `json:"run_number"`
			} `json:"workflow_runs"`
		}
		if err := c.getJSON(ctx, EndpointRuns, endpoint, &data); err != nil {
			return runs, fmt.Errorf("failed to list runs of %s (page %d): %w", workflow, page, err)
		}

		for _, r := range data.WorkflowRuns {
			runs = append(runs, models.WorkflowRun{
				ID:         r.ID,
				Name:       r.Name,
				CreatedAt:  r.CreatedAt,
				Conclusion: r.Conclusion,
				HTMLURL:    r.HTMLURL,
				HeadSHA:    r.HeadSHA,
				RunNumber:  r.RunNumber,
			})
		}
		if len(data.WorkflowRuns) < PageSize {
			break
		}
	}
	return runs, nil
}

// ListRunArtifacts pages through every artifact of a run until a short page.
// On a failed request it returns the artifacts gathered so far and the error.
func (c *Client) ListRunArtifacts(ctx context.Context, runID int64) ([]Artifact, error) {
	var artifacts []Artifact
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return artifacts, err
		}
		endpoint := fmt.Sprintf("%s/repos/%s/actions/runs/%d/artifacts?per_page=%d&page=%d",
			c.baseURL, c.repo, runID, PageSize, page)

		var data struct {
			Artifacts []Artifact `json:"artifacts"`
		}
		if err := c.getJSON(ctx, EndpointArtifacts, endpoint, &data); err != nil {
			return artifacts, fmt.Errorf("failed to list artifacts of run %d (page %d): %w", runID, page, err)
		}

		artifacts = append(artifacts, data.Artifacts...)
		if len(data.Artifacts) < PageSize {
			return artifacts, nil
		}
	}
}

func (c *Client) getJSON(ctx context.Context, name, endpoint string, out any) error {
	resp, err := c.get(ctx, name, endpoint)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// get issues an authenticated GET and returns the response when the status is 2xx.
// The caller owns the body.
func (c *Client) get(ctx context.Context, name, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if c.tokens != nil {
		tok, err := c.tokens.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to get token: %w", err)
		}
		// Set on the request, not the transport, so redirects to the
		// artifact storage host do not carry the GitHub token.
		tok.SetAuthHeader(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.UpstreamRequest(name, "error")
		return nil, fmt.Errorf("HTTP error: %w", err)
	}
	c.metrics.UpstreamRequest(name, strconv.Itoa(resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return nil, &APIError{StatusCode: resp.StatusCode, Endpoint: name, Body: string(body)}
	}
	return resp, nil
}

// retryLogger routes retryablehttp's leveled logging into the standard logger.
type retryLogger struct{}

var _ retryablehttp.LeveledLogger = retryLogger{}

func (retryLogger) Error(msg string, kv ...interface{}) { logKV("ERROR", msg, kv) }
func (retryLogger) Warn(msg string, kv ...interface{})  { logKV("WARN", msg, kv) }
func (retryLogger) Info(string, ...interface{})         {}
func (retryLogger) Debug(string, ...interface{})        {}

func logKV(level, msg string, kv []interface{}) {
	var b strings.Builder
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
	}
	log.Printf("[GitHub] %s %s%s", level, msg, b.String())
}
