package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/inferencemax/dashboard/pkg/benchmarks"
	"github.com/inferencemax/dashboard/pkg/workflows"
)

// A live fetch walks up to 30 runs with hundreds of artifacts each.
const defaultTimeout = 15 * time.Minute

// Client wraps HTTP calls to the dashboard API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client targeting the given base URL (e.g. "http://localhost:8080").
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// Query selects benchmark data.
type Query struct {
	Days     int
	Workflow string
	Refresh  bool
}

// WorkflowList is the response of GET /api/workflows.
type WorkflowList struct {
	Workflows []workflows.Workflow `json:"workflows"`
	Default   string               `json:"default"`
}

// Benchmarks queries GET /api/benchmarks.
func (c *Client) Benchmarks(ctx context.Context, q Query) (*benchmarks.Result, error) {
	params := url.Values{}
	if q.Days > 0 {
		params.Set("days", strconv.Itoa(q.Days))
	}
	if q.Workflow != "" {
		params.Set("workflow", q.Workflow)
	}
	if q.Refresh {
		params.Set("refresh", "true")
	}

	u := c.baseURL + "/api/benchmarks"
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var res benchmarks.Result
	if err := c.doGet(ctx, u, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Workflows queries GET /api/workflows.
func (c *Client) Workflows(ctx context.Context) (*WorkflowList, error) {
	var list WorkflowList
	if err := c.doGet(ctx, c.baseURL+"/api/workflows", &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *Client) doGet(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func readError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var apiErr struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
		if apiErr.Details != "" {
			return fmt.Errorf("API error %d: %s: %s", resp.StatusCode, apiErr.Error, apiErr.Details)
		}
		return fmt.Errorf("API error %d: %s", resp.StatusCode, apiErr.Error)
	}
	return fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
}
