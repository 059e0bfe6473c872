// Package githubtest provides an in-process fake of the GitHub Actions
// endpoints used by the benchmark pipeline.
package githubtest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/inferencemax/dashboard/pkg/github"
	"github.com/inferencemax/dashboard/pkg/models"
)

// Server is a fake GitHub API. Fields may be changed between requests while
// holding no lock as long as no request is in flight.
type Server struct {
	*httptest.Server

	// Runs is served, paginated, for every workflow.
	Runs []models.WorkflowRun
	// EndlessRuns makes every runs page full, regardless of Runs.
	EndlessRuns bool
	// FailRunsPage answers that runs page with a 500 (0 disables).
	FailRunsPage int
	// Artifacts lists the artifacts of each run.
	Artifacts map[int64][]github.Artifact
	// FailArtifacts answers artifact listings of these runs with a 500.
	FailArtifacts map[int64]bool
	// Archives holds the zip body of each artifact. Missing ids answer 410.
	Archives map[int64][]byte

	mu       sync.Mutex
	requests map[string]int
	authSeen []string
}

// NewServer starts a fake API and stops it when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		Artifacts:     map[int64][]github.Artifact{},
		FailArtifacts: map[int64]bool{},
		Archives:      map[int64][]byte{},
		requests:      map[string]int{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/{owner}/{repo}/actions/workflows/{workflow}/runs", s.handleRuns)
	mux.HandleFunc("GET /repos/{owner}/{repo}/actions/runs/{id}/artifacts", s.handleArtifacts)
	mux.HandleFunc("GET /repos/{owner}/{repo}/actions/artifacts/{id}/zip", s.handleArchive)
	mux.HandleFunc("GET /blobs/{id}", s.handleBlob)

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// Requests returns how many requests an endpoint received.
func (s *Server) Requests(endpoint string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[endpoint]
}

// AuthHeaders returns the Authorization headers seen on API requests.
func (s *Server) AuthHeaders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.authSeen...)
}

func (s *Server) record(endpoint string, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[endpoint]++
	s.authSeen = append(s.authSeen, r.Header.Get("Authorization"))
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	s.record(github.EndpointRuns, r)
	page, perPage := pagination(r)
	if s.FailRunsPage != 0 && page == s.FailRunsPage {
		http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
		return
	}

	var runs []models.WorkflowRun
	if s.EndlessRuns {
		runs = make([]models.WorkflowRun, perPage)
		for i := range runs {
			id := int64((page-1)*perPage + i + 1)
			runs[i] = Run(id, time.Now().Add(-time.Duration(id)*time.Minute))
		}
	} else {
		runs = paginate(s.Runs, page, perPage)
	}
	writeJSON(w, map[string]any{"total_count": len(runs), "workflow_runs": runs})
}

func (s *Server) handleArtifacts(w http.ResponseWriter, r *http.Request) {
	s.record(github.EndpointArtifacts, r)
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if s.FailArtifacts[id] {
		http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
		return
	}
	page, perPage := pagination(r)
	all := s.Artifacts[id]
	writeJSON(w, map[string]any{"total_count": len(all), "artifacts": paginate(all, page, perPage)})
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	s.record(github.EndpointArchive, r)
	http.Redirect(w, r, "/blobs/"+r.PathValue("id"), http.StatusFound)
}

func (s *Server) handleBlob(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	body, ok := s.Archives[id]
	if !ok {
		http.Error(w, "gone", http.StatusGone)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Write(body)
}

func pagination(r *http.Request) (int, int) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	perPage, err := strconv.Atoi(r.URL.Query().Get("per_page"))
	if err != nil || perPage < 1 {
		perPage = 30
	}
	return page, perPage
}

func paginate[T any](items []T, page, perPage int) []T {
	start := (page - 1) * perPage
	if start >= len(items) {
		return []T{}
	}
	end := min(start+perPage, len(items))
	return items[start:end]
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// Run builds a successful run created at the given time.
func Run(id int64, created time.Time) models.WorkflowRun {
	return models.WorkflowRun{
		ID:         id,
		Name:       "Full Sweep Scheduler",
		CreatedAt:  created.UTC().Format(time.RFC3339),
		Conclusion: "success",
		HTMLURL:    fmt.Sprintf("https://github.com/InferenceMAX/InferenceMAX/actions/runs/%d", id),
		HeadSHA:    fmt.Sprintf("%040d", id),
		RunNumber:  int(id),
	}
}

// File is one entry of a zip built by Zip. A name ending in "/" is a directory.
type File struct {
	Name string
	Body string
}

// Zip builds an in-memory zip archive holding files in order.
func Zip(t testing.TB, files ...File) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		fw, err := zw.Create(f.Name)
		if err != nil {
			t.Fatalf("zip create %s: %v", f.Name, err)
		}
		if f.Body != "" {
			if _, err := fw.Write([]byte(f.Body)); err != nil {
				t.Fatalf("zip write %s: %v", f.Name, err)
			}
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}
