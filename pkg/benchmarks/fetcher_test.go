package benchmarks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferencemax/dashboard/pkg/github"
	"github.com/inferencemax/dashboard/pkg/models"
)

// stubAPI is an in-memory ActionsAPI.
type stubAPI struct {
	runs        []models.WorkflowRun
	runsErr     error
	artifacts   map[int64][]github.Artifact
	listErr     map[int64]error
	contents    map[int64]string
	downloadErr map[int64]error
	// delay makes downloads of an artifact slow, to shuffle completion order.
	delay map[int64]time.Duration

	mu        sync.Mutex
	maxPages  int
	downloads []int64
	inFlight  int
	peak      int
}

func newStubAPI() *stubAPI {
	return &stubAPI{
		artifacts:   map[int64][]github.Artifact{},
		listErr:     map[int64]error{},
		contents:    map[int64]string{},
		downloadErr: map[int64]error{},
		delay:       map[int64]time.Duration{},
	}
}

func (s *stubAPI) ListWorkflowRuns(_ context.Context, _ string, maxPages int) ([]models.WorkflowRun, error) {
	s.mu.Lock()
	s.maxPages = maxPages
	s.mu.Unlock()
	return s.runs, s.runsErr
}

func (s *stubAPI) ListRunArtifacts(_ context.Context, runID int64) ([]github.Artifact, error) {
	return s.artifacts[runID], s.listErr[runID]
}

func (s *stubAPI) DownloadArtifact(_ context.Context, id int64) (string, error) {
	s.mu.Lock()
	s.downloads = append(s.downloads, id)
	s.inFlight++
	s.peak = max(s.peak, s.inFlight)
	s.mu.Unlock()

	time.Sleep(s.delay[id])

	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()

	if err := s.downloadErr[id]; err != nil {
		return "", err
	}
	content, ok := s.contents[id]
	if !ok {
		return "", github.ErrEmptyArchive
	}
	return content, nil
}

func (s *stubAPI) downloaded() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.downloads...)
}

func noDelayOptions() Options {
	opts := DefaultOptions()
	opts.RunDelay = 0
	opts.BatchDelay = 0
	return opts
}

func testRun(id int64, created time.Time) models.WorkflowRun {
	return models.WorkflowRun{
		ID:         id,
		Name:       "Full Sweep",
		CreatedAt:  created.UTC().Format(time.RFC3339),
		Conclusion: "success",
		HeadSHA:    fmt.Sprintf("sha%d", id),
	}
}

func resultJSON(model string, conc int) string {
	return fmt.Sprintf(`{"model":%q,"conc":%d,"median_ttft":0.1}`, model, conc)
}

func TestProcessRun_AggregatedIsExclusive(t *testing.T) {
	api := newStubAPI()
	api.artifacts[1] = []github.Artifact{
		{ID: 10, Name: "results_1k1k"},
		{ID: 11, Name: "dsr1_1k1k_fp8_sglang_tp8_conc4"},
		{ID: 12, Name: "results_1k1k_extra"},
	}
	api.contents[10] = `[` + resultJSON("deepseek-r1-0528-fp8", 4) + `,` + resultJSON("gpt-oss-120b", 8) + `]`
	api.contents[11] = resultJSON("llama", 1)
	api.contents[12] = resultJSON("qwen3", 2)

	f := NewFetcher(api, noDelayOptions(), nil)
	records, err := f.ProcessRun(context.Background(), testRun(1, time.Now()))
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, "DeepSeek-R1-0528", records[0].Model)
	assert.Equal(t, "GPT-OSS", records[1].Model)
	assert.Equal(t, "Qwen", records[2].Model)
	assert.Equal(t, []int64{10, 12}, api.downloaded())

	for _, r := range records {
		assert.Equal(t, "1", r.RunID)
		assert.Equal(t, "sha1", r.CommitSHA)
	}
}

func TestProcessRun_PerConfigFilter(t *testing.T) {
	api := newStubAPI()
	api.artifacts[1] = []github.Artifact{
		{ID: 1, Name: "DSR1_1k1k_fp8_SGLANG_tp8"},
		{ID: 2, Name: "gptoss_1k1k_fp4_vllm_tp1"},
		{ID: 3, Name: "llama_8k1k_trt_tp4"},
		{ID: 4, Name: "qwen_1k8k_dynamo-disagg"},
		{ID: 5, Name: "dsr1_server_logs"},
		{ID: 6, Name: "mistral_1k1k_vllm_tp1"},
		{ID: 7, Name: "coverage-report"},
	}
	for id := int64(1); id <= 7; id++ {
		api.contents[id] = resultJSON("gpt", int(id))
	}

	f := NewFetcher(api, noDelayOptions(), nil)
	records, err := f.ProcessRun(context.Background(), testRun(1, time.Now()))
	require.NoError(t, err)

	require.Len(t, records, 4)
	assert.ElementsMatch(t, []int64{1, 2, 3, 4}, api.downloaded())
}

func TestProcessRun_BatchesKeepOrderAndTolerateFailures(t *testing.T) {
	api := newStubAPI()
	var artifacts []github.Artifact
	for i := 1; i <= 45; i++ {
		id := int64(i)
		artifacts = append(artifacts, github.Artifact{ID: id, Name: fmt.Sprintf("dsr1_1k1k_fp8_sglang_conc%d", i)})
		api.contents[id] = resultJSON("deepseek-r1", i)
		// Later artifacts of each batch finish first.
		api.delay[id] = time.Duration(20-(i-1)%20) * time.Millisecond
	}
	api.artifacts[1] = artifacts
	api.downloadErr[7] = errors.New("410 gone")
	api.contents[30] = "not json"

	opts := noDelayOptions()
	f := NewFetcher(api, opts, nil)
	records, err := f.ProcessRun(context.Background(), testRun(1, time.Now()))
	require.NoError(t, err)

	require.Len(t, records, 43)
	prev := 0
	for _, r := range records {
		assert.Greater(t, r.Concurrency, prev, "records must follow artifact order")
		prev = r.Concurrency
	}
	assert.LessOrEqual(t, api.peak, opts.BatchSize)
	assert.Len(t, api.downloaded(), 45)
}

func TestProcessRun_ListingErrors(t *testing.T) {
	api := newStubAPI()
	api.listErr[1] = errors.New("boom")
	api.listErr[2] = errors.New("page 2 failed")
	api.artifacts[2] = []github.Artifact{{ID: 20, Name: "results_all"}}
	api.contents[20] = resultJSON("gpt", 1)

	f := NewFetcher(api, noDelayOptions(), nil)

	_, err := f.ProcessRun(context.Background(), testRun(1, time.Now()))
	assert.Error(t, err)

	records, err := f.ProcessRun(context.Background(), testRun(2, time.Now()))
	require.NoError(t, err)
	assert.Len(t, records, 1)

	records, err = f.ProcessRun(context.Background(), testRun(3, time.Now()))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFetch_WindowCapAndProvenance(t *testing.T) {
	now := time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)
	api := newStubAPI()
	for i := 0; i < 40; i++ {
		id := int64(i + 1)
		api.runs = append(api.runs, testRun(id, now.Add(-time.Duration(i)*12*time.Hour)))
		api.artifacts[id] = []github.Artifact{{ID: 1000 + id, Name: "results_bmk"}}
		api.contents[1000+id] = resultJSON("gpt-oss", 1)
	}
	api.runs = append(api.runs, models.WorkflowRun{ID: 99, CreatedAt: "garbage"})

	f := NewFetcher(api, noDelayOptions(), nil)
	f.now = func() time.Time { return now }

	res, err := f.Fetch(context.Background(), 30, "wf.yml")
	require.NoError(t, err)

	assert.Equal(t, 5, api.maxPages)
	assert.Len(t, res.Runs, 41)
	require.Len(t, res.Records, 30)
	assert.Equal(t, "1", res.Records[0].RunID)
	assert.Equal(t, "30", res.Records[29].RunID)
	assert.Equal(t, "2025-06-30", res.Records[0].RunDate)
}

func TestFetch_WindowFiltersOldRuns(t *testing.T) {
	now := time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)
	api := newStubAPI()
	api.runs = []models.WorkflowRun{
		testRun(1, now.Add(-24*time.Hour)),
		testRun(2, now.AddDate(0, 0, -7)),
		testRun(3, now.AddDate(0, 0, -8)),
	}
	for _, r := range api.runs {
		api.artifacts[r.ID] = []github.Artifact{{ID: r.ID * 10, Name: "results_x"}}
		api.contents[r.ID*10] = resultJSON("llama", 1)
	}

	f := NewFetcher(api, noDelayOptions(), nil)
	f.now = func() time.Time { return now }

	res, err := f.Fetch(context.Background(), 7, "wf.yml")
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "1", res.Records[0].RunID)
	assert.Equal(t, "2", res.Records[1].RunID)
}

func TestFetch_PageBudget(t *testing.T) {
	f := NewFetcher(newStubAPI(), noDelayOptions(), nil)
	assert.Equal(t, 5, f.PagesFor(1))
	assert.Equal(t, 5, f.PagesFor(60))
	assert.Equal(t, 10, f.PagesFor(61))
	assert.Equal(t, 10, f.PagesFor(365))
}

func TestFetch_ToleratesFailures(t *testing.T) {
	now := time.Now()
	api := newStubAPI()
	api.runs = []models.WorkflowRun{testRun(1, now), testRun(2, now)}
	api.runsErr = errors.New("page 2 failed")
	api.listErr[1] = errors.New("artifacts unavailable")
	api.artifacts[2] = []github.Artifact{{ID: 5, Name: "results_a"}}
	api.contents[5] = resultJSON("qwen", 1)

	res, err := NewFetcher(api, noDelayOptions(), nil).Fetch(context.Background(), 30, "wf.yml")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "2", res.Records[0].RunID)
}

func TestFetch_Cancelled(t *testing.T) {
	api := newStubAPI()
	api.runs = []models.WorkflowRun{testRun(1, time.Now())}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewFetcher(api, noDelayOptions(), nil).Fetch(ctx, 30, "wf.yml")
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Empty(t, res.Records)
}
