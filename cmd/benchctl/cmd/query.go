package cmd

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inferencemax/dashboard/cmd/benchctl/client"
	"github.com/inferencemax/dashboard/cmd/benchctl/format"
	"github.com/inferencemax/dashboard/pkg/models"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query benchmark results",
	Long: `Query normalized benchmark results for a workflow and time window.

Examples:
  benchctl query --days 7
  benchctl query --workflow full-sweep-1k8k-scheduler.yml --model DeepSeek-R1-0528 --latest
  benchctl query --hardware H200 --refresh -o csv`,
	RunE: runQuery,
}

var (
	queryDays      int
	queryWorkflow  string
	queryRefresh   bool
	queryModel     string
	queryHardware  string
	queryFramework string
	queryPrecision string
	queryLatest    bool
)

func init() {
	queryCmd.Flags().IntVar(&queryDays, "days", 0, "Time window in days (server default when unset)")
	queryCmd.Flags().StringVar(&queryWorkflow, "workflow", "", "Workflow file (server default when unset)")
	queryCmd.Flags().BoolVar(&queryRefresh, "refresh", false, "Bypass the server cache")
	queryCmd.Flags().StringVar(&queryModel, "model", "", "Filter by model family (e.g. DeepSeek-R1-0528, GPT-OSS)")
	queryCmd.Flags().StringVar(&queryHardware, "hardware", "", "Filter by hardware (e.g. H200, MI355X)")
	queryCmd.Flags().StringVar(&queryFramework, "framework", "", "Filter by framework (e.g. SGLANG, VLLM)")
	queryCmd.Flags().StringVar(&queryPrecision, "precision", "", "Filter by precision (e.g. FP8)")
	queryCmd.Flags().BoolVar(&queryLatest, "latest", false, "Keep only the most recent result of each configuration")
	RootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	res, err := newClient().Benchmarks(cmd.Context(), client.Query{
		Days:     queryDays,
		Workflow: queryWorkflow,
		Refresh:  queryRefresh,
	})
	if err != nil {
		return err
	}

	records := filterRecords(res.Data)
	if queryLatest {
		records = latestPerConfig(records)
	}
	sortRecords(records)

	if len(records) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "No results found.")
		return nil
	}

	if err := format.Write(cmd.OutOrStdout(), getFormat(), records, recordHeaders(), recordRows(records)); err != nil {
		return err
	}
	if getFormat() == format.FormatTable {
		source := "live"
		if res.Cached && res.CacheAge != nil {
			source = fmt.Sprintf("cached %d min ago", *res.CacheAge)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "\n%d result(s) from %d run(s) of %s (%s)\n", len(records), res.RunsCount, res.Workflow, source)
	}
	return nil
}

func filterRecords(in []models.BenchmarkRecord) []models.BenchmarkRecord {
	out := make([]models.BenchmarkRecord, 0, len(in))
	for _, r := range in {
		if !matches(queryModel, r.Model) || !matches(queryHardware, r.Hardware) ||
			!matches(queryFramework, r.Framework) || !matches(queryPrecision, r.Precision) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func matches(filter, value string) bool {
	return filter == "" || strings.EqualFold(filter, value)
}

// latestPerConfig keeps, for each configuration, the record from the most
// recent run. Ties on date keep the first record seen.
func latestPerConfig(in []models.BenchmarkRecord) []models.BenchmarkRecord {
	latest := make(map[string]int, len(in))
	var out []models.BenchmarkRecord
	for _, r := range in {
		key := r.ConfigKey()
		i, ok := latest[key]
		if !ok {
			latest[key] = len(out)
			out = append(out, r)
			continue
		}
		if r.RunDate > out[i].RunDate {
			out[i] = r
		}
	}
	return out
}

func sortRecords(records []models.BenchmarkRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Model != b.Model {
			return a.Model < b.Model
		}
		if a.Hardware != b.Hardware {
			return a.Hardware < b.Hardware
		}
		if a.Framework != b.Framework {
			return a.Framework < b.Framework
		}
		if a.Precision != b.Precision {
			return a.Precision < b.Precision
		}
		if a.TP != b.TP {
			return a.TP < b.TP
		}
		if a.Concurrency != b.Concurrency {
			return a.Concurrency < b.Concurrency
		}
		return a.RunDate > b.RunDate
	})
}

func recordHeaders() []string {
	return []string{
		"Model", "Hardware", "Framework", "Precision", "TP", "EP", "Conc",
		"TTFT(s)", "TPOT(ms)", "Intvty", "E2EL(s)", "Tput/GPU", "Run Date", "Run",
	}
}

func recordRows(records []models.BenchmarkRecord) [][]string {
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = []string{
			r.Model,
			r.Hardware,
			r.Framework,
			r.Precision,
			strconv.Itoa(r.TP),
			strconv.Itoa(r.EP),
			r.ConcurrencyLabel(),
			format.Metric(r.TTFT, 3),
			format.Metric(r.TPOT, 2),
			format.Metric(r.Interactivity, 1),
			format.Metric(r.E2EL, 2),
			format.Metric(r.TputPerGPU, 1),
			r.RunDate,
			r.RunID,
		}
	}
	return rows
}
