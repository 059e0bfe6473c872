package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/inferencemax/dashboard/cmd/benchctl/client"
	"github.com/inferencemax/dashboard/cmd/benchctl/format"
	"github.com/inferencemax/dashboard/pkg/models"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List the workflow runs behind a query",
	RunE:  runRuns,
}

var (
	runsDays     int
	runsWorkflow string
)

func init() {
	runsCmd.Flags().IntVar(&runsDays, "days", 0, "Time window in days (server default when unset)")
	runsCmd.Flags().StringVar(&runsWorkflow, "workflow", "", "Workflow file (server default when unset)")
	RootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	res, err := newClient().Benchmarks(cmd.Context(), client.Query{Days: runsDays, Workflow: runsWorkflow})
	if err != nil {
		return err
	}

	if len(res.Runs) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "No runs in range.")
		return nil
	}

	return format.Write(cmd.OutOrStdout(), getFormat(), res.Runs, runHeaders(), runRows(res.Runs, res.Data))
}

func runHeaders() []string {
	return []string{"Run", "Number", "Date", "Commit", "Records", "URL"}
}

func runRows(runs []models.WorkflowRun, records []models.BenchmarkRecord) [][]string {
	counts := make(map[string]int)
	for _, r := range records {
		counts[r.RunID]++
	}

	rows := make([][]string, len(runs))
	for i, r := range runs {
		id := strconv.FormatInt(r.ID, 10)
		sha := r.HeadSHA
		if len(sha) > 7 {
			sha = sha[:7]
		}
		rows[i] = []string{
			id,
			strconv.Itoa(r.RunNumber),
			r.RunDate(),
			sha,
			strconv.Itoa(counts[id]),
			r.HTMLURL,
		}
	}
	return rows
}
