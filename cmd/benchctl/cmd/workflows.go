package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/inferencemax/dashboard/cmd/benchctl/format"
)

var workflowsCmd = &cobra.Command{
	Use:   "workflows",
	Short: "List the benchmark workflows the server knows",
	RunE:  runWorkflows,
}

func init() {
	RootCmd.AddCommand(workflowsCmd)
}

func runWorkflows(cmd *cobra.Command, args []string) error {
	list, err := newClient().Workflows(cmd.Context())
	if err != nil {
		return err
	}

	rows := make([][]string, len(list.Workflows))
	for i, w := range list.Workflows {
		def := ""
		if w.File == list.Default {
			def = "*"
		}
		rows[i] = []string{w.File, w.Label, strconv.Itoa(w.ISL), strconv.Itoa(w.OSL), def}
	}
	return format.Write(cmd.OutOrStdout(), getFormat(), list, []string{"File", "Label", "ISL", "OSL", "Default"}, rows)
}
