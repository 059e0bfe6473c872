package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/inferencemax/dashboard/cmd/benchctl/client"
	"github.com/inferencemax/dashboard/cmd/benchctl/format"
)

var (
	apiURL       string
	outputFormat string
)

// RootCmd is the top-level CLI command.
var RootCmd = &cobra.Command{
	Use:           "benchctl",
	Short:         "Query InferenceMAX benchmark results from a dashboard server",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	RootCmd.PersistentFlags().StringVar(&apiURL, "api-url", envOrDefault("BENCHCTL_API_URL", "http://localhost:8080"), "Dashboard API base URL")
	RootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table, json, csv")
}

func newClient() *client.Client {
	return client.New(apiURL)
}

func getFormat() format.OutputFormat {
	return format.Parse(outputFormat)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
