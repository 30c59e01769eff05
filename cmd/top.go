package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dnviti/k8s-useful-metrics/internal/kube"
)

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Report live node CPU/memory usage",
	Long: `Reports the actual CPU and memory usage of every node as measured
by metrics-server, the percentage of allocatable capacity that usage
represents, and a load verdict per node. Cluster-wide and worker-only
totals are appended.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := kube.FetchTop(cmd.Context(), clients)
		if err != nil {
			return err
		}
		return render("Node Usage", report)
	},
}

func init() {
	rootCmd.AddCommand(topCmd)
}
