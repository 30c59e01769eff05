package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dnviti/k8s-useful-metrics/internal/kube"
)

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "List nodes with role and capacity",
	Long: `Lists every node with its role (Master when it carries the
control-plane label, Worker otherwise) and its capacity RAM/CPU,
followed by cluster-wide and worker-only totals.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := kube.FetchInventory(cmd.Context(), clients)
		if err != nil {
			return err
		}
		return render("Nodes", report)
	},
}

func init() {
	rootCmd.AddCommand(nodesCmd)
}
