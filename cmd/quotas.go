package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dnviti/k8s-useful-metrics/internal/kube"
)

var quotasNamespaces bool

var quotasCmd = &cobra.Command{
	Use:   "quotas",
	Short: "Report allocated resource requests per node",
	Long: `Sums the CPU/memory requests of every running pod's containers,
grouped by the node the pod runs on. This is the amount of capacity the
scheduler considers reserved, regardless of actual usage.

With --namespaces, the cluster's ResourceQuota objects are reported
instead, with their hard limits and current usage.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if quotasNamespaces {
			report, err := kube.FetchNamespaceQuotas(cmd.Context(), clients)
			if err != nil {
				return err
			}
			return render("Namespace Quotas", report)
		}

		report, err := kube.FetchQuotas(cmd.Context(), clients)
		if err != nil {
			return err
		}
		return render("Allocated Requests", report)
	},
}

func init() {
	quotasCmd.Flags().BoolVar(&quotasNamespaces, "namespaces", false, "report ResourceQuota objects per namespace instead of per-node requests")
	rootCmd.AddCommand(quotasCmd)
}
