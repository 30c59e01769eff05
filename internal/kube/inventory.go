package kube

import (
	"context"
	"fmt"
	"strconv"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// NodeRow is one node in the inventory report.
type NodeRow struct {
	Role     string `json:"role" yaml:"role"`
	Name     string `json:"node" yaml:"node"`
	RAMGiB   int64  `json:"ram_gb" yaml:"ram_gb"`
	CPUCores int64  `json:"cpu" yaml:"cpu"`
}

// CapacitySummary sums capacity over a set of nodes.
type CapacitySummary struct {
	RAMGiB   int64 `json:"ram_gb" yaml:"ram_gb"`
	CPUCores int64 `json:"cpu" yaml:"cpu"`
}

// InventoryReport lists every node with its role and capacity, plus
// cluster-wide and worker-only totals.
type InventoryReport struct {
	Nodes   []NodeRow       `json:"nodes" yaml:"nodes"`
	Total   CapacitySummary `json:"total" yaml:"total"`
	Workers CapacitySummary `json:"workers" yaml:"workers"`
}

// TableHeaders implements the tabular view used for table and CSV output.
func (r *InventoryReport) TableHeaders() []string {
	return []string{"role", "node", "ram_gb", "cpu"}
}

// TableRows renders every node plus the two summary rows.
func (r *InventoryReport) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Nodes)+2)
	for _, n := range r.Nodes {
		rows = append(rows, []string{
			n.Role,
			n.Name,
			fmt.Sprintf("%dGi", n.RAMGiB),
			strconv.FormatInt(n.CPUCores, 10),
		})
	}
	rows = append(rows,
		[]string{"Total", "", fmt.Sprintf("%dGi", r.Total.RAMGiB), strconv.FormatInt(r.Total.CPUCores, 10)},
		[]string{"Workers", "", fmt.Sprintf("%dGi", r.Workers.RAMGiB), strconv.FormatInt(r.Workers.CPUCores, 10)},
	)
	return rows
}

// FetchInventory lists all nodes and builds the inventory report from
// their capacity (not allocatable) resources.
func FetchInventory(ctx context.Context, clients *Clients) (*InventoryReport, error) {
	nodes, err := clients.Core.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}

	report := &InventoryReport{}
	for _, node := range nodes.Items {
		row := NodeRow{
			Role:     NodeRole(node),
			Name:     node.Name,
			RAMGiB:   GiBFromQuantity(node.Status.Capacity[corev1.ResourceMemory]),
			CPUCores: node.Status.Capacity.Cpu().Value(),
		}
		report.Nodes = append(report.Nodes, row)

		report.Total.RAMGiB += row.RAMGiB
		report.Total.CPUCores += row.CPUCores
		if row.Role == RoleWorker {
			report.Workers.RAMGiB += row.RAMGiB
			report.Workers.CPUCores += row.CPUCores
		}
	}

	return report, nil
}

// nodeRoles maps node name to role for reports keyed by node name.
func nodeRoles(nodes *corev1.NodeList) map[string]string {
	roles := make(map[string]string, len(nodes.Items))
	for _, node := range nodes.Items {
		roles[node.Name] = NodeRole(node)
	}
	return roles
}
