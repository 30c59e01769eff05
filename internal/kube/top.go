package kube

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	metricsv1beta1 "k8s.io/metrics/pkg/apis/metrics/v1beta1"

	"github.com/dnviti/k8s-useful-metrics/internal/analysis"
)

// TopRow holds live usage for one node as reported by metrics-server.
type TopRow struct {
	Role          string  `json:"role" yaml:"role"`
	Name          string  `json:"node" yaml:"node"`
	RAMMiB        int64   `json:"ram_mi" yaml:"ram_mi"`
	CPUMillicores int64   `json:"cpu_m" yaml:"cpu_m"`
	RAMPct        float64 `json:"ram_pct" yaml:"ram_pct"`
	CPUPct        float64 `json:"cpu_pct" yaml:"cpu_pct"`
	Verdict       string  `json:"verdict" yaml:"verdict"`
}

// UsageSummary sums live usage over a set of nodes.
type UsageSummary struct {
	RAMGiB        int64 `json:"ram_gb" yaml:"ram_gb"`
	CPUMillicores int64 `json:"cpu_m" yaml:"cpu_m"`
}

// TopReport holds per-node live utilization plus cluster and worker totals.
type TopReport struct {
	Nodes   []TopRow     `json:"nodes" yaml:"nodes"`
	Total   UsageSummary `json:"total" yaml:"total"`
	Workers UsageSummary `json:"workers" yaml:"workers"`
}

func (r *TopReport) TableHeaders() []string {
	return []string{"role", "node", "ram", "cpu", "ram_pct", "cpu_pct", "verdict"}
}

func (r *TopReport) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Nodes)+2)
	for _, n := range r.Nodes {
		rows = append(rows, []string{
			n.Role,
			n.Name,
			FormatMem(float64(n.RAMMiB)),
			FormatCPU(n.CPUMillicores),
			fmt.Sprintf("%.0f%%", n.RAMPct),
			fmt.Sprintf("%.0f%%", n.CPUPct),
			n.Verdict,
		})
	}
	rows = append(rows,
		[]string{"Total", "", FormatMem(float64(r.Total.RAMGiB) * 1024), FormatCPU(r.Total.CPUMillicores), "", "", ""},
		[]string{"Workers", "", FormatMem(float64(r.Workers.RAMGiB) * 1024), FormatCPU(r.Workers.CPUMillicores), "", "", ""},
	)
	return rows
}

// FetchTop fetches nodes and node metrics concurrently and reports live
// CPU/memory usage per node. Unlike the other reports, metrics-server
// availability is mandatory here.
func FetchTop(ctx context.Context, clients *Clients) (*TopReport, error) {
	var (
		nodes       *corev1.NodeList
		nodeMetrics *metricsv1beta1.NodeMetricsList
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		nodes, err = clients.Core.CoreV1().Nodes().List(gctx, metav1.ListOptions{})
		if err != nil {
			return fmt.Errorf("failed to list nodes: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		nodeMetrics, err = clients.Metrics.MetricsV1beta1().NodeMetricses().List(gctx, metav1.ListOptions{})
		if err != nil {
			return fmt.Errorf("failed to get node metrics (is metrics-server installed?): %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	roles := nodeRoles(nodes)

	// Allocatable capacity per node, for percentage-of-capacity columns
	allocCPU := make(map[string]int64, len(nodes.Items))
	allocMem := make(map[string]float64, len(nodes.Items))
	for _, node := range nodes.Items {
		allocCPU[node.Name] = MillicoresFromQuantity(node.Status.Allocatable[corev1.ResourceCPU])
		allocMem[node.Name] = MiBFromQuantity(node.Status.Allocatable[corev1.ResourceMemory])
	}

	report := &TopReport{}
	for _, m := range nodeMetrics.Items {
		role, ok := roles[m.Name]
		if !ok {
			role = RoleUnknown
		}

		row := TopRow{
			Role:          role,
			Name:          m.Name,
			RAMMiB:        int64(MiBFromQuantity(m.Usage[corev1.ResourceMemory])),
			CPUMillicores: MillicoresFromQuantity(m.Usage[corev1.ResourceCPU]),
		}
		row.RAMPct = safePct(float64(row.RAMMiB), allocMem[m.Name])
		row.CPUPct = safePct(float64(row.CPUMillicores), float64(allocCPU[m.Name]))
		row.Verdict = analysis.UtilizationVerdict(max(row.RAMPct, row.CPUPct)).Label

		report.Nodes = append(report.Nodes, row)

		report.Total.RAMGiB += row.RAMMiB
		report.Total.CPUMillicores += row.CPUMillicores
		if role == RoleWorker {
			report.Workers.RAMGiB += row.RAMMiB
			report.Workers.CPUMillicores += row.CPUMillicores
		}
	}

	// Totals accumulated in MiB, reported in whole GiB
	report.Total.RAMGiB /= 1024
	report.Workers.RAMGiB /= 1024

	return report, nil
}

func safePct(value, total float64) float64 {
	if total == 0 {
		return 0
	}
	return value * 100 / total
}
