package kube

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"golang.org/x/sync/errgroup"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// QuotaRow holds the CPU/memory requests allocated on one node, summed
// across the containers of every running pod scheduled there.
type QuotaRow struct {
	Role                   string `json:"role" yaml:"role"`
	Name                   string `json:"node" yaml:"node"`
	AllocatedRAMGiB        int64  `json:"allocated_ram_gb" yaml:"allocated_ram_gb"`
	AllocatedCPUMillicores int64  `json:"allocated_cpu_millicores" yaml:"allocated_cpu_millicores"`
}

// QuotaReport aggregates pod resource requests per node.
type QuotaReport struct {
	Nodes []QuotaRow `json:"nodes" yaml:"nodes"`
}

func (r *QuotaReport) TableHeaders() []string {
	return []string{"role", "node", "allocated_ram_gb", "allocated_cpu_millicores"}
}

func (r *QuotaReport) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Nodes))
	for _, n := range r.Nodes {
		rows = append(rows, []string{
			n.Role,
			n.Name,
			fmt.Sprintf("%dGi", n.AllocatedRAMGiB),
			strconv.FormatInt(n.AllocatedCPUMillicores, 10),
		})
	}
	return rows
}

// FetchQuotas fetches nodes and pods concurrently and sums container
// resource requests of running pods grouped by the node they run on.
// Pods without a node assignment are skipped.
func FetchQuotas(ctx context.Context, clients *Clients) (*QuotaReport, error) {
	var (
		nodes *corev1.NodeList
		pods  *corev1.PodList
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
		pods, err = clients.Core.CoreV1().Pods("").List(gctx, metav1.ListOptions{})
		if err != nil {
			return fmt.Errorf("failed to list pods: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	roles := nodeRoles(nodes)

	cpuByNode := make(map[string]int64)
	memByNode := make(map[string]float64)
	for _, pod := range pods.Items {
		if pod.Status.Phase != corev1.PodRunning {
			continue
		}
		node := pod.Spec.NodeName
		if node == "" {
			continue
		}
		for _, c := range pod.Spec.Containers {
			if q := c.Resources.Requests[corev1.ResourceCPU]; !q.IsZero() {
				cpuByNode[node] += MillicoresFromQuantity(q)
			}
			if q := c.Resources.Requests[corev1.ResourceMemory]; !q.IsZero() {
				memByNode[node] += MiBFromQuantity(q)
			}
		}
	}

	report := &QuotaReport{}
	for node, cpu := range cpuByNode {
		role, ok := roles[node]
		if !ok {
			role = RoleUnknown
		}
		report.Nodes = append(report.Nodes, QuotaRow{
			Role:                   role,
			Name:                   node,
			AllocatedRAMGiB:        int64(memByNode[node]) / 1024,
			AllocatedCPUMillicores: cpu,
		})
	}
	sort.Slice(report.Nodes, func(i, j int) bool {
		return report.Nodes[i].Name < report.Nodes[j].Name
	})

	return report, nil
}

// NamespaceQuotaRow is one ResourceQuota object with its cpu/memory
// hard limits and current usage.
type NamespaceQuotaRow struct {
	Namespace  string `json:"namespace" yaml:"namespace"`
	Name       string `json:"name" yaml:"name"`
	HardCPU    string `json:"hard_cpu" yaml:"hard_cpu"`
	UsedCPU    string `json:"used_cpu" yaml:"used_cpu"`
	HardMemory string `json:"hard_memory" yaml:"hard_memory"`
	UsedMemory string `json:"used_memory" yaml:"used_memory"`
}

// NamespaceQuotaReport lists the ResourceQuota objects of the cluster.
type NamespaceQuotaReport struct {
	Quotas []NamespaceQuotaRow `json:"quotas" yaml:"quotas"`
}

func (r *NamespaceQuotaReport) TableHeaders() []string {
	return []string{"namespace", "name", "hard_cpu", "used_cpu", "hard_memory", "used_memory"}
}

func (r *NamespaceQuotaReport) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Quotas))
	for _, q := range r.Quotas {
		rows = append(rows, []string{q.Namespace, q.Name, q.HardCPU, q.UsedCPU, q.HardMemory, q.UsedMemory})
	}
	return rows
}

// FetchNamespaceQuotas lists ResourceQuota objects across all namespaces.
func FetchNamespaceQuotas(ctx context.Context, clients *Clients) (*NamespaceQuotaReport, error) {
	quotas, err := clients.Core.CoreV1().ResourceQuotas("").List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list resource quotas: %w", err)
	}

	report := &NamespaceQuotaReport{}
	for _, rq := range quotas.Items {
		row := NamespaceQuotaRow{
			Namespace:  rq.Namespace,
			Name:       rq.Name,
			HardCPU:    quotaValue(rq.Status.Hard, corev1.ResourceRequestsCPU, corev1.ResourceCPU),
			UsedCPU:    quotaValue(rq.Status.Used, corev1.ResourceRequestsCPU, corev1.ResourceCPU),
			HardMemory: quotaValue(rq.Status.Hard, corev1.ResourceRequestsMemory, corev1.ResourceMemory),
			UsedMemory: quotaValue(rq.Status.Used, corev1.ResourceRequestsMemory, corev1.ResourceMemory),
		}
		report.Quotas = append(report.Quotas, row)
	}
	sort.Slice(report.Quotas, func(i, j int) bool {
		if report.Quotas[i].Namespace != report.Quotas[j].Namespace {
			return report.Quotas[i].Namespace < report.Quotas[j].Namespace
		}
		return report.Quotas[i].Name < report.Quotas[j].Name
	})

	return report, nil
}

// quotaValue returns the first of the given resource names present in
// the list, "-" when none is set. Quotas may constrain either the
// plain resource or its requests.* form.
func quotaValue(list corev1.ResourceList, names ...corev1.ResourceName) string {
	for _, name := range names {
		if q, ok := list[name]; ok {
			return q.String()
		}
	}
	return "-"
}
