package kube

import (
	"context"
	"testing"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
	metricsv1beta1 "k8s.io/metrics/pkg/apis/metrics/v1beta1"
	metricsfake "k8s.io/metrics/pkg/client/clientset/versioned/fake"
)

// newMetricsClientset seeds the fake through the tracker with the real
// GVR (resource "nodes"): NewSimpleClientset(objects...) stores NodeMetrics
// under the kind-guessed resource "nodemetricses", which the generated fake
// client never reads, so objects passed to the constructor are invisible to
// List (see the NOTE in k8s.io/client-go/testing/fixture.go Add).
func newMetricsClientset(t *testing.T, objects ...*metricsv1beta1.NodeMetrics) *metricsfake.Clientset {
	t.Helper()
	clientset := metricsfake.NewSimpleClientset()
	gvr := metricsv1beta1.SchemeGroupVersion.WithResource("nodes")
	for _, obj := range objects {
		if err := clientset.Tracker().Create(gvr, obj, ""); err != nil {
			t.Fatalf("seeding fake metrics clientset: %v", err)
		}
	}
	return clientset
}

func makeNodeMetrics(name, cpu, mem string) *metricsv1beta1.NodeMetrics {
	return &metricsv1beta1.NodeMetrics{
		ObjectMeta: metav1.ObjectMeta{Name: name},
		Usage: corev1.ResourceList{
			corev1.ResourceCPU:    resource.MustParse(cpu),
			corev1.ResourceMemory: resource.MustParse(mem),
		},
	}
}

func TestFetchTop(t *testing.T) {
	clients := &Clients{
		Core: fake.NewClientset(
			makeNode("master-0", true, "4", "16Gi"),
			makeNode("worker-0", false, "8", "32Gi"),
		),
		Metrics: newMetricsClientset(t,
			makeNodeMetrics("master-0", "400m", "2048Mi"),
			makeNodeMetrics("worker-0", "6", "28Gi"),
			// A node only known to metrics-server
			makeNodeMetrics("ghost-0", "100m", "1024Mi"),
		),
		ContextName: "test-context",
	}

	report, err := FetchTop(context.Background(), clients)
	if err != nil {
		t.Fatalf("FetchTop() error = %v", err)
	}

	if len(report.Nodes) != 3 {
		t.Fatalf("got %d nodes, want 3", len(report.Nodes))
	}

	byName := make(map[string]TopRow)
	for _, n := range report.Nodes {
		byName[n.Name] = n
	}

	master := byName["master-0"]
	if master.Role != RoleMaster || master.CPUMillicores != 400 || master.RAMMiB != 2048 {
		t.Errorf("master-0 = %+v, want Master/400m/2048Mi", master)
	}
	if master.CPUPct != 10 {
		t.Errorf("master-0 cpu pct = %f, want 10", master.CPUPct)
	}

	worker := byName["worker-0"]
	if worker.CPUPct != 75 {
		t.Errorf("worker-0 cpu pct = %f, want 75", worker.CPUPct)
	}
	if worker.Verdict == "" {
		t.Error("worker-0 verdict is empty")
	}

	ghost := byName["ghost-0"]
	if ghost.Role != RoleUnknown {
		t.Errorf("ghost-0 role = %q, want %q", ghost.Role, RoleUnknown)
	}
	// No allocatable capacity known, percentages stay zero
	if ghost.CPUPct != 0 || ghost.RAMPct != 0 {
		t.Errorf("ghost-0 pct = %f/%f, want 0/0", ghost.CPUPct, ghost.RAMPct)
	}

	// Totals: 400m + 6000m + 100m; memory 2048 + 28672 + 1024 = 31744 MiB -> 31Gi
	if report.Total.CPUMillicores != 6500 {
		t.Errorf("total cpu = %dm, want 6500m", report.Total.CPUMillicores)
	}
	if report.Total.RAMGiB != 31 {
		t.Errorf("total ram = %dGi, want 31Gi", report.Total.RAMGiB)
	}
	// Workers only: worker-0
	if report.Workers.CPUMillicores != 6000 || report.Workers.RAMGiB != 28 {
		t.Errorf("workers = %+v, want 6000m/28Gi", report.Workers)
	}
}

func TestTopReportTableRows(t *testing.T) {
	report := &TopReport{
		Nodes: []TopRow{
			{Role: RoleMaster, Name: "master-0", RAMMiB: 2048, CPUMillicores: 400, RAMPct: 13, CPUPct: 10, Verdict: "OK"},
			{Role: RoleWorker, Name: "worker-0", RAMMiB: 512, CPUMillicores: 6500, RAMPct: 2, CPUPct: 81, Verdict: "High"},
		},
		Total:   UsageSummary{RAMGiB: 31, CPUMillicores: 6900},
		Workers: UsageSummary{RAMGiB: 28, CPUMillicores: 6500},
	}

	rows := report.TableRows()
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4 (2 nodes + 2 summaries)", len(rows))
	}

	want := [][]string{
		{"Master", "master-0", "2Gi", "400m", "13%", "10%", "OK"},
		{"Worker", "worker-0", "512Mi", "6.50", "2%", "81%", "High"},
		{"Total", "", "31Gi", "6.90", "", "", ""},
		{"Workers", "", "28Gi", "6.50", "", "", ""},
	}
	for i, row := range rows {
		for j, cell := range row {
			if cell != want[i][j] {
				t.Errorf("row %d col %d = %q, want %q", i, j, cell, want[i][j])
			}
		}
	}
}
