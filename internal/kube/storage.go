package kube

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// NFSVolume is one PersistentVolume backed by an NFS export, together
// with the claim bound to it (empty when unbound).
type NFSVolume struct {
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Claim     string `json:"claim,omitempty" yaml:"claim,omitempty"`
	Volume    string `json:"volume" yaml:"volume"`
	Server    string `json:"server" yaml:"server"`
	Path      string `json:"path" yaml:"path"`
	Capacity  string `json:"capacity" yaml:"capacity"`
}

// NFSVolumeReport maps PVCs to the NFS exports backing them.
type NFSVolumeReport struct {
	Volumes []NFSVolume `json:"volumes" yaml:"volumes"`
}

func (r *NFSVolumeReport) TableHeaders() []string {
	return []string{"namespace", "claim", "volume", "server", "path", "capacity"}
}

func (r *NFSVolumeReport) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Volumes))
	for _, v := range r.Volumes {
		rows = append(rows, []string{v.Namespace, v.Claim, v.Volume, v.Server, v.Path, v.Capacity})
	}
	return rows
}

// Targets deduplicates the report into unique server:path tuples,
// collecting the claims that reference each tuple.
func (r *NFSVolumeReport) Targets() []NFSTarget {
	byKey := make(map[string]*NFSTarget)
	var order []string
	for _, v := range r.Volumes {
		key := v.Server + ":" + v.Path
		t, ok := byKey[key]
		if !ok {
			t = &NFSTarget{Server: v.Server, Path: v.Path}
			byKey[key] = t
			order = append(order, key)
		}
		if v.Claim != "" {
			t.Claims = append(t.Claims, v.Namespace+"/"+v.Claim)
		}
	}

	targets := make([]NFSTarget, 0, len(order))
	for _, key := range order {
		t := byKey[key]
		sort.Strings(t.Claims)
		targets = append(targets, *t)
	}
	return targets
}

// NFSTarget is a unique NFS server:path tuple and the claims behind it.
type NFSTarget struct {
	Server string   `json:"server" yaml:"server"`
	Path   string   `json:"path" yaml:"path"`
	Claims []string `json:"claims,omitempty" yaml:"claims,omitempty"`
}

// Addr returns the mountable server:path address of the target.
func (t NFSTarget) Addr() string {
	return t.Server + ":" + t.Path
}

// FetchNFSVolumes fetches PVCs and PVs concurrently and correlates
// them into the NFS volume report. Only volumes with an NFS source are
// included; NFS volumes without a bound claim are listed with empty
// claim columns.
func FetchNFSVolumes(ctx context.Context, clients *Clients) (*NFSVolumeReport, error) {
	var (
		pvcs *corev1.PersistentVolumeClaimList
		pvs  *corev1.PersistentVolumeList
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		pvcs, err = clients.Core.CoreV1().PersistentVolumeClaims("").List(gctx, metav1.ListOptions{})
		if err != nil {
			return fmt.Errorf("failed to list persistent volume claims: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		pvs, err = clients.Core.CoreV1().PersistentVolumes().List(gctx, metav1.ListOptions{})
		if err != nil {
			return fmt.Errorf("failed to list persistent volumes: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Claims by the volume they are bound to
	claimByVolume := make(map[string]corev1.PersistentVolumeClaim)
	for _, pvc := range pvcs.Items {
		if pvc.Spec.VolumeName != "" {
			claimByVolume[pvc.Spec.VolumeName] = pvc
		}
	}

	report := &NFSVolumeReport{}
	for _, pv := range pvs.Items {
		if pv.Spec.NFS == nil {
			continue
		}

		v := NFSVolume{
			Volume:   pv.Name,
			Server:   pv.Spec.NFS.Server,
			Path:     cleanExportPath(pv.Spec.NFS.Path),
			Capacity: pv.Spec.Capacity.Storage().String(),
		}
		if pvc, ok := claimByVolume[pv.Name]; ok {
			v.Namespace = pvc.Namespace
			v.Claim = pvc.Name
		} else if ref := pv.Spec.ClaimRef; ref != nil {
			// Claim no longer exists but the PV still records it
			v.Namespace = ref.Namespace
			v.Claim = ref.Name
		}

		report.Volumes = append(report.Volumes, v)
	}

	sort.Slice(report.Volumes, func(i, j int) bool {
		if report.Volumes[i].Server != report.Volumes[j].Server {
			return report.Volumes[i].Server < report.Volumes[j].Server
		}
		return report.Volumes[i].Path < report.Volumes[j].Path
	})

	return report, nil
}

// cleanExportPath normalizes an NFS export path: always absolute, no
// trailing slash (except the bare root).
func cleanExportPath(path string) string {
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	path = strings.TrimRight(path, "/")
	if path == "" {
		return "/"
	}
	return path
}
