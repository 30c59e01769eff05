package kube

import (
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
)

// ControlPlaneLabel marks control-plane nodes.
const ControlPlaneLabel = "node-role.kubernetes.io/control-plane"

// Node roles as reported in the inventory.
const (
	RoleMaster  = "Master"
	RoleWorker  = "Worker"
	RoleUnknown = "Unknown"
)

// NodeRole returns Master when the node carries the control-plane label, Worker otherwise.
func NodeRole(node corev1.Node) string {
	if _, ok := node.Labels[ControlPlaneLabel]; ok {
		return RoleMaster
	}
	return RoleWorker
}

// MillicoresFromQuantity converts a CPU Quantity to millicores.
func MillicoresFromQuantity(q resource.Quantity) int64 {
	return q.MilliValue()
}

// MiBFromQuantity converts a memory Quantity to MiB.
func MiBFromQuantity(q resource.Quantity) float64 {
	return float64(q.Value()) / (1024 * 1024)
}

// GiBFromQuantity converts a memory Quantity to whole GiB, rounding down.
func GiBFromQuantity(q resource.Quantity) int64 {
	return q.Value() / (1024 * 1024 * 1024)
}

// FormatMem formats a MiB value as "512Mi" or "1.5Gi".
func FormatMem(mib float64) string {
	if mib >= 1024 {
		gib := mib / 1024
		if gib == float64(int64(gib)) {
			return fmt.Sprintf("%dGi", int64(gib))
		}
		return fmt.Sprintf("%.1fGi", gib)
	}
	return fmt.Sprintf("%dMi", int64(mib))
}

// FormatCPU formats millicores as "250m" or "1.5" (cores) when >= 1000m.
func FormatCPU(millicores int64) string {
	if millicores == 0 {
		return "0"
	}
	if millicores < 1000 {
		return fmt.Sprintf("%dm", millicores)
	}
	cores := float64(millicores) / 1000
	if float64(int64(cores)) == cores {
		return fmt.Sprintf("%d", int64(cores))
	}
	return fmt.Sprintf("%.2f", cores)
}
