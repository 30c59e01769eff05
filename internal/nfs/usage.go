package nfs

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/dnviti/k8s-useful-metrics/internal/kube"
)

// DefaultMountTimeout bounds a single mount attempt. NFS mounts against
// an unreachable server otherwise hang until the kernel gives up.
const DefaultMountTimeout = 30 * time.Second

// Options configures a usage check run.
type Options struct {
	// Depth truncates export paths to this many leading components
	// before mounting; 0 mounts every export at its full path.
	Depth int
	// Timeout bounds each mount attempt.
	Timeout time.Duration
	// MountDir is the parent directory for mountpoints ("" = temp dir).
	MountDir string
	// MountOptions holds extra mount -o options appended after ro.
	MountOptions string
}

// UsageRow is the measured usage of one mounted NFS target, or the
// classified error when the target could not be measured.
type UsageRow struct {
	Server     string   `json:"server" yaml:"server"`
	Path       string   `json:"path" yaml:"path"`
	Claims     []string `json:"claims,omitempty" yaml:"claims,omitempty"`
	TotalBytes uint64   `json:"total_bytes,omitempty" yaml:"total_bytes,omitempty"`
	UsedBytes  uint64   `json:"used_bytes,omitempty" yaml:"used_bytes,omitempty"`
	FreeBytes  uint64   `json:"free_bytes,omitempty" yaml:"free_bytes,omitempty"`
	UsedPct    float64  `json:"used_pct,omitempty" yaml:"used_pct,omitempty"`
	Error      string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// UsageReport holds the result of a mount-check-unmount run.
type UsageReport struct {
	Targets []UsageRow `json:"targets" yaml:"targets"`
}

func (r *UsageReport) TableHeaders() []string {
	return []string{"server", "path", "claims", "total", "used", "free", "used_pct", "error"}
}

func (r *UsageReport) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Targets))
	for _, t := range r.Targets {
		row := []string{t.Server, t.Path, strings.Join(t.Claims, " "), "", "", "", "", t.Error}
		if t.Error == "" {
			row[3] = FormatBytes(t.TotalBytes)
			row[4] = FormatBytes(t.UsedBytes)
			row[5] = FormatBytes(t.FreeBytes)
			row[6] = fmt.Sprintf("%.1f%%", t.UsedPct)
		}
		rows = append(rows, row)
	}
	return rows
}

// Measured reports how many targets were successfully mounted and measured.
func (r *UsageReport) Measured() int {
	n := 0
	for _, t := range r.Targets {
		if t.Error == "" {
			n++
		}
	}
	return n
}

// Checker mounts NFS targets one at a time, measures filesystem usage
// and unmounts again.
type Checker struct {
	mounter mounter
	usage   func(path string) (*disk.UsageStat, error)
}

// NewChecker returns a Checker using the system mount/umount binaries.
func NewChecker(opts Options) *Checker {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultMountTimeout
	}
	return &Checker{
		mounter: mounter{
			run:     execRunner{},
			timeout: timeout,
			options: opts.MountOptions,
			baseDir: opts.MountDir,
		},
		usage: disk.Usage,
	}
}

// Check runs the mount-measure-unmount sequence for every target
// sequentially. A failed target is recorded in the report and the run
// continues; callers decide whether an all-failed report is fatal.
func (c *Checker) Check(ctx context.Context, targets []kube.NFSTarget) *UsageReport {
	report := &UsageReport{}

	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			report.Targets = append(report.Targets, UsageRow{
				Server: target.Server,
				Path:   target.Path,
				Claims: target.Claims,
				Error:  err.Error(),
			})
			continue
		}

		row := c.checkOne(ctx, target)
		report.Targets = append(report.Targets, row)
	}

	return report
}

func (c *Checker) checkOne(ctx context.Context, target kube.NFSTarget) UsageRow {
	row := UsageRow{
		Server: target.Server,
		Path:   target.Path,
		Claims: target.Claims,
	}

	slog.Debug("mounting nfs target", "addr", target.Addr())
	dir, err := c.mounter.mount(ctx, target.Addr())
	if err != nil {
		slog.Warn("skipping nfs target", "addr", target.Addr(), "error", err)
		row.Error = err.Error()
		return row
	}
	defer c.mounter.unmount(ctx, dir)

	stat, err := c.usage(dir)
	if err != nil {
		row.Error = fmt.Sprintf("failed to read filesystem usage: %v", err)
		return row
	}

	row.TotalBytes = stat.Total
	row.UsedBytes = stat.Used
	row.FreeBytes = stat.Free
	row.UsedPct = stat.UsedPercent
	return row
}

// TruncateTargets cuts every export path down to the first depth
// components and re-deduplicates, so sibling exports under a shared
// root are mounted and measured once. Depth 0 returns the targets
// unchanged.
func TruncateTargets(targets []kube.NFSTarget, depth int) []kube.NFSTarget {
	if depth <= 0 {
		return targets
	}

	byKey := make(map[string]*kube.NFSTarget)
	var order []string
	for _, t := range targets {
		truncated := truncatePath(t.Path, depth)
		key := t.Server + ":" + truncated
		merged, ok := byKey[key]
		if !ok {
			merged = &kube.NFSTarget{Server: t.Server, Path: truncated}
			byKey[key] = merged
			order = append(order, key)
		}
		merged.Claims = append(merged.Claims, t.Claims...)
	}

	out := make([]kube.NFSTarget, 0, len(order))
	for _, key := range order {
		t := byKey[key]
		sort.Strings(t.Claims)
		out = append(out, *t)
	}
	return out
}

// truncatePath keeps the first depth components of an absolute path:
// truncatePath("/exports/vol1/data", 2) == "/exports/vol1".
func truncatePath(path string, depth int) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) > 0 && parts[0] == "" {
		return "/"
	}
	if len(parts) > depth {
		parts = parts[:depth]
	}
	return "/" + strings.Join(parts, "/")
}

// FormatBytes renders a byte count with binary-unit suffixes, matching
// the Ki/Mi/Gi convention used elsewhere in the reports.
func FormatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%dB", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ci", float64(b)/float64(div), "KMGTPE"[exp])
}
