package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dnviti/k8s-useful-metrics/internal/kube"
	"github.com/dnviti/k8s-useful-metrics/internal/nfs"
)

var (
	nfsDepth        int
	nfsMountTimeout time.Duration
	nfsMountDir     string
	nfsMountOptions string
)

var nfsCmd = &cobra.Command{
	Use:   "nfs",
	Short: "Inspect NFS-backed persistent volumes",
}

var nfsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Map PVCs to the NFS exports backing them",
	Long: `Correlates PersistentVolumeClaims to their bound PersistentVolumes
and lists the NFS server/path behind each one. Unbound NFS volumes are
included with empty claim columns.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := kube.FetchNFSVolumes(cmd.Context(), clients)
		if err != nil {
			return err
		}
		return render("NFS Volumes", report)
	},
}

var nfsUsageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Mount each NFS export and measure its usage",
	Long: `Builds the deduplicated set of NFS server/path targets behind the
cluster's persistent volumes, optionally truncated to --depth leading
path components, then mounts each target read-only, measures the
filesystem usage and unmounts again.

Targets that cannot be mounted (server unreachable, permission denied,
timeout) are reported with their error and do not stop the run; the
command fails only when no target could be measured at all. Mounting
requires root privileges.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		volumes, err := kube.FetchNFSVolumes(cmd.Context(), clients)
		if err != nil {
			return err
		}

		targets := nfs.TruncateTargets(volumes.Targets(), nfsDepth)
		if len(targets) == 0 {
			slog.Info("no NFS-backed persistent volumes found")
			return render("NFS Usage", &nfs.UsageReport{})
		}

		if os.Geteuid() != 0 {
			slog.Warn("not running as root, mounts will likely fail with permission errors")
		}

		checker := nfs.NewChecker(nfs.Options{
			Depth:        nfsDepth,
			Timeout:      nfsMountTimeout,
			MountDir:     nfsMountDir,
			MountOptions: nfsMountOptions,
		})
		report := checker.Check(cmd.Context(), targets)

		if err := render("NFS Usage", report); err != nil {
			return err
		}
		if report.Measured() == 0 {
			return fmt.Errorf("all %d NFS targets failed", len(targets))
		}
		return nil
	},
}

func init() {
	nfsUsageCmd.Flags().IntVar(&nfsDepth, "depth", 0, "truncate export paths to N leading components before mounting (0 = full path)")
	nfsUsageCmd.Flags().DurationVar(&nfsMountTimeout, "mount-timeout", nfs.DefaultMountTimeout, "timeout per mount attempt")
	nfsUsageCmd.Flags().StringVar(&nfsMountDir, "mount-dir", "", "parent directory for temporary mountpoints (default: system temp dir)")
	nfsUsageCmd.Flags().StringVar(&nfsMountOptions, "mount-options", "", "extra mount options appended after ro (e.g. vers=4,soft)")

	nfsCmd.AddCommand(nfsListCmd)
	nfsCmd.AddCommand(nfsUsageCmd)
	rootCmd.AddCommand(nfsCmd)
}
