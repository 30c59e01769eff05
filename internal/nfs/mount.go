package nfs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Classified mount failures. Anything else is reported verbatim.
var (
	ErrUnreachable = errors.New("server unreachable")
	ErrPermission  = errors.New("permission denied")
	ErrTimeout     = errors.New("mount timed out")
)

// runner abstracts command execution so tests can stub out mount/umount.
type runner interface {
	run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// mounter performs mount/unmount of a single NFS export through the
// system mount binary.
type mounter struct {
	run     runner
	timeout time.Duration
	options string // extra -o options appended after ro
	baseDir string // parent for mountpoints, "" = system temp dir
}

// mount creates a private mountpoint and mounts addr (server:/path)
// read-only onto it. The returned mountpoint is valid only when err is nil.
func (m *mounter) mount(ctx context.Context, addr string) (string, error) {
	dir, err := os.MkdirTemp(m.baseDir, "kum-nfs-")
	if err != nil {
		return "", fmt.Errorf("failed to create mountpoint: %w", err)
	}

	opts := "ro"
	if m.options != "" {
		opts += "," + m.options
	}

	mctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	out, err := m.run.run(mctx, "mount", "-t", "nfs", "-o", opts, addr, dir)
	if err != nil {
		_ = os.Remove(dir)
		return "", classifyMountError(mctx, out, err)
	}

	return dir, nil
}

// unmount detaches the mountpoint and removes the directory. A busy
// mount is retried lazily; failures are logged, never fatal, so one
// stuck export cannot abort the remaining checks.
// Runs detached from the caller's cancellation: an interrupted run
// must still get its exports unmounted.
func (m *mounter) unmount(ctx context.Context, dir string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
	defer cancel()

	if out, err := m.run.run(ctx, "umount", dir); err != nil {
		slog.Warn("umount failed, retrying lazily", "mountpoint", dir, "error", err, "output", firstLine(out))
		if out, err := m.run.run(ctx, "umount", "-l", dir); err != nil {
			slog.Warn("lazy umount failed, leaving mountpoint behind", "mountpoint", dir, "error", err, "output", firstLine(out))
			return
		}
	}
	if err := os.Remove(dir); err != nil {
		slog.Warn("failed to remove mountpoint", "mountpoint", dir, "error", err)
	}
}

// classifyMountError maps a failed mount invocation to one of the
// sentinel errors where the output allows it.
func classifyMountError(ctx context.Context, output []byte, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}

	msg := strings.ToLower(string(output))
	switch {
	case strings.Contains(msg, "access denied"),
		strings.Contains(msg, "permission denied"),
		strings.Contains(msg, "operation not permitted"):
		return ErrPermission
	case strings.Contains(msg, "no route to host"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection timed out"),
		strings.Contains(msg, "network is unreachable"),
		strings.Contains(msg, "unable to resolve"):
		return ErrUnreachable
	}

	if line := firstLine(output); line != "" {
		return fmt.Errorf("mount failed: %s", line)
	}
	return fmt.Errorf("mount failed: %w", err)
}

func firstLine(output []byte) string {
	line, _, _ := strings.Cut(strings.TrimSpace(string(output)), "\n")
	return strings.TrimSpace(line)
}
