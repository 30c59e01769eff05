package nfs

import (
	"context"
	"errors"
	"testing"
)

func TestClassifyMountError(t *testing.T) {
	ctx := context.Background()
	execErr := errors.New("exit status 32")

	tests := []struct {
		name   string
		output string
		want   error
	}{
		{"access denied by server", "mount.nfs: access denied by server while mounting nas-1:/exports", ErrPermission},
		{"permission denied", "mount: only root can use \"--options\" option (effective UID is 1000)\npermission denied", ErrPermission},
		{"operation not permitted", "mount: /tmp/kum-nfs-1: operation not permitted.", ErrPermission},
		{"no route to host", "mount.nfs: No route to host", ErrUnreachable},
		{"connection refused", "mount.nfs: Connection refused", ErrUnreachable},
		{"connection timed out", "mount.nfs: Connection timed out", ErrUnreachable},
		{"dns failure", "mount.nfs: Failed to resolve server nas-9: unable to resolve host", ErrUnreachable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := classifyMountError(ctx, []byte(tc.output), execErr)
			if !errors.Is(got, tc.want) {
				t.Errorf("classifyMountError(%q) = %v, want %v", tc.output, got, tc.want)
			}
		})
	}
}

func TestClassifyMountErrorTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), -1)
	defer cancel()

	got := classifyMountError(ctx, nil, errors.New("signal: killed"))
	if !errors.Is(got, ErrTimeout) {
		t.Errorf("classifyMountError() = %v, want %v", got, ErrTimeout)
	}
}

func TestClassifyMountErrorUnknown(t *testing.T) {
	got := classifyMountError(context.Background(), []byte("mount.nfs: something odd happened\nsecond line"), errors.New("exit status 1"))
	if errors.Is(got, ErrPermission) || errors.Is(got, ErrUnreachable) || errors.Is(got, ErrTimeout) {
		t.Fatalf("unknown error was classified: %v", got)
	}
	if got.Error() != "mount failed: mount.nfs: something odd happened" {
		t.Errorf("unexpected message: %v", got)
	}
}

func TestFirstLine(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"one line", "one line"},
		{"first\nsecond", "first"},
		{"  padded  \nnext", "padded"},
		{"", ""},
	}
	for _, tc := range tests {
		t.Run(tc.want, func(t *testing.T) {
			if got := firstLine([]byte(tc.input)); got != tc.want {
				t.Errorf("firstLine(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}
