package analysis

import (
	"testing"

	"github.com/jedib0t/go-pretty/v6/text"
)

func TestUtilizationVerdict(t *testing.T) {
	tests := []struct {
		pct  float64
		want Verdict
	}{
		{0, VerdictIdle},
		{9.9, VerdictIdle},
		{10, VerdictOK},
		{50, VerdictOK},
		{69.9, VerdictOK},
		{70, VerdictHigh},
		{84.9, VerdictHigh},
		{85, VerdictCritical},
		{100, VerdictCritical},
		{130, VerdictCritical},
	}
	for _, tc := range tests {
		got := UtilizationVerdict(tc.pct)
		if got != tc.want {
			t.Errorf("UtilizationVerdict(%v) = %q, want %q", tc.pct, got.Label, tc.want.Label)
		}
	}
}

func TestColorFor(t *testing.T) {
	color, ok := ColorFor("Critical")
	if !ok {
		t.Fatal("ColorFor(Critical) not found")
	}
	if color != text.FgRed {
		t.Errorf("ColorFor(Critical) = %v, want %v", color, text.FgRed)
	}

	if _, ok := ColorFor("nonsense"); ok {
		t.Error("ColorFor(nonsense) should not resolve")
	}
}
