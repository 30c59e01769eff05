package analysis

import "github.com/jedib0t/go-pretty/v6/text"

// Verdict classifies how loaded a node is on its hottest dimension.
type Verdict struct {
	Label string
	Color text.Color
}

var (
	VerdictIdle     = Verdict{"Idle", text.Faint}
	VerdictOK       = Verdict{"OK", text.FgGreen}
	VerdictHigh     = Verdict{"High", text.FgYellow}
	VerdictCritical = Verdict{"Critical", text.FgRed}
)

// UtilizationVerdict returns the verdict for a usage percentage of
// allocatable capacity.
func UtilizationVerdict(pct float64) Verdict {
	switch {
	case pct < 10:
		return VerdictIdle
	case pct < 70:
		return VerdictOK
	case pct < 85:
		return VerdictHigh
	default:
		return VerdictCritical
	}
}

// ColorFor maps a verdict label back to its display color so table
// renderers can colorize cells without recomputing the verdict.
// Unknown labels get no color.
func ColorFor(label string) (text.Color, bool) {
	for _, v := range []Verdict{VerdictIdle, VerdictOK, VerdictHigh, VerdictCritical} {
		if v.Label == label {
			return v.Color, true
		}
	}
	return 0, false
}
