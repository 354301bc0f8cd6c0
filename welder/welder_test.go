package welder

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arcweld/arcfit"
)

func defaultArcConfig() arcfit.Config {
	return arcfit.Config{
		ResolutionMM:         0.05,
		PathTolerancePercent: 0.05,
		MaxRadiusMM:          9999,
		MinSegments:          3,
		MaxSegments:          200,
		XYZPrecision:         3,
		EPrecision:           5,
	}
}

func newTestWelder(cfg arcfit.Config) (*Welder, *[]string) {
	out := &[]string{}
	w := New(Config{
		Arc:           cfg,
		ExtruderCount: 1,
		Output: func(line string) error {
			*out = append(*out, line)
			return nil
		},
	}, nil)
	return w, out
}

func runLines(t *testing.T, w *Welder, lines []string) {
	t.Helper()
	for _, l := range lines {
		require.NoErrorf(t, w.ProcessLine(l), "ProcessLine(%q)", l)
	}
	require.NoError(t, w.Finish())
}

// circleLines emits n G1 chords tracing a circle (i = 1..n), assuming the
// tracker is already positioned at the circle's startDeg point (see
// primeToCircleStart). F is set only on the chords at the indices in
// feedAt (as "F<value>").
func circleLines(cx, cy, radius, startDeg, sweepDeg float64, n int, ePerLen float64, feedAt map[int]float64) []string {
	var lines []string
	e := 0.0
	prevX := cx + radius*math.Cos(startDeg*math.Pi/180)
	prevY := cy + radius*math.Sin(startDeg*math.Pi/180)
	for i := 1; i <= n; i++ {
		angle := (startDeg + sweepDeg*float64(i)/float64(n)) * math.Pi / 180
		x := cx + radius*math.Cos(angle)
		y := cy + radius*math.Sin(angle)
		seg := math.Hypot(x-prevX, y-prevY)
		e += seg * ePerLen
		lines = append(lines, fmt.Sprintf("G1 X%.4f Y%.4f E%.5f", x, y, e)+feedSuffix(feedAt, i))
		prevX, prevY = x, y
	}
	return lines
}

func feedSuffix(feedAt map[int]float64, i int) string {
	if f, ok := feedAt[i]; ok {
		return fmt.Sprintf(" F%.0f", f)
	}
	return ""
}

// primeToCircleStart repositions the tracker onto a circle's starting point
// via G92 (no physical move), so the run's implicit start point (the
// position before the first accepted chord) lies on the circle instead of
// wherever the tracker happened to be.
func primeToCircleStart(cx, cy, radius, startDeg float64) string {
	x := cx + radius*math.Cos(startDeg*math.Pi/180)
	y := cy + radius*math.Sin(startDeg*math.Pi/180)
	return fmt.Sprintf("G92 X%.4f Y%.4f E0", x, y)
}

func TestSquarePassesThroughUnchanged(t *testing.T) {
	w, out := newTestWelder(defaultArcConfig())
	lines := []string{
		"G90",
		"G1 X0 Y0 E0 F1200",
		"G1 X10 Y0 E1",
		"G1 X10 Y10 E2",
		"G1 X0 Y10 E3",
		"G1 X0 Y0 E4",
	}
	runLines(t, w, lines)
	assert.Zerof(t, w.Counters.ArcsCreated, "expected no arcs for a square, output=%v", *out)
	for _, l := range lines {
		assert.Truef(t, contains(*out, l), "expected line %q to survive unchanged, output = %v", l, *out)
	}
}

func TestCircleBecomesOneArc(t *testing.T) {
	w, out := newTestWelder(defaultArcConfig())
	lines := append([]string{"G90", primeToCircleStart(0, 0, 20, 0)}, circleLines(0, 0, 20, 0, 300, 64, 0.02, map[int]float64{1: 1500})...)
	runLines(t, w, lines)
	assert.Equalf(t, 1, w.Counters.ArcsCreated, "output=%v", *out)
	assert.Truef(t, anyPrefixed(*out, "G2", "G3"), "expected a G2/G3 line in output, got %v", *out)
}

func TestFeedrateChangeSplitsIntoTwoArcs(t *testing.T) {
	w, out := newTestWelder(defaultArcConfig())
	// Prime the machine's feedrate to 1500 on a non-motion line before the
	// run starts, so the first arc's own feedrate (1500) already matches
	// what is active and can be omitted.
	lines := append([]string{"G90", primeToCircleStart(0, 0, 20, 0), "G1 F1500"},
		circleLines(0, 0, 20, 0, 300, 64, 0, map[int]float64{33: 3000})...)
	runLines(t, w, lines)
	require.Equalf(t, 2, w.Counters.ArcsCreated, "output=%v", *out)
	arcs := prefixed(*out, "G2", "G3")
	require.Len(t, arcs, 2)
	assert.Contains(t, arcs[1], "F3000", "expected second arc to carry the new feedrate")
	assert.NotContains(t, arcs[0], "F", "expected first arc to omit F (feedrate already matched)")
}

func TestRetractionAfterArcEmittedVerbatim(t *testing.T) {
	w, out := newTestWelder(defaultArcConfig())
	lines := append([]string{"G90", primeToCircleStart(0, 0, 20, 0)}, circleLines(0, 0, 20, 0, 90, 16, 0.02, map[int]float64{1: 1500})...)
	lines = append(lines, "G1 E-2 F2400")
	runLines(t, w, lines)
	require.Equalf(t, 1, w.Counters.ArcsCreated, "output=%v", *out)
	assert.Contains(t, *out, "G1 E-2 F2400", "expected the retraction line to survive verbatim")
	require.NotEmpty(t, *out)
	assert.Equal(t, "G1 E-2 F2400", (*out)[len(*out)-1], "expected retraction to be the last output line")
}

func TestNonMotionLinesPassThrough(t *testing.T) {
	w, out := newTestWelder(defaultArcConfig())
	lines := []string{
		"; header comment",
		"M104 S200",
		"G28",
	}
	runLines(t, w, lines)
	require.Lenf(t, *out, len(lines), "expected every non-motion line to pass through, got %v", *out)
	for i, l := range lines {
		assert.Equalf(t, l, (*out)[i], "line %d", i)
	}
}

// TestFeatureTypeChangeSplitsIntoTwoArcs verifies spec §4.2's feature-type
// gate: a ";TYPE:" change mid-run ends the open run just like a feedrate
// change, even though nothing about the geometry itself changed.
func TestFeatureTypeChangeSplitsIntoTwoArcs(t *testing.T) {
	w, out := newTestWelder(defaultArcConfig())
	lines := []string{"G90", primeToCircleStart(0, 0, 20, 0), ";TYPE:Perimeter"}
	chords := circleLines(0, 0, 20, 0, 300, 64, 0, nil)
	lines = append(lines, chords[:32]...)
	lines = append(lines, ";TYPE:Infill")
	lines = append(lines, chords[32:]...)
	runLines(t, w, lines)
	require.Equalf(t, 2, w.Counters.ArcsCreated, "output=%v", *out)
}

func contains(lines []string, want string) bool {
	for _, l := range lines {
		if l == want {
			return true
		}
	}
	return false
}

func anyPrefixed(lines []string, prefixes ...string) bool {
	return len(prefixed(lines, prefixes...)) > 0
}

func prefixed(lines []string, prefixes ...string) []string {
	var out []string
	for _, l := range lines {
		for _, p := range prefixes {
			if strings.HasPrefix(l, p) {
				out = append(out, l)
				break
			}
		}
	}
	return out
}
