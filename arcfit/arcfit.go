// Package arcfit implements the streaming arc-fitting accumulator: the
// core of arcweld (spec §4.1). It consumes PrinterPoints one at a time,
// greedily decides whether the run accumulated so far is (or could become)
// a valid circular arc within the configured tolerances, and on request
// emits a single G2/G3 command that replaces the run.
//
// The fit itself is an algebraic (Kåsa) least-squares circle fit maintained
// via running sums, grounded on the trigonometry in the teacher's
// vm/positioning.go arc() (radius/angle/direction math), generalized from
// "replay an arc as segments" to "discover whether segments form an arc".
package arcfit

import (
	"fmt"
	"math"
	"strconv"
)

// PrinterPoint is one vertex of the original toolpath. Immutable once
// created (spec §3).
type PrinterPoint struct {
	X, Y, Z       float64
	ERelative     float64 // mm of filament delivered from the previous point
	SegmentLength float64 // cartesian distance from the previous point
}

func (p PrinterPoint) distanceXY(q PrinterPoint) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Config is the Accumulator's immutable construction-time configuration
// (spec §3).
type Config struct {
	ResolutionMM         float64
	PathTolerancePercent float64
	MaxRadiusMM          float64
	MinArcSegments       int
	MMPerArcSegment      float64
	Allow3DArcs          bool
	MinSegments          int
	MaxSegments          int
	XYZPrecision         int
	EPrecision           int
}

// kasaSums holds the running sums for the algebraic circle fit:
// minimizing sum((x-a)^2+(y-b)^2-r^2)^2 reduces to a 3x3 linear solve in
// (2a, 2b, c) against z = x^2+y^2, accumulated incrementally so adding a
// point is O(1).
type kasaSums struct {
	n                                   int
	sx, sy, sxx, syy, sxy, sz, sxz, syz float64
}

func (s kasaSums) add(x, y float64) kasaSums {
	z := x*x + y*y
	s.n++
	s.sx += x
	s.sy += y
	s.sxx += x * x
	s.syy += y * y
	s.sxy += x * y
	s.sz += z
	s.sxz += x * z
	s.syz += y * z
	return s
}

// fit solves for the least-squares circle center and radius. Returns ok=false
// if the system is singular (fewer than 3 effectively-distinct points).
func (s kasaSums) fit() (cx, cy, r float64, ok bool) {
	if s.n < 3 {
		return 0, 0, 0, false
	}
	n := float64(s.n)
	// | 2*sxx  2*sxy  sx | |a|   |sxz|
	// | 2*sxy  2*syy  sy | |b| = |syz|
	// | 2*sx   2*sy   n  | |c|   |sz |
	m00, m01, m02 := 2*s.sxx, 2*s.sxy, s.sx
	m10, m11, m12 := 2*s.sxy, 2*s.syy, s.sy
	m20, m21, m22 := 2*s.sx, 2*s.sy, n
	b0, b1, b2 := s.sxz, s.syz, s.sz

	det := m00*(m11*m22-m12*m21) - m01*(m10*m22-m12*m20) + m02*(m10*m21-m11*m20)
	if math.Abs(det) < 1e-12 {
		return 0, 0, 0, false
	}

	detA := b0*(m11*m22-m12*m21) - m01*(b1*m22-m12*b2) + m02*(b1*m21-m11*b2)
	detB := m00*(b1*m22-m12*b2) - b0*(m10*m22-m12*m20) + m02*(m10*b2-b1*m20)
	detC := m00*(m11*b2-b1*m21) - m01*(m10*b2-b1*m20) + b0*(m10*m21-m11*m20)

	a := detA / det
	b := detB / det
	c := detC / det

	r2 := c + a*a + b*b
	if r2 < 0 {
		return 0, 0, 0, false
	}
	return a, b, math.Sqrt(r2), true
}

// Accumulator is the streaming arc fitter (spec §4.1).
type Accumulator struct {
	cfg Config

	points []PrinterPoint
	sums   kasaSums

	totalLength    float64
	totalExtrusion float64

	zSign int // 0 = undetermined, +1/-1 = established helical direction

	sweepSign      int     // 0 = undetermined, +1/-1 = established rotation direction
	cumulativeSweep float64

	firmwareCompensations int
	firmwareFlagged       bool
}

// NewAccumulator constructs an Accumulator with the given immutable config.
func NewAccumulator(cfg Config) *Accumulator {
	if cfg.MinSegments < 1 {
		cfg.MinSegments = 3
	}
	return &Accumulator{cfg: cfg}
}

// Clear empties the accumulator, preserving configuration.
func (a *Accumulator) Clear() {
	a.points = nil
	a.sums = kasaSums{}
	a.totalLength = 0
	a.totalExtrusion = 0
	a.zSign = 0
	a.sweepSign = 0
	a.cumulativeSweep = 0
	a.firmwareCompensations = 0
	a.firmwareFlagged = false
}

// GetNumSegments returns the accumulated point count, start point included
// (matching original_source/ArcWelder/arc_welder.cpp's get_num_segments():
// "points_compressed_ += current_arc_.get_num_segments()-1" only makes sense
// if get_num_segments counts the start point too, and min_segments=3 only
// makes sense as "3 points" given the Kåsa fit itself requires n>=3 points).
// The number of actual chords in the run is GetNumSegments()-1.
func (a *Accumulator) GetNumSegments() int {
	return len(a.points)
}

// GetShapeLength returns the cumulative chord length of the accepted run.
func (a *Accumulator) GetShapeLength() float64 { return a.totalLength }

// GetNumFirmwareCompensations returns how many times this run's arc length
// would have produced fewer firmware-interpolation segments than required,
// and was accepted anyway by relaxing that requirement (spec §4.1 is_shape).
func (a *Accumulator) GetNumFirmwareCompensations() int { return a.firmwareCompensations }

const epsilon = 1e-9

func closeEnough(a, b float64) bool { return math.Abs(a-b) < epsilon }

func (a *Accumulator) meanSegmentLength() float64 {
	n := len(a.points) - 1
	if n <= 0 {
		return 0
	}
	return a.totalLength / float64(n)
}

// TryAddPoint attempts to extend the run by one point (spec §4.1). If the
// run is empty, p is stored unconditionally as the starting point. Returns
// false without mutating state if p cannot extend the run as an arc.
func (a *Accumulator) TryAddPoint(p PrinterPoint) bool {
	if len(a.points) == 0 {
		a.points = []PrinterPoint{p}
		a.sums = a.sums.add(p.X, p.Y)
		return true
	}

	prev := a.points[len(a.points)-1]

	// (1) zero-length segment.
	if closeEnough(prev.X, p.X) && closeEnough(prev.Y, p.Y) && (!a.cfg.Allow3DArcs || closeEnough(prev.Z, p.Z)) {
		return false
	}

	// (2) per-segment length vs. the run's established chord length.
	if len(a.points) >= 2 {
		predicted := a.meanSegmentLength()
		tol := math.Max(a.cfg.ResolutionMM, a.cfg.PathTolerancePercent*predicted)
		if math.Abs(p.SegmentLength-predicted) > tol {
			return false
		}
	}

	// (7) Z monotonicity / helix handling.
	dz := p.Z - prev.Z
	newZSign := a.zSign
	if !a.cfg.Allow3DArcs {
		if !closeEnough(p.Z, a.points[0].Z) {
			return false
		}
	} else if dz != 0 {
		sign := 1
		if dz < 0 {
			sign = -1
		}
		if a.zSign != 0 && sign != a.zSign {
			return false
		}
		newZSign = sign
	} else if a.zSign != 0 {
		// A previously-established helix must stay strictly monotone.
		return false
	}

	// (3) recompute best-fit circle including the candidate point. With
	// fewer than 3 points a circle fit is singular (infinitely many circles
	// pass through one or two points), so the run is accepted provisionally
	// until there is enough data to judge circularity.
	candSums := a.sums.add(p.X, p.Y)
	var cx, cy, r float64
	haveFit := candSums.n >= 3
	if haveFit {
		var ok bool
		cx, cy, r, ok = candSums.fit()
		if !ok {
			return false
		}

		// (4) radius bounds.
		if r > a.cfg.MaxRadiusMM || r < a.cfg.ResolutionMM {
			return false
		}

		// (5) every stored point (including the candidate) must lie within
		// resolution of the fitted circle.
		for _, q := range a.points {
			if math.Abs(math.Hypot(q.X-cx, q.Y-cy)-r) > a.cfg.ResolutionMM {
				return false
			}
		}
		if math.Abs(math.Hypot(p.X-cx, p.Y-cy)-r) > a.cfg.ResolutionMM {
			return false
		}

		// (5b) every chord between consecutive points must itself stay
		// within resolution of the arc it would replace: a vertex can sit
		// exactly on the fitted circle while the straight segment leading
		// to it bows away from the arc by its sagitta, r - sqrt(r^2 -
		// (chord/2)^2). This is what actually separates a long straight
		// edge (e.g. a square's corners, which are concyclic) from a
		// finely-sampled polygon approximating a real arc.
		chordPoints := append(append([]PrinterPoint(nil), a.points...), p)
		for i := 1; i < len(chordPoints); i++ {
			half := chordPoints[i-1].distanceXY(chordPoints[i]) / 2
			if half > r {
				return false
			}
			sagitta := r - math.Sqrt(r*r-half*half)
			if sagitta > a.cfg.ResolutionMM {
				return false
			}
		}
	}

	// (6) extrusion-per-chord-length consistency.
	if len(a.points) >= 2 && a.totalLength > 0 {
		existingRate := a.totalExtrusion / a.totalLength
		if p.SegmentLength > 0 {
			newRate := p.ERelative / p.SegmentLength
			if existingRate > 0 {
				tol := math.Max(a.cfg.PathTolerancePercent*existingRate, 1e-9)
				if math.Abs(newRate-existingRate) > tol {
					return false
				}
			} else if newRate != 0 {
				return false
			}
		} else if p.ERelative != 0 {
			return false
		}
	}

	// (8) cumulative swept angle and sweep-direction consistency, recomputed
	// over the whole candidate run against the candidate center.
	candidatePoints := append(append([]PrinterPoint(nil), a.points...), p)
	var sweep float64
	var sweepSign int
	if haveFit {
		var sweepOK bool
		sweep, sweepSign, sweepOK = sweepOf(candidatePoints, cx, cy)
		if !sweepOK || sweep >= 2*math.Pi-1e-9 {
			return false
		}
	}

	// (9) run-length cap.
	if a.GetNumSegments() >= a.cfg.MaxSegments {
		return false
	}

	// Accepted: commit.
	a.points = candidatePoints
	a.sums = candSums
	a.totalLength += p.SegmentLength
	a.totalExtrusion += p.ERelative
	a.zSign = newZSign
	a.cumulativeSweep = sweep
	a.sweepSign = sweepSign
	return true
}

// sweepOf computes the total absolute angular sweep of pts around (cx,cy)
// and the consistent rotation sign, or sweepOK=false if the points reverse
// direction partway through (inconsistent single-sweep ordering, spec §4.1
// step 8).
func sweepOf(pts []PrinterPoint, cx, cy float64) (total float64, sign int, ok bool) {
	if len(pts) < 2 {
		return 0, 0, true
	}
	thetas := make([]float64, len(pts))
	for i, p := range pts {
		thetas[i] = math.Atan2(p.Y-cy, p.X-cx)
	}
	for i := 1; i < len(thetas); i++ {
		d := thetas[i] - thetas[i-1]
		for d > math.Pi {
			d -= 2 * math.Pi
		}
		for d < -math.Pi {
			d += 2 * math.Pi
		}
		if d == 0 {
			continue
		}
		s := 1
		if d < 0 {
			s = -1
		}
		if sign == 0 {
			sign = s
		} else if sign != s {
			return total, sign, false
		}
		total += math.Abs(d)
	}
	return total, sign, true
}

// IsShape reports whether the accumulated run, if terminated now, satisfies
// spec §4.1's is_shape criteria. Firmware compensation never causes a
// rejection here: the accumulator would instead record the event (the
// "apparent resolution demand" relaxation the spec describes) and still
// accept the shape.
func (a *Accumulator) IsShape() bool {
	if a.GetNumSegments() < a.cfg.MinSegments {
		return false
	}
	if a.cfg.MMPerArcSegment > 0 && a.cfg.MinArcSegments > 0 {
		minLen := a.cfg.MMPerArcSegment * float64(a.cfg.MinArcSegments)
		if a.totalLength < minLen && !a.firmwareFlagged {
			a.firmwareCompensations++
			a.firmwareFlagged = true
		}
	}
	return true
}

func (a *Accumulator) direction() (clockwise bool, cx, cy float64) {
	cx, cy, _, _ = a.sums.fit()
	// Shoelace formula signed area over the accepted polyline.
	var area float64
	for i := 0; i < len(a.points)-1; i++ {
		p0, p1 := a.points[i], a.points[i+1]
		area += p0.X*p1.Y - p1.X*p0.Y
	}
	return area < 0, cx, cy
}

func formatFixed(v float64, precision int) string {
	if precision < 0 {
		precision = 0
	}
	return strconv.FormatFloat(v, 'f', precision, 64)
}

// GetShapeGCodeRelative emits a single G2/G3 command for the accumulated
// run, with extrusion expressed as a relative E delta. feedrate == nil omits
// the F parameter. xyzPrecision/ePrecision override the construction-time
// defaults so a caller tracking allow_dynamic_precision (spec §6) can widen
// formatting precision as the stream reveals it; pass a.cfg.XYZPrecision/
// a.cfg.EPrecision to keep the static defaults.
func (a *Accumulator) GetShapeGCodeRelative(xyzPrecision, ePrecision int, feedrate *float64) string {
	return a.gcode(a.totalExtrusion, xyzPrecision, ePrecision, feedrate)
}

// GetShapeGCodeAbsolute emits a single G2/G3 command for the accumulated
// run, with extrusion expressed as an absolute E value starting from
// absoluteE. feedrate == nil omits the F parameter.
func (a *Accumulator) GetShapeGCodeAbsolute(absoluteE float64, xyzPrecision, ePrecision int, feedrate *float64) string {
	return a.gcode(absoluteE+a.totalExtrusion, xyzPrecision, ePrecision, feedrate)
}

func (a *Accumulator) gcode(eValue float64, xyzPrecision, ePrecision int, feedrate *float64) string {
	if len(a.points) < 2 {
		panic("arcfit: GetShapeGCode called on a run with fewer than 2 points")
	}
	clockwise, cx, cy := a.direction()
	start := a.points[0]
	end := a.points[len(a.points)-1]

	word := "G3"
	if clockwise {
		word = "G2"
	}

	fxyz := func(v float64) string { return formatFixed(v, xyzPrecision) }
	fe := func(v float64) string { return formatFixed(v, ePrecision) }

	s := fmt.Sprintf("%s X%s Y%s", word, fxyz(end.X), fxyz(end.Y))
	if a.cfg.Allow3DArcs && !closeEnough(end.Z, start.Z) {
		s += fmt.Sprintf(" Z%s", fxyz(end.Z))
	}
	s += fmt.Sprintf(" I%s J%s", fxyz(cx-start.X), fxyz(cy-start.Y))
	s += fmt.Sprintf(" E%s", fe(eValue))
	if feedrate != nil {
		s += fmt.Sprintf(" F%s", strconv.FormatFloat(*feedrate, 'f', -1, 64))
	}
	return s
}

// MinSegments exposes the configured minimum run length the welder needs to
// evaluate the commit-decision's first branch (spec §4.2) without reaching
// into cfg directly.
func (a *Accumulator) MinSegments() int { return a.cfg.MinSegments }
