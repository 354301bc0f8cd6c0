// Package position tracks the modal state of a G-code stream: absolute vs.
// relative positioning, absolute vs. relative extrusion, the active offset,
// feedrate and extruder index, and the Cartesian/extruder position that
// results from applying one parsed command to that state.
//
// It exposes exactly one step of history (current and previous position)
// plus a single UndoLast, which is all the welder's arc-commit path (spec
// §4.3 step 3) ever needs: "undo the position tracker's last update... the
// welder will re-process it".
package position

import "arcweld/gcode"

// Point is an absolute Cartesian + extruder position.
type Point struct {
	X, Y, Z, E float64
}

// State is the tracker's modal configuration at a point in time.
type State struct {
	AbsoluteXYZ bool
	AbsoluteE   bool
	Feedrate    float64
	Extruder    int
	Offset      Point // set by G92

	// FeatureType is the most recent slicer ";TYPE:" tag seen, carried
	// forward across lines that don't change it.
	FeatureType string
}

// Tracker is a stepwise (state, command) -> state' function with one level
// of undo, grounded on the teacher's vm/positioning.go and vm/coordinates.go
// but collapsed from a full position stack to current+previous only.
type Tracker struct {
	g90InfluencesExtruder bool
	extruderCount         int

	state State
	cur   Point
	prev  Point

	// undo snapshot, valid only immediately after Step.
	haveUndo  bool
	undoState State
	undoCur   Point
	undoPrev  Point
}

// NewTracker constructs a Tracker. extruderCount is raised to 1 if smaller
// and recorded; the tracker keeps no per-extruder state (no per-extruder
// position, retraction or offset arrays), so every extruder shares the one
// position and offset tracked here and a T command only changes
// State.Extruder (see SPEC_FULL.md §6.1).
func NewTracker(g90InfluencesExtruder bool, extruderCount int) *Tracker {
	if extruderCount < 1 {
		extruderCount = 1
	}
	return &Tracker{
		g90InfluencesExtruder: g90InfluencesExtruder,
		extruderCount:         extruderCount,
		state:                 State{AbsoluteXYZ: true, AbsoluteE: true},
	}
}

// Current returns the position after the most recent Step.
func (t *Tracker) Current() Point { return t.cur }

// Previous returns the position before the most recent Step.
func (t *Tracker) Previous() Point { return t.prev }

// State returns the modal state after the most recent Step.
func (t *Tracker) State() State { return t.state }

// IsAbsoluteXYZ reports whether X/Y/Z are currently interpreted as absolute.
func (t *Tracker) IsAbsoluteXYZ() bool { return t.state.AbsoluteXYZ }

// IsAbsoluteExtruder reports whether E is currently interpreted as absolute.
func (t *Tracker) IsAbsoluteExtruder() bool { return t.state.AbsoluteE }

// Feedrate returns the last commanded feedrate.
func (t *Tracker) Feedrate() float64 { return t.state.Feedrate }

// Step applies cmd to the tracker's modal state, returning the resulting
// absolute position. Non-motion commands (G90/G91/G92/M82/M83/F-only) update
// modal state without producing a new point; callers should treat the
// returned Point as equal to Current() in that case (no actual move).
func (t *Tracker) Step(cmd gcode.ParsedCommand) Point {
	t.undoState, t.undoCur, t.undoPrev = t.state, t.cur, t.prev
	t.haveUndo = true

	if cmd.FeatureType != "" {
		t.state.FeatureType = cmd.FeatureType
	}

	switch {
	case cmd.IsG(90):
		t.state.AbsoluteXYZ = true
		if t.g90InfluencesExtruder {
			t.state.AbsoluteE = true
		}
		return t.cur
	case cmd.IsG(91):
		t.state.AbsoluteXYZ = false
		if t.g90InfluencesExtruder {
			t.state.AbsoluteE = false
		}
		return t.cur
	case cmd.Letter == 'M' && cmd.Number == 82:
		t.state.AbsoluteE = true
		return t.cur
	case cmd.Letter == 'M' && cmd.Number == 83:
		t.state.AbsoluteE = false
		return t.cur
	case cmd.IsG(92):
		t.applyOriginReset(cmd)
		return t.cur
	case cmd.Letter == 'T':
		t.state.Extruder = int(cmd.Number)
		return t.cur
	case cmd.IsG(0), cmd.IsG(1):
		return t.applyMove(cmd)
	default:
		if f, ok := cmd.Param('F'); ok {
			t.state.Feedrate = f
		}
		return t.cur
	}
}

func (t *Tracker) applyOriginReset(cmd gcode.ParsedCommand) {
	// G92 redefines the current position as the given coordinates without
	// moving the tool; implemented as an offset shift so future absolute
	// moves land on the new origin.
	if x, ok := cmd.Param('X'); ok {
		t.state.Offset.X += t.cur.X - x
		t.cur.X = x
	}
	if y, ok := cmd.Param('Y'); ok {
		t.state.Offset.Y += t.cur.Y - y
		t.cur.Y = y
	}
	if z, ok := cmd.Param('Z'); ok {
		t.state.Offset.Z += t.cur.Z - z
		t.cur.Z = z
	}
	if e, ok := cmd.Param('E'); ok {
		t.state.Offset.E += t.cur.E - e
		t.cur.E = e
	}
}

func (t *Tracker) applyMove(cmd gcode.ParsedCommand) Point {
	t.prev = t.cur
	next := t.cur

	if x, ok := cmd.Param('X'); ok {
		if t.state.AbsoluteXYZ {
			next.X = x
		} else {
			next.X = t.cur.X + x
		}
	}
	if y, ok := cmd.Param('Y'); ok {
		if t.state.AbsoluteXYZ {
			next.Y = y
		} else {
			next.Y = t.cur.Y + y
		}
	}
	if z, ok := cmd.Param('Z'); ok {
		if t.state.AbsoluteXYZ {
			next.Z = z
		} else {
			next.Z = t.cur.Z + z
		}
	}
	if e, ok := cmd.Param('E'); ok {
		if t.state.AbsoluteE {
			next.E = e
		} else {
			next.E = t.cur.E + e
		}
	}
	if f, ok := cmd.Param('F'); ok {
		t.state.Feedrate = f
	}

	t.cur = next
	return t.cur
}

// UndoLast reverts the most recent Step, so the command that produced it can
// be re-processed. It is a programming error to call UndoLast twice in a row
// without an intervening Step.
func (t *Tracker) UndoLast() {
	if !t.haveUndo {
		panic("position: UndoLast called with no pending step")
	}
	t.state, t.cur, t.prev = t.undoState, t.undoCur, t.undoPrev
	t.haveUndo = false
}
