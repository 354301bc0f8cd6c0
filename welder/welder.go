// Package welder implements the Welder State Machine (spec §4.2): it drives
// the arc fitter from an input command stream, deciding for each parsed
// command whether to grow the open run, commit it as an arc, or flush it
// verbatim.
//
// Grounded on the teacher's top-level orchestration in main.go (parse a
// command, run it through a stateful machine, conditionally rewrite, emit)
// generalized from a batch multi-pass optimizer into a single streaming
// state machine that makes its commit/flush decision one line at a time.
package welder

import (
	"math"

	"arcweld/arcfit"
	"arcweld/gcode"
	"arcweld/position"
	"arcweld/stats"
	"arcweld/weldererr"
	"arcweld/welder/buffer"
)

// State is the welder's coarse-grained mode (spec §4.2).
type State int

const (
	IDLE State = iota
	RUNNING
)

// Config is the welder's immutable construction-time configuration.
type Config struct {
	Arc arcfit.Config

	G90InfluencesExtruder bool
	AllowDynamicPrecision bool

	// ExtruderCount is handed to the position tracker, which records it; no
	// per-extruder state is kept, so all extruders share one tracked
	// position and offset (spec §6.1).
	ExtruderCount int

	// Output is called once per output line the welder produces, in source
	// order. Header comment lines are not passed through it: the caller
	// writes those separately. Required.
	Output func(line string) error
}

// Counters are the welder's monotonic stream-wide counters (spec §3).
type Counters struct {
	LinesProcessed        int
	GCodesProcessed       int
	PointsCompressed      int
	ArcsCreated           int
	FirmwareCompensations int
}

// Welder is the streaming arc-substitution state machine.
type Welder struct {
	cfg     Config
	tracker *position.Tracker
	fitter  *arcfit.Accumulator
	buf     buffer.Buffer
	Stats   *stats.Stats

	state State

	runFeedrate                float64 // feedrate the open run itself executes at
	preRunFeedrate             float64 // feedrate active on the machine just before the run began
	runFeatureType             string  // slicer feature tag the open run itself executes under
	previousIsExtruderRelative bool
	runStartOffset             position.Point
	runStartAbsoluteE          float64
	runExtrudeSign             int // 0 = unestablished, +1 extruding, -1 retracting

	xyzPrecision int
	ePrecision   int

	Counters Counters

	// cancelled is latched by the caller via Cancel(); ProcessLine still
	// finishes the in-flight line (spec §5) but new lines should not be fed.
	cancelled bool
}

// New constructs a Welder. histogramBoundaries configures the embedded
// Stats.
func New(cfg Config, histogramBoundaries []float64) *Welder {
	return &Welder{
		cfg:          cfg,
		tracker:      position.NewTracker(cfg.G90InfluencesExtruder, cfg.ExtruderCount),
		fitter:       arcfit.NewAccumulator(cfg.Arc),
		Stats:        stats.New(histogramBoundaries),
		xyzPrecision: cfg.Arc.XYZPrecision,
		ePrecision:   cfg.Arc.EPrecision,
	}
}

// Cancelled reports whether cooperative cancellation has been requested.
func (w *Welder) Cancelled() bool { return w.cancelled }

// Cancel latches cooperative cancellation; the caller should stop feeding
// new lines after the current ProcessLine call returns.
func (w *Welder) Cancel() { w.cancelled = true }

// ProcessLine consumes one source line (spec §5: "pulling one line at a
// time, writing output before pulling the next").
func (w *Welder) ProcessLine(raw string) error {
	return w.process(raw, false)
}

// Finish runs end-of-stream handling (spec §4.2 "End of stream"): if
// RUNNING, run the commit decision with no new command, then flush.
func (w *Welder) Finish() error {
	if w.state == RUNNING {
		if _, err := w.commitDecision("", false); err != nil {
			return err
		}
	}
	return w.flush()
}

func (w *Welder) process(raw string, reprocess bool) error {
	cmd := gcode.Parse(raw)
	if !reprocess {
		w.Counters.LinesProcessed++
		if cmd.Letter != 0 {
			w.Counters.GCodesProcessed++
		}
	}

	prevPos := w.tracker.Current()
	prevState := w.tracker.State()
	curPos := w.tracker.Step(cmd)
	curState := w.tracker.State()

	w.trackDynamicPrecision(cmd)

	isMotion := cmd.IsG(0) || cmd.IsG(1)
	var point arcfit.PrinterPoint
	if isMotion {
		point = w.makePoint(prevPos, curPos)
		if !reprocess {
			w.Stats.RecordOriginal(point.SegmentLength)
		}
	}

	if w.eligible(cmd, prevPos, curPos, prevState, curState) {
		if w.state == IDLE {
			if err := w.flush(); err != nil {
				return err
			}
			w.state = RUNNING
			w.runFeedrate = curState.Feedrate
			w.preRunFeedrate = prevState.Feedrate
			w.runFeatureType = curState.FeatureType
			w.previousIsExtruderRelative = !curState.AbsoluteE
			w.runStartOffset = curState.Offset
			w.runStartAbsoluteE = prevPos.E
			w.runExtrudeSign = 0
			// The run's starting point is the terminus of the previously
			// written segment, carried at zero extrusion (spec §4.2).
			w.fitter.TryAddPoint(arcfit.PrinterPoint{X: prevPos.X, Y: prevPos.Y, Z: prevPos.Z})
		}

		if w.fitter.TryAddPoint(point) {
			w.updateExtrudeSign(point)
			w.buf.Append(buffer.UnwrittenCommand{
				RawText:         raw,
				Comment:         cmd.Comment,
				ExtrusionLength: point.ERelative,
				ModalSnapshot:   curState,
			})
			return nil
		}
		// Rejected: the fitter is unchanged; fall through to the commit
		// decision with this command held aside.
	}

	handledByCommit, err := w.commitDecision(raw, true)
	if err != nil {
		return err
	}
	if handledByCommit {
		// An arc was committed and this line was already re-processed by
		// commitArc under its new, post-commit state; nothing left to do.
		return nil
	}

	// Either no run was open, or the open run was too short/not a shape:
	// this line survives into the output verbatim, so it counts as its own
	// "compressed" segment (spec §4.5).
	if isMotion {
		w.Stats.RecordCompressed(point.SegmentLength)
	}
	w.buf.Append(buffer.UnwrittenCommand{
		RawText:         raw,
		Comment:         cmd.Comment,
		ExtrusionLength: 0,
		ModalSnapshot:   curState,
	})
	return w.flush()
}

// commitDecision implements spec §4.2's non-eligible/non-motion branch.
// handled reports whether an arc was committed (in which case, if
// reprocessTrigger is set, the triggering raw line was already re-processed
// internally and must not be appended again by the caller). reprocessTrigger
// is false at end-of-stream, where there is no command to re-issue.
func (w *Welder) commitDecision(rejectingRaw string, reprocessTrigger bool) (handled bool, err error) {
	if w.fitter.GetNumSegments() < w.fitter.MinSegments() {
		w.fitter.Clear()
		w.state = IDLE
		return false, nil
	}
	if w.fitter.IsShape() {
		if err := w.commitArc(rejectingRaw, reprocessTrigger); err != nil {
			return true, err
		}
		return true, nil
	}
	w.fitter.Clear()
	w.state = IDLE
	return false, nil
}

// eligible implements spec §4.2's arc-eligible-move predicate.
func (w *Welder) eligible(cmd gcode.ParsedCommand, prevPos, curPos position.Point, prevState, curState position.State) bool {
	if !cmd.IsG(0) && !cmd.IsG(1) {
		return false
	}
	if !curState.AbsoluteXYZ {
		return false
	}
	if curState.Offset != prevState.Offset {
		return false
	}
	if closeEnough0(curPos.X-prevPos.X) && closeEnough0(curPos.Y-prevPos.Y) {
		return false
	}
	eSign := signOf(curPos.E - prevPos.E)
	if w.state == RUNNING {
		if curState.Offset != w.runStartOffset {
			return false
		}
		if !closeEnough0(curState.Feedrate - w.runFeedrate) {
			return false
		}
		if curState.FeatureType != w.runFeatureType {
			return false
		}
		if w.runExtrudeSign != 0 && eSign != 0 && eSign != w.runExtrudeSign {
			return false
		}
	}
	return true
}

func (w *Welder) updateExtrudeSign(p arcfit.PrinterPoint) {
	if s := signOf(p.ERelative); s != 0 {
		w.runExtrudeSign = s
	}
}

func (w *Welder) makePoint(prevPos, curPos position.Point) arcfit.PrinterPoint {
	dx, dy, dz := curPos.X-prevPos.X, curPos.Y-prevPos.Y, curPos.Z-prevPos.Z
	length := math.Hypot(dx, dy)
	if w.cfg.Arc.Allow3DArcs {
		length = math.Sqrt(dx*dx + dy*dy + dz*dz)
	}
	return arcfit.PrinterPoint{
		X: curPos.X, Y: curPos.Y, Z: curPos.Z,
		ERelative:     curPos.E - prevPos.E,
		SegmentLength: length,
	}
}

func (w *Welder) trackDynamicPrecision(cmd gcode.ParsedCommand) {
	if !w.cfg.AllowDynamicPrecision || cmd.Params == nil {
		return
	}
	for letter, v := range cmd.Params {
		p := decimalPlaces(v)
		switch letter {
		case 'X', 'Y', 'Z':
			if p > w.xyzPrecision {
				w.xyzPrecision = p
			}
		case 'E':
			if p > w.ePrecision {
				w.ePrecision = p
			}
		}
	}
}

// flush drains the unwritten buffer to output in order (spec §4.2/§4.4).
func (w *Welder) flush() error {
	for _, cmd := range w.buf.PopHead() {
		if err := w.cfg.Output(cmd.RawText); err != nil {
			return weldErr(err)
		}
	}
	return nil
}

func weldErr(cause error) error {
	return &wrapped{cause: cause}
}

type wrapped struct{ cause error }

func (e *wrapped) Error() string { return weldererr.ErrIO.Error() + ": " + e.cause.Error() }
func (e *wrapped) Unwrap() []error { return []error{weldererr.ErrIO, e.cause} }

func closeEnough0(v float64) bool { return math.Abs(v) < 1e-9 }

func signOf(v float64) int {
	if v > 1e-9 {
		return 1
	}
	if v < -1e-9 {
		return -1
	}
	return 0
}

// decimalPlaces counts the digits after the decimal point needed to
// round-trip v through fixed-point formatting, capped at 6 (a 3D-printer
// coordinate stream never meaningfully exceeds micron precision).
func decimalPlaces(v float64) int {
	const eps = 5e-7
	for p := 0; p <= 6; p++ {
		scale := math.Pow(10, float64(p))
		rounded := math.Round(v*scale) / scale
		if math.Abs(rounded-v) < eps {
			return p
		}
	}
	return 6
}
