package welder

import "arcweld/stats"

// commitArc implements the Arc Commit procedure (spec §4.3). rejectingRaw is
// the raw text of the command that triggered the commit, if any (empty at
// end-of-stream); reprocessTrigger controls whether it is re-issued through
// the welder afterward.
func (w *Welder) commitArc(rejectingRaw string, reprocessTrigger bool) error {
	numChords := w.fitter.GetNumSegments() - 1 // chords, not points (see arcfit.GetNumSegments)

	// (1) annotation comment from the tail entries about to be superseded.
	comments := make([]string, 0, numChords)
	for _, c := range w.buf.Tail(numChords) {
		comments = append(comments, c.Comment)
	}
	comment := stats.BuildArcComment(comments)

	// (2) evict those entries; they are superseded by the arc line.
	w.buf.PopTail(numChords)

	// (3) undo the position tracker's last update so the rejecting command
	// (if any) can be re-processed cleanly.
	if reprocessTrigger {
		w.tracker.UndoLast()
	}

	// (4)/(5) feedrate and extrusion-mode emission choice: the arc only needs
	// to restate F if the run's feedrate differs from what was already
	// active on the machine before the run began (the line that set it is
	// being deleted along with the rest of the run).
	currentFeedrate := w.tracker.Feedrate()
	var feedrate *float64
	if currentFeedrate != w.preRunFeedrate {
		f := currentFeedrate
		feedrate = &f
	}

	var line string
	if w.previousIsExtruderRelative {
		line = w.fitter.GetShapeGCodeRelative(w.xyzPrecision, w.ePrecision, feedrate)
	} else {
		line = w.fitter.GetShapeGCodeAbsolute(w.runStartAbsoluteE, w.xyzPrecision, w.ePrecision, feedrate)
	}
	if comment != "" {
		line += " ;" + comment
	}

	// (6) flush remaining (pre-run) buffered lines first, then the arc.
	if err := w.flush(); err != nil {
		return err
	}
	arcLength := w.fitter.GetShapeLength()
	if err := w.cfg.Output(line); err != nil {
		return weldErr(err)
	}

	// (7) statistics.
	w.Counters.ArcsCreated++
	w.Counters.PointsCompressed += numChords
	w.Counters.FirmwareCompensations += w.fitter.GetNumFirmwareCompensations()
	w.Stats.RecordCompressed(arcLength)

	// (8) clear the fitter, return to IDLE.
	w.fitter.Clear()
	w.state = IDLE

	if reprocessTrigger && rejectingRaw != "" {
		return w.process(rejectingRaw, true)
	}
	return nil
}
