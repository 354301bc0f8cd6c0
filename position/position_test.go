package position

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"arcweld/gcode"
)

func TestAbsoluteMove(t *testing.T) {
	tr := NewTracker(false, 1)
	p := tr.Step(gcode.Parse("G1 X10 Y20 E1 F1200"))
	assert.Equal(t, 10.0, p.X)
	assert.Equal(t, 20.0, p.Y)
	assert.Equal(t, 1.0, p.E)
	assert.Equal(t, 1200.0, tr.Feedrate())
}

func TestRelativeMove(t *testing.T) {
	tr := NewTracker(false, 1)
	tr.Step(gcode.Parse("G1 X10 Y10"))
	tr.Step(gcode.Parse("G91"))
	p := tr.Step(gcode.Parse("G1 X1 Y-1"))
	assert.Equal(t, 11.0, p.X)
	assert.Equal(t, 9.0, p.Y)
}

func TestG90InfluencesExtruder(t *testing.T) {
	tr := NewTracker(true, 1)
	tr.Step(gcode.Parse("G91"))
	assert.False(t, tr.IsAbsoluteExtruder(), "expected relative extruder after G91 with g90InfluencesExtruder")
	tr.Step(gcode.Parse("G90"))
	assert.True(t, tr.IsAbsoluteExtruder(), "expected absolute extruder after G90 with g90InfluencesExtruder")
}

func TestUndoLast(t *testing.T) {
	tr := NewTracker(false, 1)
	tr.Step(gcode.Parse("G1 X10 Y10"))
	before := tr.Current()
	tr.Step(gcode.Parse("G1 X20 Y20"))
	tr.UndoLast()
	assert.Equal(t, before, tr.Current(), "undo did not restore position")
}

func TestG92ShiftsOrigin(t *testing.T) {
	tr := NewTracker(false, 1)
	tr.Step(gcode.Parse("G1 X10 E5"))
	tr.Step(gcode.Parse("G92 E0"))
	p := tr.Step(gcode.Parse("G1 E1"))
	assert.Equal(t, 1.0, p.E)
}

func TestFeatureTypeTrackedFromTypeComment(t *testing.T) {
	tr := NewTracker(false, 1)
	tr.Step(gcode.Parse(";TYPE:Perimeter"))
	assert.Equal(t, "Perimeter", tr.State().FeatureType)
	tr.Step(gcode.Parse("G1 X10 Y10"))
	assert.Equal(t, "Perimeter", tr.State().FeatureType, "feature type should persist across motion lines")
	tr.Step(gcode.Parse(";TYPE:Infill"))
	assert.Equal(t, "Infill", tr.State().FeatureType)
}
