package gcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMotion(t *testing.T) {
	c := Parse("G1 X10.5 Y-2.25 E0.734 F1500 ;layer seam")
	assert.Equal(t, byte('G'), c.Letter)
	assert.Equal(t, 1.0, c.Number)

	v, ok := c.Param('X')
	assert.True(t, ok)
	assert.Equal(t, 10.5, v)

	v, ok = c.Param('Y')
	assert.True(t, ok)
	assert.Equal(t, -2.25, v)

	v, ok = c.Param('E')
	assert.True(t, ok)
	assert.Equal(t, 0.734, v)

	v, ok = c.Param('F')
	assert.True(t, ok)
	assert.Equal(t, 1500.0, v)

	assert.Equal(t, "layer seam", c.Comment)
}

func TestParseParenComment(t *testing.T) {
	c := Parse("G92 E0 (reset extruder)")
	assert.True(t, c.IsG(92))
	assert.Equal(t, "reset extruder", c.Comment)
}

func TestParseCommentOnly(t *testing.T) {
	c := Parse("; just a comment")
	assert.Zero(t, c.Letter)
	assert.Equal(t, "just a comment", c.Comment)
}

func TestParseBlank(t *testing.T) {
	c := Parse("")
	assert.Zero(t, c.Letter)
}

func TestParseLineNumberSkipped(t *testing.T) {
	c := Parse("N120 G1 X1 Y1")
	assert.Equal(t, byte('G'), c.Letter)
	assert.Equal(t, 1.0, c.Number)
}

func TestMnemonic(t *testing.T) {
	c := Parse("G3 X0 Y0 I5 J0")
	assert.Equal(t, "G3", c.Mnemonic())
}

func TestParseFeatureTypeComment(t *testing.T) {
	c := Parse(";TYPE:External perimeter")
	assert.Zero(t, c.Letter)
	assert.Equal(t, "External perimeter", c.FeatureType)
}

func TestParseNonTypeCommentLeavesFeatureTypeEmpty(t *testing.T) {
	c := Parse("; not a type tag")
	assert.Empty(t, c.FeatureType)
}
