package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistogramBuckets(t *testing.T) {
	h := NewHistogram([]float64{1, 5, 10})
	h.Add(0.5)  // bucket 0
	h.Add(1)    // bucket 0 (<=1)
	h.Add(3)    // bucket 1
	h.Add(10)   // bucket 2
	h.Add(10.1) // overflow
	assert.Equal(t, []int{2, 1, 1, 1}, h.Snapshot())
}

func TestStatsTwoAccumulators(t *testing.T) {
	s := New([]float64{5, 20})
	s.RecordOriginal(2)
	s.RecordOriginal(2)
	s.RecordCompressed(18)
	assert.Equal(t, 2, s.Original.Snapshot()[0], "expected 2 original entries in bucket 0")
	assert.Equal(t, 1, s.Compressed.Snapshot()[1], "expected 1 compressed entry in bucket 1")
}

func TestBuildArcCommentDedupsAdjacent(t *testing.T) {
	got := BuildArcComment([]string{"infill", "infill", "", "perimeter", "infill"})
	assert.Equal(t, "infill - perimeter - infill", got)
}

func TestBuildArcCommentEmpty(t *testing.T) {
	assert.Empty(t, BuildArcComment(nil))
}
