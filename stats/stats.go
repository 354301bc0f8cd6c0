// Package stats implements the Statistics & Comment Builder (spec §4.5): a
// segment-length histogram with two parallel accumulators (original vs.
// compressed) and the arc-commit annotation-comment builder (spec §4.3 step
// 1).
//
// Grounded on the teacher's vm/utils.go Info(): a single pass over
// vm.Positions building up several parallel aggregates (min/max per axis, a
// dedup'd feedrate list) is generalized here from a one-shot end-of-run
// summary into an incrementally-updated histogram fed by the welder as it
// consumes the stream.
package stats

import "strings"

// Histogram buckets segment lengths by configurable upper boundaries. A
// value falls into the first bucket whose boundary it does not exceed; any
// value past the last boundary falls into a final overflow bucket.
type Histogram struct {
	boundaries []float64
	counts     []int
}

// NewHistogram constructs a Histogram with ascending bucket boundaries (mm).
func NewHistogram(boundaries []float64) Histogram {
	return Histogram{
		boundaries: append([]float64(nil), boundaries...),
		counts:     make([]int, len(boundaries)+1),
	}
}

// Add records one segment length.
func (h *Histogram) Add(length float64) {
	for i, b := range h.boundaries {
		if length <= b {
			h.counts[i]++
			return
		}
	}
	h.counts[len(h.counts)-1]++
}

// Snapshot returns a copy of the current bucket counts.
func (h *Histogram) Snapshot() []int {
	return append([]int(nil), h.counts...)
}

// Stats is the Statistics & Comment Builder's accumulated state: the
// "original" histogram is fed once per motion line as it is first consumed,
// the "compressed" histogram once per emitted output segment (an arc's
// length, or an unreduced extruding line's length at flush time).
type Stats struct {
	Original   Histogram
	Compressed Histogram
}

// New constructs a Stats with both histograms sharing the same bucket
// boundaries.
func New(boundaries []float64) *Stats {
	return &Stats{
		Original:   NewHistogram(boundaries),
		Compressed: NewHistogram(boundaries),
	}
}

// RecordOriginal adds a segment length to the original-toolpath histogram.
func (s *Stats) RecordOriginal(length float64) { s.Original.Add(length) }

// RecordCompressed adds a segment length to the output-toolpath histogram.
func (s *Stats) RecordCompressed(length float64) { s.Compressed.Add(length) }

// BuildArcComment concatenates the distinct comments of the buffered
// commands an arc is about to replace (spec §4.3 step 1): adjacent
// duplicates are collapsed, blanks are dropped, and survivors are joined
// with " - ".
func BuildArcComment(comments []string) string {
	var parts []string
	for _, c := range comments {
		if c == "" {
			continue
		}
		if len(parts) > 0 && parts[len(parts)-1] == c {
			continue
		}
		parts = append(parts, c)
	}
	return strings.Join(parts, " - ")
}
