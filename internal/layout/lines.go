// Package layout reconstructs document structure from word-level OCR output:
// grouping words into lines, merging them into blocks with key-value pairing,
// and composing plain-text paragraphs.
package layout

import (
	"sort"

	"github.com/platinummonkey/scrutable/internal/ocr"
)

// sortWords orders words top-to-bottom by vertical midpoint, then
// left-to-right, without mutating the input.
func sortWords(words []ocr.Word) []ocr.Word {
	sorted := make([]ocr.Word, len(words))
	copy(sorted, words)
	sort.SliceStable(sorted, func(i, j int) bool {
		yi, yj := sorted[i].BBox.YMid(), sorted[j].BBox.YMid()
		if yi != yj {
			return yi < yj
		}
		return sorted[i].BBox.X0 < sorted[j].BBox.X0
	})
	return sorted
}

// groupLines walks sorted words and clusters them into visual lines. A word
// joins the current line when its vertical midpoint is within tol of the
// previous word's midpoint; the comparison chains word to word rather than
// anchoring on the line's first word. Each finished line is re-sorted
// left-to-right.
//
// Both the block merger and the paragraph composer use this primitive with
// their own independently derived tolerances. They stay separate call sites
// on purpose: block formation tunes against average height, paragraphing
// against median height, and the two must be adjustable without affecting
// each other.
func groupLines(sorted []ocr.Word, tol float64) [][]ocr.Word {
	var lines [][]ocr.Word
	var cur []ocr.Word
	started := false
	var last float64

	for _, w := range sorted {
		y := w.BBox.YMid()
		if !started || absF(y-last) <= tol {
			cur = append(cur, w)
		} else {
			lines = append(lines, sortLineByX(cur))
			cur = []ocr.Word{w}
		}
		last = y
		started = true
	}
	if len(cur) > 0 {
		lines = append(lines, sortLineByX(cur))
	}
	return lines
}

func sortLineByX(line []ocr.Word) []ocr.Word {
	sort.SliceStable(line, func(i, j int) bool {
		return line[i].BBox.X0 < line[j].BBox.X0
	})
	return line
}

// averageHeight returns the mean word height, or fallback for empty input.
func averageHeight(words []ocr.Word, fallback float64) float64 {
	if len(words) == 0 {
		return fallback
	}
	var sum float64
	for _, w := range words {
		sum += w.BBox.Height()
	}
	return sum / float64(len(words))
}

// medianHeight returns the median word height, or fallback for empty input.
// Even-length inputs take the mean of the two middle values.
func medianHeight(words []ocr.Word, fallback float64) float64 {
	if len(words) == 0 {
		return fallback
	}
	heights := make([]float64, len(words))
	for i, w := range words {
		heights[i] = w.BBox.Height()
	}
	sort.Float64s(heights)
	mid := len(heights) / 2
	if len(heights)%2 == 1 {
		return heights[mid]
	}
	return (heights[mid-1] + heights[mid]) / 2.0
}

// overlap1D returns the length of the overlap between intervals [a0,a1] and
// [b0,b1], zero when disjoint.
func overlap1D(a0, a1, b0, b1 float64) float64 {
	lo := a0
	if b0 > lo {
		lo = b0
	}
	hi := a1
	if b1 < hi {
		hi = b1
	}
	if hi <= lo {
		return 0
	}
	return hi - lo
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
