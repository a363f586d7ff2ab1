package layout

import (
	"strings"

	"github.com/platinummonkey/scrutable/internal/ocr"
)

// ParagraphConfig holds the tolerance factors for paragraph composition.
// Both tolerances derive from the median word height, which holds up better
// than the mean when a page mixes headline and body text.
type ParagraphConfig struct {
	// LineToleranceFactor scales median height into the same-line
	// threshold (default 0.6)
	LineToleranceFactor float64

	// MinLineTolerance is the floor for the same-line threshold in pixels
	// (default 6)
	MinLineTolerance float64

	// ParagraphGapFactor scales median height into the paragraph-break
	// threshold (default 1.4)
	ParagraphGapFactor float64

	// MinParagraphGap is the floor for the paragraph-break threshold in
	// pixels (default 12)
	MinParagraphGap float64
}

// DefaultParagraphConfig returns the standard tolerance factors
func DefaultParagraphConfig() ParagraphConfig {
	return ParagraphConfig{
		LineToleranceFactor: 0.6,
		MinLineTolerance:    6.0,
		ParagraphGapFactor:  1.4,
		MinParagraphGap:     12.0,
	}
}

// ParagraphComposer turns word detections into plain-text paragraphs
type ParagraphComposer struct {
	config ParagraphConfig
}

// NewParagraphComposer creates a composer with default configuration
func NewParagraphComposer() *ParagraphComposer {
	return &ParagraphComposer{config: DefaultParagraphConfig()}
}

// NewParagraphComposerWithConfig creates a composer with custom configuration
func NewParagraphComposerWithConfig(config ParagraphConfig) *ParagraphComposer {
	return &ParagraphComposer{config: config}
}

// Compose groups words into lines by vertical proximity, joins each line
// left-to-right, and stitches lines into paragraphs wherever the gap between
// consecutive line centers stays within the paragraph threshold. It runs
// independently of block detection and never consumes block output. Empty
// paragraphs are dropped.
func (c *ParagraphComposer) Compose(words []ocr.Word) []string {
	if len(words) == 0 {
		return nil
	}

	sorted := sortWords(words)
	med := medianHeight(sorted, 12.0)
	lineTol := maxFloat(c.config.MinLineTolerance, med*c.config.LineToleranceFactor)
	paraGap := maxFloat(c.config.MinParagraphGap, med*c.config.ParagraphGapFactor)

	lines := groupLines(sorted, lineTol)

	type lineEntry struct {
		yMid float64
		text string
	}
	entries := make([]lineEntry, 0, len(lines))
	for _, line := range lines {
		if len(line) == 0 {
			continue
		}
		parts := make([]string, 0, len(line))
		var ySum float64
		for _, w := range line {
			ySum += w.BBox.YMid()
			if t := strings.TrimSpace(w.Text); t != "" {
				parts = append(parts, t)
			}
		}
		entries = append(entries, lineEntry{
			yMid: ySum / float64(len(line)),
			text: strings.Join(parts, " "),
		})
	}

	var paras []string
	var cur []string
	started := false
	var last float64
	for _, e := range entries {
		if started && e.yMid-last > paraGap {
			paras = append(paras, strings.TrimSpace(strings.Join(cur, " ")))
			cur = cur[:0]
		}
		cur = append(cur, e.text)
		last = e.yMid
		started = true
	}
	if len(cur) > 0 {
		paras = append(paras, strings.TrimSpace(strings.Join(cur, " ")))
	}

	out := paras[:0]
	for _, p := range paras {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
