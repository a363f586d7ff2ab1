package layout

import (
	"sort"
	"strings"

	"github.com/platinummonkey/scrutable/internal/ocr"
)

// Block represents a merged rectangular region of text on a page
type Block struct {
	// Text is the space-joined (or "label: value" joined) content
	Text string `json:"text"`

	// BBox is the union rectangle of all merged words, snapped to whole
	// pixels
	BBox ocr.BBox `json:"bbox"`
}

// BlockConfig holds the gap thresholds for block formation, in pixels at the
// rendered DPI
type BlockConfig struct {
	// GapX is the maximum horizontal gap between words merged into one
	// line segment (default 30)
	GapX float64

	// GapY is the maximum vertical gap between segments merged into one
	// primitive block (default 20)
	GapY float64

	// KVGapX is the horizontal budget for pairing a label with a value to
	// its right (default 150)
	KVGapX float64

	// KVGapY is the vertical budget for pairing a label with a value
	// stacked below it (default 40)
	KVGapY float64
}

// DefaultBlockConfig returns the thresholds tuned for 200 DPI scans of
// business documents
func DefaultBlockConfig() BlockConfig {
	return BlockConfig{
		GapX:   30.0,
		GapY:   20.0,
		KVGapX: 150.0,
		KVGapY: 40.0,
	}
}

// BlockDetector merges word detections into text blocks
type BlockDetector struct {
	config BlockConfig
}

// NewBlockDetector creates a block detector with default configuration
func NewBlockDetector() *BlockDetector {
	return &BlockDetector{config: DefaultBlockConfig()}
}

// NewBlockDetectorWithConfig creates a block detector with custom configuration
func NewBlockDetectorWithConfig(config BlockConfig) *BlockDetector {
	return &BlockDetector{config: config}
}

// Detect runs both merge passes: primitive block formation followed by
// key-value pairing
func (d *BlockDetector) Detect(words []ocr.Word) []Block {
	return d.MergeKeyValueBlocks(d.WordsToBlocks(words))
}

// WordsToBlocks clusters words into primitive blocks. Words are grouped into
// visual lines, adjacent words on a line merge into segments when the
// horizontal gap is within GapX and the boxes overlap vertically by at least
// half the shorter height, and segments merge vertically into blocks when
// the gap is within GapY and they overlap horizontally by at least 30% of
// the narrower width. All text is preserved: every input word's text appears
// in exactly one output block.
func (d *BlockDetector) WordsToBlocks(words []ocr.Word) []Block {
	if len(words) == 0 {
		return nil
	}

	sorted := sortWords(words)
	lineTol := maxFloat(6.0, averageHeight(sorted, 12.0)*0.6)
	lines := groupLines(sorted, lineTol)

	// Pass 1: horizontal merge within each line.
	var segments []Block
	for _, line := range lines {
		if len(line) == 0 {
			continue
		}
		segs := []Block{{Text: line[0].Text, BBox: snapBBox(line[0].BBox)}}
		for _, w := range line[1:] {
			prev := &segs[len(segs)-1]
			hgap := w.BBox.X0 - prev.BBox.X1
			vov := overlap1D(prev.BBox.Y0, prev.BBox.Y1, w.BBox.Y0, w.BBox.Y1)
			vmin := minFloat(prev.BBox.Height(), w.BBox.Height())
			vrat := 0.0
			if vmin > 0 {
				vrat = vov / vmin
			}
			if hgap <= d.config.GapX && vrat >= 0.5 {
				prev.Text = strings.TrimSpace(prev.Text + " " + w.Text)
				prev.BBox = unionSnapped(prev.BBox, w.BBox)
			} else {
				segs = append(segs, Block{Text: w.Text, BBox: snapBBox(w.BBox)})
			}
		}
		segments = append(segments, segs...)
	}

	// Pass 2: vertical merge across the globally re-sorted segments.
	sortBlocksByMid(segments)
	merged := make([]Block, 0, len(segments))
	for _, b := range segments {
		if len(merged) == 0 {
			merged = append(merged, b)
			continue
		}
		prev := &merged[len(merged)-1]
		vgap := b.BBox.Y0 - prev.BBox.Y1
		xov := overlap1D(prev.BBox.X0, prev.BBox.X1, b.BBox.X0, b.BBox.X1)
		minw := minFloat(prev.BBox.Width(), b.BBox.Width())
		xrat := 0.0
		if minw > 0 {
			xrat = xov / minw
		}
		if vgap <= d.config.GapY && xrat >= 0.3 {
			prev.Text = strings.TrimSpace(prev.Text + " " + b.Text)
			prev.BBox = unionSnapped(prev.BBox, b.BBox)
		} else {
			merged = append(merged, b)
		}
	}
	return merged
}

// MergeKeyValueBlocks pairs labels with their values in two sub-passes.
// Stacked pairs merge first: a short block (< 5 words) absorbs its immediate
// successor when the successor sits within KVGapY below it with more than
// 20px of horizontal overlap, joined as "label: value". Side-by-side pairs
// merge second: blocks on the same visual line within KVGapX of each other
// join with a space. Forms lay out labels both ways, which is why one pass
// with a single tolerance cannot cover both.
func (d *BlockDetector) MergeKeyValueBlocks(blocks []Block) []Block {
	if len(blocks) == 0 {
		return nil
	}

	ordered := make([]Block, len(blocks))
	copy(ordered, blocks)
	sortBlocksByTop(ordered)

	// Vertical sub-pass: label above value.
	vertMerged := make([]Block, 0, len(ordered))
	skip := make(map[int]bool)
	for i := 0; i < len(ordered); i++ {
		if skip[i] {
			continue
		}
		cur := ordered[i]
		if i+1 < len(ordered) {
			next := ordered[i+1]
			vgap := next.BBox.Y0 - cur.BBox.Y1
			xov := overlap1D(cur.BBox.X0, cur.BBox.X1, next.BBox.X0, next.BBox.X1)
			if vgap >= 0 && vgap < d.config.KVGapY && xov > 20 && len(strings.Fields(cur.Text)) < 5 {
				vertMerged = append(vertMerged, Block{
					Text: joinLabelValue(cur.Text, next.Text),
					BBox: unionSnapped(cur.BBox, next.BBox),
				})
				skip[i+1] = true
				continue
			}
		}
		vertMerged = append(vertMerged, cur)
	}

	// Horizontal sub-pass: label left of value on the same visual line.
	sortBlocksByMid(vertMerged)
	final := make([]Block, 0, len(vertMerged))
	final = append(final, vertMerged[0])
	for _, cur := range vertMerged[1:] {
		prev := &final[len(final)-1]
		lineTol := maxFloat(10.0, prev.BBox.Height()*0.7)
		hgap := cur.BBox.X0 - prev.BBox.X1
		if absF(prev.BBox.YMid()-cur.BBox.YMid()) < lineTol && hgap >= 0 && hgap < d.config.KVGapX {
			prev.Text = strings.TrimSpace(prev.Text + " " + cur.Text)
			prev.BBox = unionSnapped(prev.BBox, cur.BBox)
		} else {
			final = append(final, cur)
		}
	}
	return final
}

// joinLabelValue joins a stacked label and value with a colon separator,
// without doubling one the label already carries
func joinLabelValue(label, value string) string {
	sep := ": "
	if strings.HasSuffix(strings.TrimSpace(label), ":") {
		sep = " "
	}
	return strings.TrimSpace(label + sep + value)
}

// sortBlocksByMid orders blocks by vertical midpoint, then left edge
func sortBlocksByMid(blocks []Block) {
	sort.SliceStable(blocks, func(i, j int) bool {
		yi, yj := blocks[i].BBox.YMid(), blocks[j].BBox.YMid()
		if yi != yj {
			return yi < yj
		}
		return blocks[i].BBox.X0 < blocks[j].BBox.X0
	})
}

// sortBlocksByTop orders blocks by top edge, then left edge
func sortBlocksByTop(blocks []Block) {
	sort.SliceStable(blocks, func(i, j int) bool {
		if blocks[i].BBox.Y0 != blocks[j].BBox.Y0 {
			return blocks[i].BBox.Y0 < blocks[j].BBox.Y0
		}
		return blocks[i].BBox.X0 < blocks[j].BBox.X0
	})
}

// snapBBox truncates coordinates to whole pixels
func snapBBox(b ocr.BBox) ocr.BBox {
	return ocr.BBox{
		X0: float64(int(b.X0)),
		Y0: float64(int(b.Y0)),
		X1: float64(int(b.X1)),
		Y1: float64(int(b.Y1)),
	}
}

// unionSnapped returns the pixel-snapped union rectangle of two boxes
func unionSnapped(a, b ocr.BBox) ocr.BBox {
	return snapBBox(a.Union(b))
}
