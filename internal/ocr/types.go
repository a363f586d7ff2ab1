package ocr

import (
	"encoding/json"
	"fmt"
)

// BBox is an axis-aligned rectangle in the pixel space of a rendered page.
// Invariant: X0 <= X1 and Y0 <= Y1.
type BBox struct {
	X0 float64
	Y0 float64
	X1 float64
	Y1 float64
}

// NewBBox creates a BBox, swapping coordinates if needed so the invariant holds
func NewBBox(x0, y0, x1, y1 float64) BBox {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	return BBox{X0: x0, Y0: y0, X1: x1, Y1: y1}
}

// Width returns the horizontal extent of the box
func (b BBox) Width() float64 {
	if b.X1 < b.X0 {
		return 0
	}
	return b.X1 - b.X0
}

// Height returns the vertical extent of the box
func (b BBox) Height() float64 {
	if b.Y1 < b.Y0 {
		return 0
	}
	return b.Y1 - b.Y0
}

// YMid returns the vertical midpoint of the box
func (b BBox) YMid() float64 {
	return (b.Y0 + b.Y1) / 2.0
}

// Union returns the minimal box containing both b and other
func (b BBox) Union(other BBox) BBox {
	return BBox{
		X0: minF(b.X0, other.X0),
		Y0: minF(b.Y0, other.Y0),
		X1: maxF(b.X1, other.X1),
		Y1: maxF(b.Y1, other.Y1),
	}
}

// Clamp confines the box to a page of the given pixel dimensions
func (b BBox) Clamp(width, height float64) BBox {
	return BBox{
		X0: clampF(b.X0, 0, width),
		Y0: clampF(b.Y0, 0, height),
		X1: clampF(b.X1, 0, width),
		Y1: clampF(b.Y1, 0, height),
	}
}

// MarshalJSON encodes the box as a [x0, y0, x1, y1] array, the wire format
// consumed by downstream tooling
func (b BBox) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{b.X0, b.Y0, b.X1, b.Y1})
}

// UnmarshalJSON decodes a [x0, y0, x1, y1] array
func (b *BBox) UnmarshalJSON(data []byte) error {
	var arr [4]float64
	if err := json.Unmarshal(data, &arr); err != nil {
		return fmt.Errorf("bbox must be a [x0,y0,x1,y1] array: %w", err)
	}
	*b = NewBBox(arr[0], arr[1], arr[2], arr[3])
	return nil
}

// Word is the canonical, normalized form of a single OCR detection.
// Words are immutable once created by the normalizer.
type Word struct {
	// Text is the recognized text content
	Text string `json:"text"`

	// BBox is the word's position on the rendered page, in pixels
	BBox BBox `json:"bbox"`

	// Confidence is the recognition score in [0,1]; nil when the engine
	// reported no usable score
	Confidence *float64 `json:"confidence"`
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
