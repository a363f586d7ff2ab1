package ocr

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
)

// Engines disagree about how a detection is packed: some emit records with a
// box under a conventional key, others emit positional tuples in several
// orders, and a few emit shapes nobody documented. Normalize maps every one
// of them onto the canonical Word or reports the record as unusable. It is
// total: no input value causes a panic.
//
// Recognized shapes:
//
//   - record with a box under "box", "points" or "bbox", plus "text"/"score"
//   - (text, score, quad)
//   - (quad, (text, score))
//   - (quad, text, score)
//   - (text, (score, quad))
//   - any other sequence: the first box-like element is taken as the box,
//     then the first string-like remaining element as text and the first
//     numeric (or numeric-string) remaining element as score
//
// A box-like value is 4 x/y point pairs, a flat 8-number polygon, a 4-number
// axis-aligned rectangle, or a record carrying one of the conventional box
// keys. Polygons collapse to the min/max axis-aligned rectangle. Byte-slice
// text is decoded as UTF-8. A missing or unparsable score yields a nil
// confidence. A record with no identifiable box is dropped (ok == false);
// callers count drops for diagnostics.
func Normalize(raw any) (Word, bool) {
	textVal, score, boxVal := classify(raw)

	pts, ok := asQuadPoints(boxVal)
	if !ok {
		return Word{}, false
	}

	return Word{
		Text:       textOf(textVal),
		BBox:       quadToBBox(pts),
		Confidence: score,
	}, true
}

// boxKeys are the conventional record keys engines use for positions.
var boxKeys = [...]string{"box", "points", "bbox"}

// classify pattern-matches the known packings and returns the still-raw
// text, score and box candidates. Unknown sequences go through the fallback
// scan; anything else yields a nil box and is dropped downstream.
func classify(raw any) (textVal any, score *float64, boxVal any) {
	if m, ok := asMap(raw); ok {
		return m["text"], scoreOf(m["score"]), firstBoxKey(m)
	}

	seq, ok := asSeq(raw)
	if !ok {
		return nil, nil, nil
	}

	switch {
	case len(seq) == 3 && isTextLike(seq[0]):
		// (text, score, quad)
		return seq[0], scoreOf(seq[1]), seq[2]

	case len(seq) == 3 && isBoxLike(seq[0]):
		// (quad, text, score)
		if isTextLike(seq[1]) {
			textVal = seq[1]
		}
		return textVal, scoreOf(seq[2]), seq[0]

	case len(seq) == 2 && isTextLike(seq[0]):
		// (text, (score, quad))
		if inner, ok := asSeq(seq[1]); ok && len(inner) == 2 {
			return seq[0], scoreOf(inner[0]), inner[1]
		}
		return scanUnknown(seq)

	case len(seq) == 2 && isBoxLike(seq[0]):
		// (quad, (text, score))
		if inner, ok := asSeq(seq[1]); ok && len(inner) == 2 {
			return inner[0], scoreOf(inner[1]), seq[0]
		}
		return scanUnknown(seq)

	default:
		return scanUnknown(seq)
	}
}

// scanUnknown handles sequences in no recognized order: locate a box-like
// element first, then pull text and score from whatever remains.
func scanUnknown(seq []any) (textVal any, score *float64, boxVal any) {
	boxIdx := -1
	for i, el := range seq {
		if isBoxLike(el) {
			boxIdx = i
			break
		}
	}
	if boxIdx < 0 {
		return nil, nil, nil
	}

	for i, el := range seq {
		if i == boxIdx {
			continue
		}
		if textVal == nil {
			if _, ok := asString(el); ok {
				textVal = el
			}
		}
		if score == nil {
			score = scoreOf(el)
		}
		if textVal != nil && score != nil {
			break
		}
	}
	return textVal, score, seq[boxIdx]
}

// firstBoxKey returns the first conventional box value present in a record
func firstBoxKey(m map[string]any) any {
	for _, k := range boxKeys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// isBoxLike reports whether v could be converted to a quad by asQuadPoints
func isBoxLike(v any) bool {
	if m, ok := asMap(v); ok {
		return firstBoxKey(m) != nil
	}
	seq, ok := asSeq(v)
	if !ok {
		return false
	}
	return looksLikeQuadPoints(seq) || looksLikeFlat8(seq) || looksLikeXYXY(seq)
}

// asQuadPoints converts any recognized box shape into 4 corner points.
func asQuadPoints(v any) ([4][2]float64, bool) {
	var quad [4][2]float64
	if v == nil {
		return quad, false
	}

	if m, ok := asMap(v); ok {
		return asQuadPoints(firstBoxKey(m))
	}

	seq, ok := asSeq(v)
	if !ok {
		return quad, false
	}

	switch {
	case looksLikeQuadPoints(seq):
		for i, el := range seq {
			pt, _ := asSeq(el)
			x, _ := asFloat(pt[0])
			y, _ := asFloat(pt[1])
			quad[i] = [2]float64{x, y}
		}
		return quad, true

	case looksLikeFlat8(seq):
		var nums [8]float64
		for i, el := range seq {
			nums[i], _ = asFloat(el)
		}
		for i := 0; i < 4; i++ {
			quad[i] = [2]float64{nums[2*i], nums[2*i+1]}
		}
		return quad, true

	case looksLikeXYXY(seq):
		var nums [4]float64
		for i, el := range seq {
			nums[i], _ = asFloat(el)
		}
		x0, y0, x1, y1 := nums[0], nums[1], nums[2], nums[3]
		quad = [4][2]float64{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}}
		return quad, true
	}

	return quad, false
}

// quadToBBox collapses a polygon to its axis-aligned bounding rectangle
func quadToBBox(quad [4][2]float64) BBox {
	minX, minY := quad[0][0], quad[0][1]
	maxX, maxY := minX, minY
	for _, p := range quad[1:] {
		minX = minF(minX, p[0])
		minY = minF(minY, p[1])
		maxX = maxF(maxX, p[0])
		maxY = maxF(maxY, p[1])
	}
	return BBox{X0: minX, Y0: minY, X1: maxX, Y1: maxY}
}

// looksLikeXYXY reports a [x0,y0,x1,y1] axis-aligned rectangle
func looksLikeXYXY(seq []any) bool {
	if len(seq) != 4 {
		return false
	}
	for _, el := range seq {
		if _, ok := asFloat(el); !ok {
			return false
		}
	}
	return true
}

// looksLikeFlat8 reports a [x0,y0,...,x3,y3] flattened polygon
func looksLikeFlat8(seq []any) bool {
	if len(seq) != 8 {
		return false
	}
	for _, el := range seq {
		if _, ok := asFloat(el); !ok {
			return false
		}
	}
	return true
}

// looksLikeQuadPoints reports a [[x,y],[x,y],[x,y],[x,y]] polygon
func looksLikeQuadPoints(seq []any) bool {
	if len(seq) != 4 {
		return false
	}
	for _, el := range seq {
		pt, ok := asSeq(el)
		if !ok || len(pt) != 2 {
			return false
		}
		for _, c := range pt {
			if _, ok := asFloat(c); !ok {
				return false
			}
		}
	}
	return true
}

// isTextLike reports a string or byte-slice value
func isTextLike(v any) bool {
	_, ok := asString(v)
	return ok
}

// textOf mirrors the total text coercion: nil becomes empty, bytes decode,
// anything else is formatted
func textOf(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := asString(v); ok {
		return s
	}
	return fmt.Sprint(v)
}

// asString accepts string and []byte text representations
func asString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	}
	return "", false
}

// scoreOf parses a confidence from a number or a numeric string; nil means
// no usable score
func scoreOf(v any) *float64 {
	if f, ok := asFloat(v); ok {
		return &f
	}
	if s, ok := asString(v); ok {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return &f
		}
	}
	return nil
}

// asFloat accepts any numeric type except bool
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f, true
		}
	}
	return 0, false
}

// asMap accepts string-keyed records
func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// asSeq flattens any slice or array value into []any. Strings and byte
// slices are not sequences here; they are text.
func asSeq(v any) ([]any, bool) {
	switch s := v.(type) {
	case nil:
		return nil, false
	case []any:
		return s, true
	case string, []byte:
		return nil, false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
