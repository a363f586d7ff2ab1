package ocr

import (
	"testing"
)

func scorePtr(v float64) *float64 { return &v }

// Every packing below describes the same logical detection: the text
// "Invoice" with score 0.93 inside the rectangle (10,20)-(110,40).
func TestNormalize_AllKnownShapes(t *testing.T) {
	quad := []any{
		[]any{10.0, 20.0},
		[]any{110.0, 20.0},
		[]any{110.0, 40.0},
		[]any{10.0, 40.0},
	}
	flat8 := []any{10.0, 20.0, 110.0, 20.0, 110.0, 40.0, 10.0, 40.0}
	xyxy := []any{10.0, 20.0, 110.0, 40.0}

	want := Word{
		Text:       "Invoice",
		BBox:       BBox{X0: 10, Y0: 20, X1: 110, Y1: 40},
		Confidence: scorePtr(0.93),
	}

	tests := []struct {
		name string
		raw  any
	}{
		{
			name: "record with box key",
			raw:  map[string]any{"box": quad, "text": "Invoice", "score": 0.93},
		},
		{
			name: "record with points key",
			raw:  map[string]any{"points": quad, "text": "Invoice", "score": 0.93},
		},
		{
			name: "record with bbox key",
			raw:  map[string]any{"bbox": xyxy, "text": "Invoice", "score": 0.93},
		},
		{
			name: "text score quad",
			raw:  []any{"Invoice", 0.93, quad},
		},
		{
			name: "quad then text score pair",
			raw:  []any{quad, []any{"Invoice", 0.93}},
		},
		{
			name: "quad text score",
			raw:  []any{quad, "Invoice", 0.93},
		},
		{
			name: "text then score quad pair",
			raw:  []any{"Invoice", []any{0.93, quad}},
		},
		{
			name: "flat8 polygon",
			raw:  []any{"Invoice", 0.93, flat8},
		},
		{
			name: "axis-aligned rectangle",
			raw:  []any{"Invoice", 0.93, xyxy},
		},
		{
			name: "byte-encoded text",
			raw:  []any{[]byte("Invoice"), 0.93, quad},
		},
		{
			name: "numeric-string score",
			raw:  []any{"Invoice", "0.93", quad},
		},
		{
			name: "unknown packing with trailing box",
			raw:  []any{3, "Invoice", 0.93, quad},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.raw)
			if !ok {
				t.Fatal("Normalize() dropped a valid detection")
			}
			if got.Text != want.Text {
				t.Errorf("Text = %q, want %q", got.Text, want.Text)
			}
			if got.BBox != want.BBox {
				t.Errorf("BBox = %+v, want %+v", got.BBox, want.BBox)
			}
			if got.Confidence == nil {
				t.Fatal("Confidence = nil, want 0.93")
			}
			if *got.Confidence != *want.Confidence {
				t.Errorf("Confidence = %v, want %v", *got.Confidence, *want.Confidence)
			}
		})
	}
}

func TestNormalize_UnknownPackingScansRemaining(t *testing.T) {
	// Box buried mid-sequence: text and score are picked from the rest.
	raw := []any{0.5, []any{1.0, 2.0, 3.0, 4.0}, "hello"}

	got, ok := Normalize(raw)
	if !ok {
		t.Fatal("Normalize() dropped a detection with an identifiable box")
	}
	if got.Text != "hello" {
		t.Errorf("Text = %q, want %q", got.Text, "hello")
	}
	if got.Confidence == nil || *got.Confidence != 0.5 {
		t.Errorf("Confidence = %v, want 0.5", got.Confidence)
	}
	if got.BBox != (BBox{X0: 1, Y0: 2, X1: 3, Y1: 4}) {
		t.Errorf("BBox = %+v", got.BBox)
	}
}

func TestNormalize_DropsWithoutBox(t *testing.T) {
	tests := []struct {
		name string
		raw  any
	}{
		{"no box in sequence", []any{"text", 0.9}},
		{"record without box key", map[string]any{"text": "x", "score": 0.5}},
		{"bare string", "just text"},
		{"bare number", 42.0},
		{"nil", nil},
		{"empty sequence", []any{}},
		{"three numbers", []any{1.0, 2.0, 3.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Must not panic, must report the drop.
			if _, ok := Normalize(tt.raw); ok {
				t.Error("Normalize() should drop a detection without a box")
			}
		})
	}
}

func TestNormalize_MissingScoreAndText(t *testing.T) {
	raw := map[string]any{"box": []any{1.0, 2.0, 3.0, 4.0}}

	got, ok := Normalize(raw)
	if !ok {
		t.Fatal("Normalize() dropped a detection with a box")
	}
	if got.Text != "" {
		t.Errorf("Text = %q, want empty", got.Text)
	}
	if got.Confidence != nil {
		t.Errorf("Confidence = %v, want nil", got.Confidence)
	}
}

func TestNormalize_UnparsableScore(t *testing.T) {
	raw := map[string]any{
		"box":   []any{1.0, 2.0, 3.0, 4.0},
		"text":  "x",
		"score": "not-a-number",
	}

	got, ok := Normalize(raw)
	if !ok {
		t.Fatal("Normalize() dropped a valid detection")
	}
	if got.Confidence != nil {
		t.Errorf("Confidence = %v, want nil for unparsable score", got.Confidence)
	}
}

func TestNormalize_SkewedPolygonCollapses(t *testing.T) {
	// A rotated quad must collapse to the min/max axis-aligned rectangle.
	raw := map[string]any{
		"box":  []any{[]any{5.0, 0.0}, []any{20.0, 5.0}, []any{15.0, 30.0}, []any{0.0, 25.0}},
		"text": "tilted",
	}

	got, ok := Normalize(raw)
	if !ok {
		t.Fatal("Normalize() dropped a valid detection")
	}
	want := BBox{X0: 0, Y0: 0, X1: 20, Y1: 30}
	if got.BBox != want {
		t.Errorf("BBox = %+v, want %+v", got.BBox, want)
	}
}

func TestNormalize_TypedSlices(t *testing.T) {
	// Engine adapters emit typed slices, not []any.
	raw := map[string]any{
		"box":   []float64{10, 20, 110, 40},
		"text":  "Invoice",
		"score": 0.93,
	}

	got, ok := Normalize(raw)
	if !ok {
		t.Fatal("Normalize() dropped a typed-slice detection")
	}
	if got.BBox != (BBox{X0: 10, Y0: 20, X1: 110, Y1: 40}) {
		t.Errorf("BBox = %+v", got.BBox)
	}
}

func TestNormalize_NestedBoxRecord(t *testing.T) {
	// Records can nest the box under another record's conventional key.
	raw := map[string]any{
		"box":  map[string]any{"points": []any{1.0, 2.0, 3.0, 4.0}},
		"text": "nested",
	}

	got, ok := Normalize(raw)
	if !ok {
		t.Fatal("Normalize() dropped a nested box record")
	}
	if got.BBox != (BBox{X0: 1, Y0: 2, X1: 3, Y1: 4}) {
		t.Errorf("BBox = %+v", got.BBox)
	}
}
