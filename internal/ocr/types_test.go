package ocr

import (
	"encoding/json"
	"testing"
)

func TestNewBBox_SwapsInvertedCoordinates(t *testing.T) {
	b := NewBBox(10, 40, 5, 20)
	if b.X0 != 5 || b.X1 != 10 {
		t.Errorf("X not normalized: %+v", b)
	}
	if b.Y0 != 20 || b.Y1 != 40 {
		t.Errorf("Y not normalized: %+v", b)
	}
}

func TestBBox_Geometry(t *testing.T) {
	b := BBox{X0: 10, Y0: 20, X1: 110, Y1: 40}

	if got := b.Width(); got != 100 {
		t.Errorf("Width() = %v, want 100", got)
	}
	if got := b.Height(); got != 20 {
		t.Errorf("Height() = %v, want 20", got)
	}
	if got := b.YMid(); got != 30 {
		t.Errorf("YMid() = %v, want 30", got)
	}
}

func TestBBox_Union(t *testing.T) {
	a := BBox{X0: 0, Y0: 0, X1: 10, Y1: 10}
	b := BBox{X0: 5, Y0: 5, X1: 20, Y1: 30}

	got := a.Union(b)
	want := BBox{X0: 0, Y0: 0, X1: 20, Y1: 30}
	if got != want {
		t.Errorf("Union() = %+v, want %+v", got, want)
	}
}

func TestBBox_Clamp(t *testing.T) {
	b := BBox{X0: -5, Y0: 10, X1: 250, Y1: 310}

	got := b.Clamp(200, 300)
	want := BBox{X0: 0, Y0: 10, X1: 200, Y1: 300}
	if got != want {
		t.Errorf("Clamp() = %+v, want %+v", got, want)
	}
}

func TestBBox_JSONRoundTrip(t *testing.T) {
	b := BBox{X0: 1.5, Y0: 2, X1: 3, Y1: 4.25}

	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != "[1.5,2,3,4.25]" {
		t.Errorf("Marshal() = %s, want [1.5,2,3,4.25]", data)
	}

	var got BBox
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got != b {
		t.Errorf("round trip = %+v, want %+v", got, b)
	}
}

func TestWord_JSONShape(t *testing.T) {
	w := Word{
		Text:       "total",
		BBox:       BBox{X0: 1, Y0: 2, X1: 3, Y1: 4},
		Confidence: scorePtr(0.8),
	}

	data, err := json.Marshal(w)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if decoded["text"] != "total" {
		t.Errorf("text = %v", decoded["text"])
	}
	if _, ok := decoded["bbox"].([]any); !ok {
		t.Errorf("bbox should serialize as an array, got %T", decoded["bbox"])
	}
	if decoded["confidence"] != 0.8 {
		t.Errorf("confidence = %v", decoded["confidence"])
	}
}

func TestWord_NilConfidenceSerializesAsNull(t *testing.T) {
	w := Word{Text: "x", BBox: BBox{X0: 0, Y0: 0, X1: 1, Y1: 1}}

	data, err := json.Marshal(w)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded["confidence"] != nil {
		t.Errorf("confidence = %v, want null", decoded["confidence"])
	}
}
