package layout

import (
	"sort"
	"strings"
	"testing"

	"github.com/platinummonkey/scrutable/internal/ocr"
)

func TestCompose_Empty(t *testing.T) {
	if got := NewParagraphComposer().Compose(nil); got != nil {
		t.Errorf("Expected nil for empty input, got %v", got)
	}
}

func TestCompose_SingleLine(t *testing.T) {
	words := []ocr.Word{
		word("hello", 10, 100, 60, 120),
		word("world", 70, 100, 130, 120),
	}

	paras := NewParagraphComposer().Compose(words)
	if len(paras) != 1 {
		t.Fatalf("Expected 1 paragraph, got %d", len(paras))
	}
	if paras[0] != "hello world" {
		t.Errorf("Paragraph = %q", paras[0])
	}
}

func TestCompose_LinesJoinWithinGap(t *testing.T) {
	// Word height 20 -> paragraph gap max(12, 28) = 28. Line centers 24px
	// apart stay in one paragraph.
	words := []ocr.Word{
		word("first", 10, 100, 70, 120),
		word("line", 75, 100, 120, 120),
		word("second", 10, 124, 80, 144),
		word("line", 85, 124, 130, 144),
	}

	paras := NewParagraphComposer().Compose(words)
	if len(paras) != 1 {
		t.Fatalf("Expected 1 paragraph, got %d: %v", len(paras), paras)
	}
	if paras[0] != "first line second line" {
		t.Errorf("Paragraph = %q", paras[0])
	}
}

func TestCompose_LargeGapStartsNewParagraph(t *testing.T) {
	// Line centers 80px apart, well past the 28px gap for 20px-tall words.
	words := []ocr.Word{
		word("intro", 10, 100, 70, 120),
		word("body", 10, 180, 60, 200),
	}

	paras := NewParagraphComposer().Compose(words)
	if len(paras) != 2 {
		t.Fatalf("Expected 2 paragraphs, got %d: %v", len(paras), paras)
	}
	if paras[0] != "intro" || paras[1] != "body" {
		t.Errorf("Paragraphs = %v", paras)
	}
}

func TestCompose_ReadingOrderWithinLine(t *testing.T) {
	// Words supplied out of x order still come out left-to-right.
	words := []ocr.Word{
		word("world", 70, 100, 130, 120),
		word("hello", 10, 100, 60, 120),
	}

	paras := NewParagraphComposer().Compose(words)
	if len(paras) != 1 || paras[0] != "hello world" {
		t.Errorf("Paragraphs = %v", paras)
	}
}

func TestCompose_MedianHeightResistsOutliers(t *testing.T) {
	// A single tall headline word must not inflate the paragraph gap the
	// way an average would: the body font's median keeps the threshold
	// small enough that a 40px jump still breaks the paragraph.
	words := []ocr.Word{
		word("HUGE", 10, 50, 200, 150),
		word("small", 10, 180, 60, 192),
		word("words", 65, 180, 120, 192),
		word("here", 10, 220, 55, 232),
		word("too", 60, 220, 95, 232),
	}

	paras := NewParagraphComposer().Compose(words)
	// median height = 12 -> para gap max(12, 16.8) = 16.8. The 100px and
	// 40px line-center jumps both exceed it.
	if len(paras) != 3 {
		t.Fatalf("Expected 3 paragraphs, got %d: %v", len(paras), paras)
	}
}

func TestCompose_TextPreservation(t *testing.T) {
	words := []ocr.Word{
		word("alpha", 10, 10, 70, 30),
		word("beta", 75, 10, 120, 30),
		word("gamma", 10, 100, 80, 120),
		word("delta", 10, 200, 70, 220),
	}

	paras := NewParagraphComposer().Compose(words)
	var got []string
	for _, p := range paras {
		got = append(got, strings.Fields(p)...)
	}
	want := []string{"alpha", "beta", "gamma", "delta"}
	sort.Strings(got)
	sort.Strings(want)
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("Token multiset mismatch: got %v, want %v", got, want)
	}
}

func TestCompose_DropsEmptyParagraphs(t *testing.T) {
	words := []ocr.Word{
		word("", 10, 100, 60, 120),
		word("text", 10, 300, 60, 320),
	}

	paras := NewParagraphComposer().Compose(words)
	if len(paras) != 1 || paras[0] != "text" {
		t.Errorf("Paragraphs = %v", paras)
	}
}
