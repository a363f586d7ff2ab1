package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/signintech/gopdf"

	"github.com/platinummonkey/scrutable/internal/config"
	"github.com/platinummonkey/scrutable/internal/ocr"
	"github.com/platinummonkey/scrutable/internal/state"
)

// scriptedEngine emits a fixed detection sequence, one page per call,
// regardless of the image content.
type scriptedEngine struct {
	mu    sync.Mutex
	calls int
	delay time.Duration
}

func (e *scriptedEngine) Recognize(_ context.Context, _ []byte) ([]ocr.RawDetection, error) {
	e.mu.Lock()
	e.calls++
	n := e.calls
	e.mu.Unlock()

	if e.delay > 0 {
		time.Sleep(e.delay)
	}

	return []ocr.RawDetection{
		map[string]any{
			"text":  fmt.Sprintf("call-%d", n),
			"box":   []any{10.0, 20.0, 110.0, 40.0},
			"score": 0.95,
		},
	}, nil
}

func (e *scriptedEngine) Close() error { return nil }

func writeTestPDF(t *testing.T, dir, name string, pages int) string {
	t.Helper()

	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	for i := 0; i < pages; i++ {
		pdf.AddPage()
	}

	path := filepath.Join(dir, name)
	if err := pdf.WritePdf(path); err != nil {
		t.Fatalf("Failed to write test PDF: %v", err)
	}
	return path
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	tmpDir := t.TempDir()
	cfg := &config.Config{
		OutputDir:     filepath.Join(tmpDir, "out"),
		DPI:           72,
		Engines:       2,
		Languages:     "eng",
		MinConfidence: -1,
		Layout:        config.LayoutConfig{GapX: 30, GapY: 20, KVGapX: 150, KVGapY: 40},
		Annotate:      true,
		StateFile:     filepath.Join(tmpDir, "state.json"),
		LogLevel:      "error",
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Test config invalid: %v", err)
	}
	return cfg
}

func newTestOrchestrator(t *testing.T, cfg *config.Config, sm *state.Manager) *Orchestrator {
	t.Helper()
	o, err := New(&Config{
		AppConfig:     cfg,
		EngineFactory: func() (ocr.Engine, error) { return &scriptedEngine{}, nil },
		StateManager:  sm,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return o
}

func TestNew_RequiresConfig(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("Expected error for nil config")
	}
	if _, err := New(&Config{}); err == nil {
		t.Error("Expected error for missing app config")
	}
}

func TestProcessDocument_WritesAllArtifacts(t *testing.T) {
	cfg := testConfig(t)
	o := newTestOrchestrator(t, cfg, nil)

	pdfPath := writeTestPDF(t, t.TempDir(), "invoice.pdf", 3)

	result, err := o.ProcessDocument(context.Background(), pdfPath)
	if err != nil {
		t.Fatalf("ProcessDocument failed: %v", err)
	}
	if result.PageCount != 3 {
		t.Errorf("Expected 3 pages, got %d", result.PageCount)
	}
	if result.Stem != "invoice" {
		t.Errorf("Expected stem invoice, got %q", result.Stem)
	}

	outRoot := filepath.Join(cfg.OutputDir, "invoice")
	for _, name := range []string{
		"invoice_words.json",
		"invoice_blocks.json",
		"invoice_paragraphs.txt",
		"invoice_annotated.pdf",
	} {
		if _, err := os.Stat(filepath.Join(outRoot, name)); err != nil {
			t.Errorf("Artifact %s missing: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "times.txt")); err != nil {
		t.Errorf("Timing log missing: %v", err)
	}
}

func TestProcessDocument_WordsArtifactShape(t *testing.T) {
	cfg := testConfig(t)
	o := newTestOrchestrator(t, cfg, nil)

	pdfPath := writeTestPDF(t, t.TempDir(), "doc.pdf", 2)
	if _, err := o.ProcessDocument(context.Background(), pdfPath); err != nil {
		t.Fatalf("ProcessDocument failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, "doc", "doc_words.json"))
	if err != nil {
		t.Fatalf("Failed to read words artifact: %v", err)
	}

	var doc WordsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Words artifact does not parse: %v", err)
	}
	if doc.Document != "doc.pdf" {
		t.Errorf("Expected document doc.pdf, got %q", doc.Document)
	}
	if doc.DPI != 72 {
		t.Errorf("Expected DPI 72, got %d", doc.DPI)
	}
	if len(doc.Pages) != 2 {
		t.Fatalf("Expected 2 pages, got %d", len(doc.Pages))
	}
	for i, p := range doc.Pages {
		if p.PageNum != i+1 {
			t.Errorf("Page %d has page_num %d", i, p.PageNum)
		}
		if p.Width <= 0 || p.Height <= 0 {
			t.Errorf("Page %d missing dimensions: %dx%d", i, p.Width, p.Height)
		}
		if len(p.Texts) != 1 {
			t.Errorf("Page %d: expected 1 word, got %d", i, len(p.Texts))
		}
	}
}

func TestProcessDocument_BlocksArtifactOrdered(t *testing.T) {
	cfg := testConfig(t)
	o := newTestOrchestrator(t, cfg, nil)

	pdfPath := writeTestPDF(t, t.TempDir(), "multi.pdf", 5)
	if _, err := o.ProcessDocument(context.Background(), pdfPath); err != nil {
		t.Fatalf("ProcessDocument failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, "multi", "multi_blocks.json"))
	if err != nil {
		t.Fatalf("Failed to read blocks artifact: %v", err)
	}

	var doc BlocksDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Blocks artifact does not parse: %v", err)
	}
	if len(doc.Pages) != 5 {
		t.Fatalf("Expected 5 pages, got %d", len(doc.Pages))
	}
	for i, p := range doc.Pages {
		if p.PageNum != i+1 {
			t.Errorf("Blocks page %d has page_num %d, order broken", i, p.PageNum)
		}
	}
}

func TestProcessDocument_NoAnnotateSkipsPDF(t *testing.T) {
	cfg := testConfig(t)
	cfg.Annotate = false
	o := newTestOrchestrator(t, cfg, nil)

	pdfPath := writeTestPDF(t, t.TempDir(), "plain.pdf", 1)
	if _, err := o.ProcessDocument(context.Background(), pdfPath); err != nil {
		t.Fatalf("ProcessDocument failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "plain", "plain_annotated.pdf")); !os.IsNotExist(err) {
		t.Error("Annotated PDF should not be written when annotation is off")
	}
	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "plain", "plain_blocks.json")); err != nil {
		t.Errorf("Blocks artifact should still be written: %v", err)
	}
}

func TestProcessDocument_MissingFile(t *testing.T) {
	o := newTestOrchestrator(t, testConfig(t), nil)
	if _, err := o.ProcessDocument(context.Background(), "/nonexistent/doc.pdf"); err == nil {
		t.Error("Expected error for missing source")
	}
}

func TestRun_SingleFile(t *testing.T) {
	cfg := testConfig(t)
	o := newTestOrchestrator(t, cfg, nil)

	pdfPath := writeTestPDF(t, t.TempDir(), "one.pdf", 1)

	result, err := o.Run(context.Background(), pdfPath)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.RunID == "" {
		t.Error("Run ID should be set")
	}
	if result.TotalDocuments != 1 || result.SuccessCount != 1 || result.FailureCount != 0 {
		t.Errorf("Unexpected result: %+v", result)
	}
}

func TestRun_Folder(t *testing.T) {
	cfg := testConfig(t)
	o := newTestOrchestrator(t, cfg, nil)

	inDir := t.TempDir()
	writeTestPDF(t, inDir, "b.pdf", 1)
	writeTestPDF(t, inDir, "a.pdf", 1)
	if err := os.WriteFile(filepath.Join(inDir, "notes.txt"), []byte("not a pdf"), 0644); err != nil {
		t.Fatalf("Failed to write decoy file: %v", err)
	}

	result, err := o.Run(context.Background(), inDir)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.TotalDocuments != 2 || result.SuccessCount != 2 {
		t.Errorf("Unexpected result: %+v", result)
	}
	// Sorted by name: a.pdf before b.pdf.
	if result.Successes[0].Stem != "a" || result.Successes[1].Stem != "b" {
		t.Errorf("Folder runs should process PDFs in name order: %v, %v",
			result.Successes[0].Stem, result.Successes[1].Stem)
	}
}

func TestRun_FolderContinuesPastFailure(t *testing.T) {
	cfg := testConfig(t)
	o := newTestOrchestrator(t, cfg, nil)

	inDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(inDir, "broken.pdf"), []byte("not really a pdf"), 0644); err != nil {
		t.Fatalf("Failed to write broken PDF: %v", err)
	}
	writeTestPDF(t, inDir, "good.pdf", 1)

	result, err := o.Run(context.Background(), inDir)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.SuccessCount != 1 || result.FailureCount != 1 {
		t.Errorf("Expected 1 success and 1 failure, got %+v", result)
	}
	if !result.HasFailures() {
		t.Error("HasFailures should be true")
	}
	if !strings.Contains(result.Summary(), "broken.pdf") {
		t.Error("Summary should name the failed document")
	}
}

func TestRun_InvalidInput(t *testing.T) {
	o := newTestOrchestrator(t, testConfig(t), nil)

	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("text"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if _, err := o.Run(context.Background(), path); err == nil {
		t.Error("Expected error for non-PDF input file")
	}
}

func TestRun_SkipsUnchangedDocuments(t *testing.T) {
	cfg := testConfig(t)
	sm := state.NewManager(cfg.StateFile)
	o := newTestOrchestrator(t, cfg, sm)

	inDir := t.TempDir()
	writeTestPDF(t, inDir, "stable.pdf", 1)

	first, err := o.Run(context.Background(), inDir)
	if err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	if first.SuccessCount != 1 || first.SkippedDocuments != 0 {
		t.Fatalf("Unexpected first run: %+v", first)
	}

	second, err := o.Run(context.Background(), inDir)
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if second.SkippedDocuments != 1 || second.ProcessedDocuments != 0 {
		t.Errorf("Second run should skip the unchanged document: %+v", second)
	}
}
