// Package pipeline orchestrates the full document extraction flow: rasterize
// pages, OCR them across the engine pool, merge layout, and write artifacts.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/scrutable/internal/annotate"
	"github.com/platinummonkey/scrutable/internal/config"
	"github.com/platinummonkey/scrutable/internal/layout"
	"github.com/platinummonkey/scrutable/internal/logger"
	"github.com/platinummonkey/scrutable/internal/ocr"
	"github.com/platinummonkey/scrutable/internal/pool"
	"github.com/platinummonkey/scrutable/internal/render"
	"github.com/platinummonkey/scrutable/internal/state"
)

// Config holds the dependencies for the orchestrator
type Config struct {
	// AppConfig is the application configuration
	AppConfig *config.Config

	// EngineFactory overrides the default Tesseract engine factory,
	// mainly for testing
	EngineFactory ocr.Factory

	// StateManager enables skip-unchanged behavior for batch and watch
	// runs; nil processes everything
	StateManager *state.Manager

	// Logger is the structured logger to use
	Logger *logger.Logger
}

// Orchestrator runs the extraction pipeline over PDFs
type Orchestrator struct {
	cfg          *config.Config
	factory      ocr.Factory
	rasterizer   *render.Rasterizer
	detector     *layout.BlockDetector
	composer     *layout.ParagraphComposer
	annotator    *annotate.Annotator
	stateManager *state.Manager
	logger       *logger.Logger
}

// New creates a pipeline orchestrator
func New(cfg *Config) (*Orchestrator, error) {
	if cfg == nil || cfg.AppConfig == nil {
		return nil, fmt.Errorf("application config is required")
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	appCfg := cfg.AppConfig

	factory := cfg.EngineFactory
	if factory == nil {
		languages := strings.Split(appCfg.Languages, "+")
		factory = func() (ocr.Engine, error) {
			return ocr.NewTesseractEngine(languages...)
		}
	}

	return &Orchestrator{
		cfg:        appCfg,
		factory:    factory,
		rasterizer: render.New(&render.Config{DPI: appCfg.DPI, Logger: log}),
		detector: layout.NewBlockDetectorWithConfig(layout.BlockConfig{
			GapX:   appCfg.Layout.GapX,
			GapY:   appCfg.Layout.GapY,
			KVGapX: appCfg.Layout.KVGapX,
			KVGapY: appCfg.Layout.KVGapY,
		}),
		composer: layout.NewParagraphComposer(),
		annotator: annotate.New(&annotate.Config{
			DPI:       appCfg.DPI,
			DrawWords: appCfg.DrawWords,
			Logger:    log,
		}),
		stateManager: cfg.StateManager,
		logger:       log,
	}, nil
}

// Run processes a single PDF or every PDF in a folder (sorted by name) and
// returns the aggregated result. Folder runs with a state manager skip
// documents whose completed fingerprint is unchanged.
func (o *Orchestrator) Run(ctx context.Context, inputPath string) (*Result, error) {
	startTime := time.Now()
	result := NewResult(uuid.New().String())

	o.logger.WithFields("run_id", result.RunID, "input", inputPath).Info("Starting pipeline run")

	info, err := os.Stat(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat input: %w", err)
	}

	var pdfs []string
	switch {
	case !info.IsDir() && strings.EqualFold(filepath.Ext(inputPath), ".pdf"):
		pdfs = []string{inputPath}
	case info.IsDir():
		pdfs, err = listPDFs(inputPath)
		if err != nil {
			return nil, err
		}
		if len(pdfs) == 0 {
			o.logger.WithFields("input", inputPath).Warn("No PDFs found")
		}
	default:
		return nil, fmt.Errorf("input must be a PDF file or a folder containing PDFs: %s", inputPath)
	}

	result.TotalDocuments = len(pdfs)

	for _, pdf := range pdfs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if o.stateManager != nil {
			needs, err := o.stateManager.NeedsProcessing(pdf)
			if err != nil {
				o.logger.WithDocument(pdf).WithError(err).Warn("Skip check failed, processing anyway")
			} else if !needs {
				o.logger.WithDocument(pdf).Info("Unchanged since last run, skipping")
				result.SkippedDocuments++
				continue
			}
		}

		docResult, err := o.ProcessDocument(ctx, pdf)
		result.ProcessedDocuments++
		if err != nil {
			o.logger.WithDocument(pdf).WithError(err).Error("Document processing failed")
			result.AddError(pdf, err)
			if o.stateManager != nil {
				o.stateManager.MarkFailed(pdf, err)
			}
			continue
		}
		result.AddSuccess(docResult)
		if o.stateManager != nil {
			if err := o.stateManager.MarkCompleted(pdf, result.RunID, docResult.PageCount, docResult.FailedPages); err != nil {
				o.logger.WithDocument(pdf).WithError(err).Warn("Failed to record completion")
			}
		}
	}

	if o.stateManager != nil {
		o.stateManager.UpdateLastRun()
		if err := o.stateManager.Save(); err != nil {
			o.logger.WithError(err).Warn("Failed to save state")
		}
	}

	result.Duration = time.Since(startTime)
	o.logger.WithFields(
		"run_id", result.RunID,
		"successful", result.SuccessCount,
		"failed", result.FailureCount,
		"skipped", result.SkippedDocuments,
		"duration", result.Duration,
	).Info("Pipeline run complete")

	return result, nil
}

// ProcessDocument runs the full pipeline for one PDF and writes its
// artifacts under <output-dir>/<stem>/
func (o *Orchestrator) ProcessDocument(ctx context.Context, pdfPath string) (*DocumentResult, error) {
	startTime := time.Now()
	stem := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	outRoot := filepath.Join(o.cfg.OutputDir, stem)

	log := o.logger.WithDocument(filepath.Base(pdfPath))
	log.Info("Processing document")

	if err := os.MkdirAll(outRoot, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	// 1) Render all pages.
	pages, err := o.rasterizer.RenderPages(ctx, pdfPath)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		log.Warn("Document has no pages, nothing to do")
		return &DocumentResult{
			Path:      pdfPath,
			Stem:      stem,
			OutputDir: outRoot,
			StartTime: startTime,
			Duration:  time.Since(startTime),
		}, nil
	}

	// 2) OCR every page across the engine pool.
	enginePool, err := pool.New(&pool.Config{
		Size:          o.cfg.Engines,
		EngineFactory: o.factory,
		MinConfidence: o.cfg.MinConfidencePtr(),
		PageTimeout:   o.cfg.PageTimeout,
		Logger:        o.logger,
	})
	if err != nil {
		return nil, err
	}

	poolPages := make([]pool.Page, len(pages))
	for i, pg := range pages {
		poolPages[i] = pool.Page{PNG: pg.PNG, Width: pg.Width, Height: pg.Height}
	}
	pageWords, stats := enginePool.Run(ctx, poolPages)

	// 3) Build the ordered words artifact, 1..N.
	wordsDoc := WordsDocument{
		Document: filepath.Base(pdfPath),
		DPI:      o.cfg.DPI,
		Pages:    make([]PageWords, len(pages)),
	}
	for i, pw := range pageWords {
		texts := pw.Words
		if texts == nil {
			texts = []ocr.Word{}
		}
		wordsDoc.Pages[i] = PageWords{
			PageNum: i + 1,
			Width:   pages[i].Width,
			Height:  pages[i].Height,
			Texts:   texts,
		}
	}

	// 4) Merge words into blocks, pages in parallel.
	blocksDoc := BlocksDocument{
		Document: wordsDoc.Document,
		DPI:      o.cfg.DPI,
		Pages:    make([]PageBlocks, len(pages)),
	}
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i := range wordsDoc.Pages {
		i := i
		g.Go(func() error {
			blocks := o.detector.Detect(wordsDoc.Pages[i].Texts)
			if blocks == nil {
				blocks = []layout.Block{}
			}
			blocksDoc.Pages[i] = PageBlocks{PageNum: i + 1, Blocks: blocks}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// 5) Compose paragraphs from the whole document's words.
	var allWords []ocr.Word
	for _, p := range wordsDoc.Pages {
		allWords = append(allWords, p.Texts...)
	}
	paragraphs := o.composer.Compose(allWords)

	// 6) Write artifacts.
	if err := writeJSON(filepath.Join(outRoot, stem+"_words.json"), wordsDoc); err != nil {
		return nil, err
	}
	blocksPath := filepath.Join(outRoot, stem+"_blocks.json")
	if err := writeJSON(blocksPath, blocksDoc); err != nil {
		return nil, err
	}
	paraPath := filepath.Join(outRoot, stem+"_paragraphs.txt")
	if err := os.WriteFile(paraPath, []byte(strings.Join(paragraphs, "\n\n")), 0644); err != nil {
		return nil, fmt.Errorf("failed to write paragraphs: %w", err)
	}

	if o.cfg.Annotate {
		annotatePages := make([]annotate.Page, len(pages))
		for i := range pages {
			annotatePages[i] = annotate.Page{
				PNG:    pages[i].PNG,
				Words:  wordsDoc.Pages[i].Texts,
				Blocks: blocksDoc.Pages[i].Blocks,
			}
		}
		if err := o.annotator.WritePDF(annotatePages, filepath.Join(outRoot, stem+"_annotated.pdf")); err != nil {
			// Annotation is a convenience artifact; the structured outputs
			// above are already on disk.
			log.WithError(err).Warn("Failed to write annotated PDF")
		}
	}

	// 7) Log timing.
	elapsed := time.Since(startTime)
	used := o.cfg.Engines
	if len(pages) < used {
		used = len(pages)
	}
	timing := fmt.Sprintf("%s: %.2fs | pages=%d | engines_total=%d used=%d idle=%d",
		stem, elapsed.Seconds(), len(pages), o.cfg.Engines, used, o.cfg.Engines-used)
	if err := appendLine(filepath.Join(o.cfg.OutputDir, "times.txt"), timing); err != nil {
		log.WithError(err).Warn("Failed to append timing log")
	}

	blockCount := 0
	for _, p := range blocksDoc.Pages {
		blockCount += len(p.Blocks)
	}

	log.WithFields(
		"pages", len(pages),
		"failed_pages", stats.PagesFailed,
		"words", stats.WordsKept,
		"dropped", stats.DetectionsDropped,
		"blocks", blockCount,
		"duration", elapsed,
	).Info("Document processed")

	return &DocumentResult{
		Path:        pdfPath,
		Stem:        stem,
		PageCount:   len(pages),
		FailedPages: stats.PagesFailed,
		WordCount:   stats.WordsKept,
		BlockCount:  blockCount,
		OutputDir:   outRoot,
		BlocksPath:  blocksPath,
		StartTime:   startTime,
		Duration:    elapsed,
	}, nil
}

// listPDFs returns the PDFs directly inside dir, sorted by name
func listPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}

	var pdfs []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			pdfs = append(pdfs, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(pdfs)
	return pdfs, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(line + "\n")
	return err
}
