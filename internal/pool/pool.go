// Package pool runs per-page OCR across a fixed set of engine workers and
// reassembles results in page order regardless of completion order.
package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/platinummonkey/scrutable/internal/logger"
	"github.com/platinummonkey/scrutable/internal/ocr"
)

// Page is one rendered page submitted for OCR
type Page struct {
	// PNG is the PNG-encoded page raster
	PNG []byte

	// Width and Height are the page raster dimensions in pixels
	Width  int
	Height int
}

// PageWords is the OCR outcome for a single page
type PageWords struct {
	// PageIndex is the zero-based index the page was submitted with
	PageIndex int

	// Words are the normalized detections for the page, empty when the
	// page failed
	Words []ocr.Word

	// Dropped counts detections discarded by the normalizer
	Dropped int

	// Failed marks a page whose engine raised; the page still appears in
	// the output with zero words
	Failed bool
}

// Stats aggregates counters across one Run
type Stats struct {
	PagesProcessed    int
	PagesFailed       int
	WordsKept         int
	DetectionsDropped int
}

// Config holds configuration for the pool
type Config struct {
	// Size is the number of engine slots (default 4). The number of
	// workers actually started is min(Size, page count); remaining slots
	// stay unused.
	Size int

	// EngineFactory constructs one engine per worker
	EngineFactory ocr.Factory

	// MinConfidence drops normalized words scoring below it. Words with
	// no score are kept. Nil disables the filter.
	MinConfidence *float64

	// PageTimeout bounds a single page's recognition; an elapsed deadline
	// counts as an engine failure for that page. Zero disables it.
	PageTimeout time.Duration

	// Logger is the structured logger to use
	Logger *logger.Logger
}

// DefaultSize is the engine slot count used when Config.Size is zero.
// Static: page cost is not load-balanced across slots.
const DefaultSize = 4

// Pool dispatches pages round-robin over its workers and collects results
// as they complete
type Pool struct {
	size          int
	factory       ocr.Factory
	minConfidence *float64
	pageTimeout   time.Duration
	logger        *logger.Logger
}

// New creates a pool from the configuration
func New(cfg *Config) (*Pool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.EngineFactory == nil {
		return nil, fmt.Errorf("engine factory is required")
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	size := cfg.Size
	if size <= 0 {
		size = DefaultSize
	}

	return &Pool{
		size:          size,
		factory:       cfg.EngineFactory,
		minConfidence: cfg.MinConfidence,
		pageTimeout:   cfg.PageTimeout,
		logger:        log,
	}, nil
}

type task struct {
	index int
	page  Page
}

type taskResult struct {
	index   int
	words   []ocr.Word
	dropped int
	err     error
}

type recognition struct {
	detections []ocr.RawDetection
	err        error
}

// Run processes every page through exactly one worker and returns one
// PageWords per input page, ordered by page index ascending. Completion
// order across workers is arbitrary and never leaks into the output: results
// are keyed by the submitted index and reassembled by the single collecting
// goroutine. A failing page yields an empty word list and a failure count;
// it never aborts sibling pages.
func (p *Pool) Run(ctx context.Context, pages []Page) ([]PageWords, Stats) {
	var stats Stats
	if len(pages) == 0 {
		return nil, stats
	}

	workers := p.size
	if len(pages) < workers {
		workers = len(pages)
	}

	// Engines must come up single-threaded or P concurrent workers
	// oversubscribe shared cores.
	ocr.PinSingleThreaded()

	p.logger.WithFields(
		"pages", len(pages),
		"slots", p.size,
		"workers", workers,
	).Debug("Starting OCR pool")

	perWorker := (len(pages) + workers - 1) / workers
	queues := make([]chan task, workers)
	for w := range queues {
		queues[w] = make(chan task, perWorker)
	}

	results := make(chan taskResult, len(pages))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(id int, queue <-chan task) {
			defer wg.Done()
			p.runWorker(ctx, id, queue, results)
		}(w, queues[w])
	}

	// Static round robin by page index: page i goes to worker i%P. This
	// bounds queue depth per worker but does not balance uneven page cost.
	for i, page := range pages {
		queues[i%workers] <- task{index: i, page: page}
	}
	for _, q := range queues {
		close(q)
	}

	// Single collector: results arrive in completion order and are keyed
	// back to their page index here.
	collected := make(map[int]taskResult, len(pages))
	for range pages {
		res := <-results
		collected[res.index] = res
	}
	wg.Wait()

	out := make([]PageWords, len(pages))
	for i := range pages {
		res := collected[i]
		pw := PageWords{PageIndex: i, Words: res.words, Dropped: res.dropped}
		if res.err != nil {
			pw.Failed = true
			pw.Words = nil
			stats.PagesFailed++
			p.logger.WithPage(i+1).WithError(res.err).Warn("Page OCR failed, substituting empty word list")
		} else {
			stats.PagesProcessed++
			stats.WordsKept += len(pw.Words)
		}
		stats.DetectionsDropped += pw.Dropped
		out[i] = pw
	}

	p.logger.WithFields(
		"processed", stats.PagesProcessed,
		"failed", stats.PagesFailed,
		"words", stats.WordsKept,
		"dropped", stats.DetectionsDropped,
	).Debug("OCR pool finished")

	return out, stats
}

// runWorker owns one engine instance and drains its queue. A factory error
// fails this worker's pages only. A page that outlives its deadline leaves
// its engine abandoned mid-call, so the worker replaces the engine before
// taking the next task.
func (p *Pool) runWorker(ctx context.Context, id int, queue <-chan task, results chan<- taskResult) {
	engine, err := p.factory()
	if err != nil {
		p.logger.WithFields("worker", id).WithError(err).Error("Failed to initialize OCR engine")
		for t := range queue {
			results <- taskResult{index: t.index, err: fmt.Errorf("engine init failed: %w", err)}
		}
		return
	}
	defer func() {
		if engine == nil {
			return
		}
		if cerr := engine.Close(); cerr != nil {
			p.logger.WithFields("worker", id).WithError(cerr).Warn("Failed to close OCR engine")
		}
	}()

	for t := range queue {
		res, abandoned := p.processPage(ctx, engine, t)
		results <- res
		if !abandoned {
			continue
		}

		p.logger.WithFields("worker", id).WithPage(t.index+1).Warn("Page deadline elapsed, replacing OCR engine")
		engine, err = p.factory()
		if err != nil {
			p.logger.WithFields("worker", id).WithError(err).Error("Failed to replace OCR engine")
			engine = nil
			for t := range queue {
				results <- taskResult{index: t.index, err: fmt.Errorf("engine init failed: %w", err)}
			}
			return
		}
	}
}

// processPage recognizes one page and normalizes its detections. Engine
// errors and panics become a per-page failure result; they never take the
// pool down. The second return reports that the page deadline elapsed and
// the engine must not be reused.
func (p *Pool) processPage(ctx context.Context, engine ocr.Engine, t task) (taskResult, bool) {
	res := taskResult{index: t.index}

	if p.pageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.pageTimeout)
		defer cancel()
	}

	detections, abandoned, err := p.recognize(ctx, engine, t.page.PNG)
	if err != nil {
		res.err = fmt.Errorf("recognition failed on page %d: %w", t.index+1, err)
		return res, abandoned
	}

	pageW := float64(t.page.Width)
	pageH := float64(t.page.Height)

	words := make([]ocr.Word, 0, len(detections))
	for _, det := range detections {
		word, ok := ocr.Normalize(det)
		if !ok {
			res.dropped++
			continue
		}
		if pageW > 0 && pageH > 0 {
			word.BBox = word.BBox.Clamp(pageW, pageH)
		}
		if p.minConfidence != nil && word.Confidence != nil && *word.Confidence < *p.minConfidence {
			continue
		}
		words = append(words, word)
	}
	res.words = words
	return res, false
}

// recognize invokes the engine and enforces the context deadline even when
// the engine implementation ignores its ctx, as the cgo-backed one does
// inside its blocking calls. On an elapsed deadline the in-flight call is
// abandoned: a watcher goroutine closes the engine once the call finally
// returns, and the abandoned flag tells the worker to replace it.
func (p *Pool) recognize(ctx context.Context, engine ocr.Engine, png []byte) ([]ocr.RawDetection, bool, error) {
	done := make(chan recognition, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- recognition{err: fmt.Errorf("engine panic: %v", r)}
			}
		}()
		dets, err := engine.Recognize(ctx, png)
		done <- recognition{detections: dets, err: err}
	}()

	select {
	case r := <-done:
		return r.detections, false, r.err
	case <-ctx.Done():
		go func() {
			<-done
			if cerr := engine.Close(); cerr != nil {
				p.logger.WithError(cerr).Warn("Failed to close abandoned OCR engine")
			}
		}()
		return nil, true, ctx.Err()
	}
}
