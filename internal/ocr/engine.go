package ocr

import (
	"context"
	"errors"
	"os"
	"sync"
)

// ErrOCRNotEnabled is returned when the Tesseract engine is requested but OCR
// support was not compiled in. Rebuild with -tags ocr to enable it.
var ErrOCRNotEnabled = errors.New("OCR support not enabled; rebuild with -tags ocr")

// RawDetection is one engine-native output record: text + position +
// confidence in whatever packing the engine produces. Normalize converts it
// to a canonical Word.
type RawDetection = any

// Engine runs inference on a rendered page image. An Engine instance is
// owned by exactly one pool worker for its whole lifetime, so
// implementations need not be safe for concurrent use.
type Engine interface {
	// Recognize runs OCR on PNG-encoded page bytes and returns the raw
	// detections for that page.
	Recognize(ctx context.Context, png []byte) ([]RawDetection, error)

	// Close releases engine resources.
	Close() error
}

// Factory constructs one engine instance. The pool calls it once per worker
// so model-load cost is amortized across all pages assigned to that worker.
type Factory func() (Engine, error)

var pinOnce sync.Once

// PinSingleThreaded forces numeric and OCR runtimes into single-threaded
// mode. Must be called before the first engine instance is constructed:
// with several engines running concurrently on shared cores, per-engine
// thread pools oversubscribe the CPU and slow everything down.
func PinSingleThreaded() {
	pinOnce.Do(func() {
		for _, k := range []string{
			"OMP_THREAD_LIMIT",
			"OMP_NUM_THREADS",
			"OPENBLAS_NUM_THREADS",
			"MKL_NUM_THREADS",
		} {
			os.Setenv(k, "1")
		}
	})
}
