//go:build !ocr

package ocr

// NewTesseractEngine is the stub used when the "ocr" build tag is not set.
// It always returns ErrOCRNotEnabled.
//
// To enable OCR, rebuild with the "ocr" build tag:
//
//	go build -tags ocr
//
// This requires Tesseract to be installed. On macOS:
//
//	brew install tesseract
//
// On Ubuntu/Debian:
//
//	apt-get install tesseract-ocr libtesseract-dev
func NewTesseractEngine(languages ...string) (Engine, error) {
	return nil, ErrOCRNotEnabled
}
