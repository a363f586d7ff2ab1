//go:build ocr

package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// TesseractEngine implements Engine on top of a long-lived gosseract client.
// The client (and its loaded model data) is reused across every page the
// owning worker processes.
type TesseractEngine struct {
	client *gosseract.Client
}

// NewTesseractEngine creates a Tesseract-backed engine. Languages are
// Tesseract codes such as "eng" or "deu"; empty means the Tesseract default.
func NewTesseractEngine(languages ...string) (Engine, error) {
	client := gosseract.NewClient()

	if len(languages) > 0 {
		if err := client.SetLanguage(languages...); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set OCR languages: %w", err)
		}
	}

	return &TesseractEngine{client: client}, nil
}

// Recognize runs Tesseract word detection on PNG page bytes. Detections are
// emitted as records with conventional box/text/score keys; the normalizer
// owns conversion to canonical Words.
func (e *TesseractEngine) Recognize(ctx context.Context, png []byte) ([]RawDetection, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if err := e.client.SetImageFromBytes(png); err != nil {
		return nil, fmt.Errorf("failed to set image data: %w", err)
	}

	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("failed to get word boxes: %w", err)
	}

	detections := make([]RawDetection, 0, len(boxes))
	for _, box := range boxes {
		detections = append(detections, map[string]any{
			"box": []float64{
				float64(box.Box.Min.X),
				float64(box.Box.Min.Y),
				float64(box.Box.Max.X),
				float64(box.Box.Max.Y),
			},
			"text": box.Word,
			// Tesseract reports 0-100; canonical confidence is [0,1]
			"score": box.Confidence / 100.0,
		})
	}

	return detections, nil
}

// Close releases the Tesseract client
func (e *TesseractEngine) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}
