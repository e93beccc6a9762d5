package ocr

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mrlokans/marginalia/internal/entities"
	"github.com/mrlokans/marginalia/internal/parsers"
)

// Region is a recognized text block with its page coordinates and a
// per-block confidence score in the 0-100 range.
type Region struct {
	Text       string  `json:"text"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Confidence float64 `json:"confidence"`
}

// RecognizeResult is the output of one recognition pass over a page
// photo. Text is the full transcript; Regions break it down per block
// when the engine provides layout information.
type RecognizeResult struct {
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
	Regions    []Region `json:"regions,omitempty"`
}

// Recognizer runs text recognition over raw image bytes. The engine
// itself lives in the host application; this package only defines the
// contract and converts results into annotation bundles.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (RecognizeResult, error)
}

// DefaultMinConfidence drops blocks the engine itself is unsure about.
const DefaultMinConfidence = 60.0

// BundleFromResult converts a recognition result into a bundle of
// highlight annotations attributed to the given book. Regions below
// minConfidence are skipped; with no region data the whole transcript
// becomes a single annotation, gated on the overall confidence.
func BundleFromResult(result RecognizeResult, bookTitle string, minConfidence float64) entities.BookBundle {
	bundle := entities.NewEmptyBundle()
	if strings.TrimSpace(bookTitle) != "" {
		bundle.Metadata.Title = bookTitle
	}

	now := time.Now()

	if len(result.Regions) == 0 {
		text := strings.TrimSpace(result.Text)
		if text == "" || result.Confidence < minConfidence {
			return bundle
		}
		bundle.Annotations = append(bundle.Annotations, newAnnotation(text, 0, now, result.Confidence, nil))
		bundle.Recount()
		return bundle
	}

	for i, region := range result.Regions {
		text := strings.TrimSpace(region.Text)
		if text == "" || region.Confidence < minConfidence {
			continue
		}
		bundle.Annotations = append(bundle.Annotations, newAnnotation(text, i, now, region.Confidence, &region))
	}
	bundle.Recount()
	return bundle
}

// TranscriptBundle converts a transcript that may carry the marker
// structure of a known export format. When a registered parser detects
// it, that parser does the splitting and the annotations are retagged
// as OCR-sourced; otherwise the plain BundleFromResult path applies.
func TranscriptBundle(registry *parsers.Registry, result RecognizeResult, bookTitle string, minConfidence float64) entities.BookBundle {
	text := strings.TrimSpace(result.Text)
	if registry != nil && text != "" && result.Confidence >= minConfidence {
		if parser, ok := registry.Detect(text); ok {
			bundle := parser.Parse(text)
			if strings.TrimSpace(bookTitle) != "" && bundle.Metadata.Title == entities.UnknownBookTitle {
				bundle.Metadata.Title = bookTitle
			}
			for _, ann := range bundle.Annotations {
				ann.Source = entities.SourceOCR
			}
			return bundle
		}
	}
	return BundleFromResult(result, bookTitle, minConfidence)
}

func newAnnotation(text string, index int, now time.Time, confidence float64, region *Region) *entities.Annotation {
	ann := &entities.Annotation{
		ID:            fmt.Sprintf("ocr-%d-%d", index, now.UnixNano()),
		Kind:          entities.KindHighlight,
		Content:       text,
		LocationLabel: fmt.Sprintf("scanned, %.0f%% confidence", confidence),
		CreatedAt:     now,
		Source:        entities.SourceOCR,
	}
	if region != nil {
		ann.Position = region.Y
	}
	return ann
}
