package http

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/marginalia/internal/entities"
	"github.com/mrlokans/marginalia/internal/ocr"
	"github.com/mrlokans/marginalia/internal/parsers"
	"github.com/mrlokans/marginalia/internal/store"
)

type ImportResponse struct {
	BookTitle           string `json:"book_title"`
	AnnotationsImported int    `json:"annotations_imported"`
}

type ImportController struct {
	store            *store.Manager
	parsers          *parsers.Registry
	ocrMinConfidence float64
}

func NewImportController(manager *store.Manager, registry *parsers.Registry, ocrMinConfidence float64) *ImportController {
	return &ImportController{
		store:            manager,
		parsers:          registry,
		ocrMinConfidence: ocrMinConfidence,
	}
}

// Import ingests a raw export blob from the request body. The format is
// normally auto-detected; a ?format= query parameter pins a parser by
// name when detection would be ambiguous.
func (ctrl *ImportController) Import(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondBadRequest(c, "failed to read request body")
		return
	}
	if len(body) == 0 {
		respondBadRequest(c, "request body is empty")
		return
	}

	bundle, err := ctrl.store.ImportFrom(string(body), c.Query("format"))
	if err != nil {
		if errors.Is(err, store.ErrNoParser) {
			respondBadRequest(c, err.Error())
			return
		}
		respondInternalError(c, err, "import")
		return
	}

	c.IndentedJSON(http.StatusOK, ImportResponse{
		BookTitle:           bundle.Metadata.Title,
		AnnotationsImported: bundle.Metadata.TotalNotes,
	})
}

type ManualAnnotationRequest struct {
	BookTitle string   `json:"book_title" binding:"required"`
	Kind      string   `json:"kind"`
	Content   string   `json:"content" binding:"required"`
	Chapter   string   `json:"chapter"`
	Tags      []string `json:"tags"`
}

// CreateManual adds a single hand-written annotation as a one-entry
// bundle, attributed to the manual source.
func (ctrl *ImportController) CreateManual(c *gin.Context) {
	var req ManualAnnotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	kind := entities.Kind(req.Kind)
	switch kind {
	case entities.KindHighlight, entities.KindNote, entities.KindBookmark:
	case "":
		kind = entities.KindNote
	default:
		respondBadRequest(c, "unknown annotation kind: "+req.Kind)
		return
	}

	bundle := entities.NewEmptyBundle()
	bundle.Metadata.Title = req.BookTitle
	bundle.Annotations = append(bundle.Annotations, &entities.Annotation{
		Kind:      kind,
		Content:   req.Content,
		Chapter:   req.Chapter,
		Tags:      req.Tags,
		CreatedAt: time.Now(),
		Source:    entities.SourceManual,
	})

	ingested := ctrl.store.ImportBundle(bundle)
	c.IndentedJSON(http.StatusCreated, ingested.Annotations[0])
}

type OCRImportRequest struct {
	BookTitle  string       `json:"book_title"`
	Text       string       `json:"text"`
	Confidence float64      `json:"confidence"`
	Regions    []ocr.Region `json:"regions"`
}

// ImportOCR ingests a recognition result produced by an external OCR
// engine. Transcripts carrying a known export structure are split by
// the matching parser; anything else becomes plain highlights. Blocks
// below the configured confidence floor are dropped.
func (ctrl *ImportController) ImportOCR(c *gin.Context) {
	var req OCRImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" && len(req.Regions) == 0 {
		respondBadRequest(c, "recognition result carries no text")
		return
	}

	result := ocr.RecognizeResult{
		Text:       req.Text,
		Confidence: req.Confidence,
		Regions:    req.Regions,
	}
	bundle := ocr.TranscriptBundle(ctrl.parsers, result, req.BookTitle, ctrl.ocrMinConfidence)
	ingested := ctrl.store.ImportBundle(bundle)

	c.IndentedJSON(http.StatusOK, ImportResponse{
		BookTitle:           ingested.Metadata.Title,
		AnnotationsImported: ingested.Metadata.TotalNotes,
	})
}
