package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/marginalia/internal/ocr"
	"github.com/mrlokans/marginalia/internal/parsers"
	"github.com/mrlokans/marginalia/internal/store"
)

// RouterConfig carries the router's dependencies. Parsers and
// OCRMinConfidence feed the OCR transcript endpoint; zero values fall
// back to the package defaults.
type RouterConfig struct {
	Store            *store.Manager
	EventLog         *store.EventLog
	Parsers          *parsers.Registry
	OCRMinConfidence float64
	Version          string
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	if cfg.Parsers == nil {
		cfg.Parsers = parsers.NewDefaultRegistry()
	}
	if cfg.OCRMinConfidence <= 0 {
		cfg.OCRMinConfidence = ocr.DefaultMinConfidence
	}

	healthController := NewHealthController(cfg.Store, cfg.Version)
	importController := NewImportController(cfg.Store, cfg.Parsers, cfg.OCRMinConfidence)
	booksController := NewBooksController(cfg.Store)
	annotationsController := NewAnnotationsController(cfg.Store)

	router.GET("/healthcheck", healthController.Status)

	api := router.Group("/api")
	{
		api.POST("/import", importController.Import)
		api.POST("/import/ocr", importController.ImportOCR)

		api.GET("/books", booksController.List)
		api.GET("/books/annotations", booksController.Annotations)
		api.DELETE("/books", booksController.Delete)
		api.POST("/books/export", booksController.Export)

		api.POST("/annotations", importController.CreateManual)
		api.GET("/annotations/search", annotationsController.Search)
		api.GET("/annotations/:id", annotationsController.Get)
		api.PATCH("/annotations/:id", annotationsController.Update)
		api.DELETE("/annotations/:id", annotationsController.Delete)

		api.GET("/stats", annotationsController.Stats)

		if cfg.EventLog != nil {
			eventsController := NewEventsController(cfg.EventLog)
			api.GET("/events", eventsController.Recent)
		}
	}

	return router
}
