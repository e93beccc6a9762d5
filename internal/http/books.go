package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/marginalia/internal/exporters"
	"github.com/mrlokans/marginalia/internal/store"
)

type BooksController struct {
	store *store.Manager
}

func NewBooksController(manager *store.Manager) *BooksController {
	return &BooksController{store: manager}
}

// List returns metadata for every stored book in import order.
func (ctrl *BooksController) List(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, gin.H{"books": ctrl.store.ListBooks()})
}

// Annotations returns the annotations of one book, identified by the
// title query parameter.
func (ctrl *BooksController) Annotations(c *gin.Context) {
	title, ok := requireQuery(c, "title")
	if !ok {
		return
	}

	annotations, found := ctrl.store.GetAnnotationsForBook(title)
	if !found {
		respondNotFound(c, "book")
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"title": title, "annotations": annotations})
}

// Delete removes a book and all of its annotations.
func (ctrl *BooksController) Delete(c *gin.Context) {
	title, ok := requireQuery(c, "title")
	if !ok {
		return
	}

	if !ctrl.store.DeleteBook(title) {
		respondNotFound(c, "book")
		return
	}
	respondSuccess(c, "book deleted")
}

type ExportRequest struct {
	Title           string `json:"title" binding:"required"`
	Renderer        string `json:"renderer"`
	GroupByChapter  bool   `json:"group_by_chapter"`
	SortBy          string `json:"sort_by"`
	IncludeMetadata *bool  `json:"include_metadata"`
	IncludeLocation *bool  `json:"include_location"`
	IncludeTags     *bool  `json:"include_tags"`
}

type ExportResponse struct {
	Path string `json:"path"`
}

// Export renders a book to a file in the export directory and returns
// the written path.
func (ctrl *BooksController) Export(c *gin.Context) {
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	if req.Renderer == "" {
		req.Renderer = "markdown"
	}

	opts := exporters.DefaultOptions()
	opts.GroupByChapter = req.GroupByChapter
	if req.SortBy != "" {
		opts.SortBy = exporters.SortBy(req.SortBy)
	}
	if req.IncludeMetadata != nil {
		opts.IncludeMetadata = *req.IncludeMetadata
	}
	if req.IncludeLocation != nil {
		opts.IncludeLocation = *req.IncludeLocation
	}
	if req.IncludeTags != nil {
		opts.IncludeTags = *req.IncludeTags
	}

	path, err := ctrl.store.ExportBook(req.Title, req.Renderer, opts)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrUnknownBook):
			respondNotFound(c, "book")
		case errors.Is(err, store.ErrUnknownRenderer):
			respondBadRequest(c, err.Error())
		default:
			respondInternalError(c, err, "export")
		}
		return
	}

	c.IndentedJSON(http.StatusOK, ExportResponse{Path: path})
}
