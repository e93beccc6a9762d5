package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/marginalia/internal/store"
)

type AnnotationsController struct {
	store *store.Manager
}

func NewAnnotationsController(manager *store.Manager) *AnnotationsController {
	return &AnnotationsController{store: manager}
}

// Get returns a single annotation by ID.
func (ctrl *AnnotationsController) Get(c *gin.Context) {
	ann, ok := ctrl.store.GetAnnotationByID(c.Param("id"))
	if !ok {
		respondNotFound(c, "annotation")
		return
	}
	c.IndentedJSON(http.StatusOK, ann)
}

// Update applies a partial update; absent fields stay untouched.
func (ctrl *AnnotationsController) Update(c *gin.Context) {
	var update store.AnnotationUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	id := c.Param("id")
	if !ctrl.store.UpdateAnnotation(id, update) {
		respondNotFound(c, "annotation")
		return
	}

	ann, _ := ctrl.store.GetAnnotationByID(id)
	c.IndentedJSON(http.StatusOK, ann)
}

// Delete removes a single annotation.
func (ctrl *AnnotationsController) Delete(c *gin.Context) {
	if !ctrl.store.DeleteAnnotation(c.Param("id")) {
		respondNotFound(c, "annotation")
		return
	}
	respondSuccess(c, "annotation deleted")
}

// Search returns annotations matching the q query parameter.
func (ctrl *AnnotationsController) Search(c *gin.Context) {
	query, ok := requireQuery(c, "q")
	if !ok {
		return
	}

	results := ctrl.store.Search(query)
	c.IndentedJSON(http.StatusOK, gin.H{"query": query, "count": len(results), "annotations": results})
}

// Stats returns store-wide counters.
func (ctrl *AnnotationsController) Stats(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, ctrl.store.Statistics())
}
