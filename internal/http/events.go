package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/marginalia/internal/store"
)

type EventsController struct {
	log *store.EventLog
}

func NewEventsController(eventLog *store.EventLog) *EventsController {
	return &EventsController{log: eventLog}
}

// Recent returns the retained import/export/error events, oldest first.
func (ctrl *EventsController) Recent(c *gin.Context) {
	events := ctrl.log.Recent()
	c.IndentedJSON(http.StatusOK, gin.H{"count": len(events), "events": events})
}
