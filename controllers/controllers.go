package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"protocol-review-api/services"
	"protocol-review-api/store"
)

// Engine handles shared by the handlers. Setup wires them once at startup.
var (
	recordStore       store.Store
	protocolService   *services.ProtocolService
	assignmentService *services.AssignmentService
	documentService   *services.DocumentService
	assessmentService *services.AssessmentService
	notifications     *services.NotificationService
	previews          *services.PreviewService
)

// Setup builds the engine services on top of the record store.
func Setup(s store.Store) {
	recordStore = s
	notifications = services.NewNotificationService(s)
	protocolService = services.NewProtocolService(s)
	assignmentService = services.NewAssignmentService(s, notifications)
	documentService = services.NewDocumentService(s)
	assessmentService = services.NewAssessmentService(s)
	previews = services.NewPreviewService()
}

// respondServiceError maps the engine error taxonomy onto HTTP statuses.
// Every rejection carries the engine's specific reason.
func respondServiceError(c *gin.Context, err error) {
	var validation *services.ValidationError
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
	case errors.Is(err, services.ErrInvalidTransition):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrSlotOccupied):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrCommentRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrUnknownRequest):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &validation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":          err.Error(),
			"missing_fields": validation.Missing,
		})
	case errors.Is(err, store.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Record store unavailable, please retry"})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}
