package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"protocol-review-api/middleware"
)

// GetNotifications lists the in-app notifications recorded for the
// authenticated user, newest first.
func GetNotifications(c *gin.Context) {
	actor := middleware.CurrentActor(c)

	list, err := notifications.ListForUser(c.Request.Context(), actor.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": list})
}
