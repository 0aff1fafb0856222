package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"protocol-review-api/middleware"
)

// GetForm returns one assessment form; never-written forms read as
// not-started.
func GetForm(c *gin.Context) {
	form, err := assessmentService.Get(c.Request.Context(), c.Param("id"), c.Param("aid"), c.Param("type"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"form": form})
}

// GetFormTemplates lists the registered review templates.
func GetFormTemplates(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"templates": assessmentService.Templates()})
}

// AutosaveForm merges partial form data. The caller debounces; the engine
// only rules on whether a save is legal in the form's current state.
func AutosaveForm(c *gin.Context) {
	var req struct {
		FormData map[string]any `json:"form_data" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	form, err := assessmentService.Autosave(c.Request.Context(), middleware.CurrentActor(c),
		c.Param("id"), c.Param("aid"), c.Param("type"), req.FormData)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"form": form})
}

// SubmitForm validates and submits the assessment, completing the linked
// assignment.
func SubmitForm(c *gin.Context) {
	var req struct {
		FormData map[string]any `json:"form_data" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	form, err := assessmentService.Submit(c.Request.Context(), middleware.CurrentActor(c),
		c.Param("id"), c.Param("aid"), c.Param("type"), req.FormData)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"form": form})
}

// ApproveForm freezes a submitted assessment.
func ApproveForm(c *gin.Context) {
	form, err := assessmentService.Approve(c.Request.Context(), middleware.CurrentActor(c),
		c.Param("id"), c.Param("aid"), c.Param("type"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"form": form})
}

// ReturnForm sends a submitted assessment back to its reviewer.
func ReturnForm(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	form, err := assessmentService.Return(c.Request.Context(), middleware.CurrentActor(c),
		c.Param("id"), c.Param("aid"), c.Param("type"), req.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"form": form})
}
