package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"protocol-review-api/middleware"
	"protocol-review-api/services"
)

// GetReviewers lists the protocol's assignments, superseded ones included,
// with their current days overdue.
func GetReviewers(c *gin.Context) {
	assignments, err := assignmentService.ListForProtocol(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	now := time.Now()
	out := make([]gin.H, 0, len(assignments))
	for _, a := range assignments {
		overdue := 0
		if a.Active() && a.CompletedAt == nil {
			overdue = services.DaysOverdue(a.Deadline, now)
		}
		out = append(out, gin.H{"assignment": a, "days_overdue": overdue})
	}

	c.JSON(http.StatusOK, gin.H{"reviewers": out})
}

// AssignReviewer puts a reviewer into a slot and notifies them.
func AssignReviewer(c *gin.Context) {
	var req services.AssignInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := assignmentService.Assign(c.Request.Context(), middleware.CurrentActor(c), c.Param("id"), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// CompleteAssignment records the reviewer's decision directly, for review
// slots that carry no structured form.
func CompleteAssignment(c *gin.Context) {
	var req struct {
		Decision string `json:"decision" binding:"required"`
		Comments string `json:"comments"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	assignment, err := assignmentService.Complete(c.Request.Context(), middleware.CurrentActor(c),
		c.Param("id"), c.Param("aid"), req.Decision, req.Comments)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"assignment": assignment})
}

// ReassignReviewer replaces the reviewer in a slot and appends the audit
// record.
func ReassignReviewer(c *gin.Context) {
	var req services.ReassignInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := assignmentService.Reassign(c.Request.Context(), middleware.CurrentActor(c),
		c.Param("id"), c.Param("aid"), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetReassignmentHistory returns the protocol's reassignment audit trail.
func GetReassignmentHistory(c *gin.Context) {
	history, err := assignmentService.HistoryForProtocol(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": history})
}
