package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"protocol-review-api/middleware"
	"protocol-review-api/services"
)

// CreateProtocol registers a new submission for the acting proponent.
func CreateProtocol(c *gin.Context) {
	var req services.CreateProtocolInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	protocol, err := protocolService.Create(c.Request.Context(), middleware.CurrentActor(c), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"protocol": protocol})
}

// GetProtocols lists protocols visible to the actor, optionally filtered by
// ?status=pending,accepted.
func GetProtocols(c *gin.Context) {
	var statuses []string
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				statuses = append(statuses, s)
			}
		}
	}

	protocols, err := protocolService.List(c.Request.Context(), middleware.CurrentActor(c), statuses)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"protocols": protocols})
}

// GetProtocol returns one protocol with its review-gating flag.
func GetProtocol(c *gin.Context) {
	ctx := c.Request.Context()
	protocolID := c.Param("id")

	protocol, err := protocolService.GetByID(ctx, protocolID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	hasReviewers, err := protocolService.HasActiveReviewers(ctx, protocolID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"protocol":             protocol,
		"has_active_reviewers": hasReviewers,
	})
}

// AdvanceProtocolStatus moves a protocol along one permitted edge.
func AdvanceProtocolStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	protocol, err := protocolService.AdvanceStatus(c.Request.Context(), middleware.CurrentActor(c), c.Param("id"), req.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"protocol": protocol})
}

// RecordDecision stores the chairperson's formal ruling.
func RecordDecision(c *gin.Context) {
	var req services.DecisionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	decision, err := protocolService.RecordDecision(c.Request.Context(), middleware.CurrentActor(c), c.Param("id"), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"decision": decision})
}

// GetDecisions lists every ruling recorded on the protocol, newest first.
func GetDecisions(c *gin.Context) {
	decisions, err := protocolService.Decisions(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"decisions": decisions})
}
