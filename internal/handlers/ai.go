package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/okrboard/okrboard-backend/internal/services"
)

type AIHandler struct {
	client            services.AIClient
	validationService services.OkrValidationService
}

func NewAIHandler(client services.AIClient, validationService services.OkrValidationService) *AIHandler {
	return &AIHandler{client: client, validationService: validationService}
}

// Status reports whether the generative backend is configured and reachable.
func (ah *AIHandler) Status(c *gin.Context) {
	enabled := ah.client != nil && ah.client.Enabled()
	reachable := false
	if enabled {
		reachable = ah.client.Ping(c.Request.Context()) == nil
	}
	RespondOK(c, gin.H{"enabled": enabled, "reachable": reachable})
}

func (ah *AIHandler) Draft(c *gin.Context) {
	var input services.DraftOkrInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	result, err := ah.validationService.DraftOkr(c.Request.Context(), input)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, result)
}

func (ah *AIHandler) ValidateObjective(c *gin.Context) {
	var draft services.ObjectiveDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	result, err := ah.validationService.ValidateObjective(c.Request.Context(), draft)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, result)
}

func (ah *AIHandler) ValidateKeyResult(c *gin.Context) {
	var draft services.KeyResultDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	result, err := ah.validationService.ValidateKeyResult(c.Request.Context(), draft)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, result)
}
