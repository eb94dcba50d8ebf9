package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/okrboard/okrboard-backend/internal/services"
)

type AlignmentHandler struct {
	alignmentService services.AlignmentService
	authzService     services.AuthzService
}

func NewAlignmentHandler(alignmentService services.AlignmentService, authzService services.AuthzService) *AlignmentHandler {
	return &AlignmentHandler{alignmentService: alignmentService, authzService: authzService}
}

type alignRequest struct {
	ParentObjectiveID string `json:"parentObjectiveId" binding:"required"`
}

// Align links the :id objective under a parent objective.
func (ah *AlignmentHandler) Align(c *gin.Context) {
	rd, childID, ok := objectiveScope(c)
	if !ok {
		return
	}
	var req alignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	parentID, err := uuid.Parse(req.ParentObjectiveID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_parent_id", err)
		return
	}
	if _, err := ah.authzService.RequireEdit(c.Request.Context(), rd.TenantID, childID, rd.UserObjectID); err != nil {
		RespondServiceError(c, err)
		return
	}
	created, err := ah.alignmentService.Align(c.Request.Context(), rd.TenantID, parentID, childID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"created": created})
}

func (ah *AlignmentHandler) Unalign(c *gin.Context) {
	rd, childID, ok := objectiveScope(c)
	if !ok {
		return
	}
	parentID, err := uuid.Parse(c.Param("parentId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_parent_id", err)
		return
	}
	if _, err := ah.authzService.RequireEdit(c.Request.Context(), rd.TenantID, childID, rd.UserObjectID); err != nil {
		RespondServiceError(c, err)
		return
	}
	if err := ah.alignmentService.Unalign(c.Request.Context(), rd.TenantID, parentID, childID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"removed": true})
}

// ListAlignedTo returns the parents the :id objective contributes to.
func (ah *AlignmentHandler) ListAlignedTo(c *gin.Context) {
	rd, objectiveID, ok := objectiveScope(c)
	if !ok {
		return
	}
	if err := ah.authzService.RequireView(c.Request.Context(), rd.TenantID, objectiveID, rd.UserObjectID); err != nil {
		RespondServiceError(c, err)
		return
	}
	parents, err := ah.alignmentService.ListAlignedTo(c.Request.Context(), rd.TenantID, objectiveID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"alignedTo": parents})
}

// ListAlignedFrom returns the children aligned under the :id objective.
func (ah *AlignmentHandler) ListAlignedFrom(c *gin.Context) {
	rd, objectiveID, ok := objectiveScope(c)
	if !ok {
		return
	}
	if err := ah.authzService.RequireView(c.Request.Context(), rd.TenantID, objectiveID, rd.UserObjectID); err != nil {
		RespondServiceError(c, err)
		return
	}
	children, err := ah.alignmentService.ListAlignedFrom(c.Request.Context(), rd.TenantID, objectiveID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"alignedFrom": children})
}
