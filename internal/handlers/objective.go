package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/okrboard/okrboard-backend/internal/requestdata"
	"github.com/okrboard/okrboard-backend/internal/services"
)

type ObjectiveHandler struct {
	objectiveService services.ObjectiveService
	authzService     services.AuthzService
}

func NewObjectiveHandler(objectiveService services.ObjectiveService, authzService services.AuthzService) *ObjectiveHandler {
	return &ObjectiveHandler{objectiveService: objectiveService, authzService: authzService}
}

type createObjectiveRequest struct {
	Objective string `json:"objective" binding:"required"`
	FromDate  string `json:"fromDate" binding:"required"`
	ToDate    string `json:"toDate" binding:"required"`
	Status    string `json:"status"`
}

func (oh *ObjectiveHandler) Create(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req createObjectiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	fromDate, err := time.Parse("2006-01-02", req.FromDate)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_from_date", err)
		return
	}
	toDate, err := time.Parse("2006-01-02", req.ToDate)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_to_date", err)
		return
	}
	objective, err := oh.objectiveService.Create(c.Request.Context(), rd.TenantID, rd.UserObjectID, services.CreateObjectiveInput{
		Objective: req.Objective,
		FromDate:  fromDate,
		ToDate:    toDate,
		Status:    req.Status,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, gin.H{"objective": objective})
}

func (oh *ObjectiveHandler) List(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	summaries, err := oh.objectiveService.List(c.Request.Context(), rd.TenantID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"objectives": summaries})
}

func (oh *ObjectiveHandler) Get(c *gin.Context) {
	rd, objectiveID, ok := objectiveScope(c)
	if !ok {
		return
	}
	if err := oh.authzService.RequireView(c.Request.Context(), rd.TenantID, objectiveID, rd.UserObjectID); err != nil {
		RespondServiceError(c, err)
		return
	}
	detail, err := oh.objectiveService.Get(c.Request.Context(), rd.TenantID, objectiveID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, detail)
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (oh *ObjectiveHandler) UpdateStatus(c *gin.Context) {
	rd, objectiveID, ok := objectiveScope(c)
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if _, err := oh.authzService.RequireEdit(c.Request.Context(), rd.TenantID, objectiveID, rd.UserObjectID); err != nil {
		RespondServiceError(c, err)
		return
	}
	if err := oh.objectiveService.UpdateStatus(c.Request.Context(), rd.TenantID, objectiveID, req.Status); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"status": req.Status})
}

func (oh *ObjectiveHandler) DeleteInfo(c *gin.Context) {
	rd, objectiveID, ok := objectiveScope(c)
	if !ok {
		return
	}
	access, err := oh.authzService.Resolve(c.Request.Context(), rd.TenantID, objectiveID, rd.UserObjectID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	if !access.CanDelete {
		RespondError(c, http.StatusForbidden, "forbidden", nil)
		return
	}
	info, err := oh.objectiveService.DeleteInfo(c.Request.Context(), rd.TenantID, objectiveID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, info)
}

func (oh *ObjectiveHandler) Delete(c *gin.Context) {
	rd, objectiveID, ok := objectiveScope(c)
	if !ok {
		return
	}
	access, err := oh.authzService.Resolve(c.Request.Context(), rd.TenantID, objectiveID, rd.UserObjectID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	if !access.CanDelete {
		RespondError(c, http.StatusForbidden, "forbidden", nil)
		return
	}
	if err := oh.objectiveService.Delete(c.Request.Context(), rd.TenantID, objectiveID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}

// objectiveScope pulls the request identity and the :id path param. On
// failure the response has already been written.
func objectiveScope(c *gin.Context) (*requestdata.RequestData, uuid.UUID, bool) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return nil, uuid.Nil, false
	}
	objectiveID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_objective_id", err)
		return nil, uuid.Nil, false
	}
	return rd, objectiveID, true
}
