package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/okrboard/okrboard-backend/internal/apierr"
	"github.com/okrboard/okrboard-backend/internal/requestdata"
	"github.com/okrboard/okrboard-backend/internal/services"
)

type KeyResultHandler struct {
	keyResultService services.KeyResultService
	checkinService   services.CheckinService
	authzService     services.AuthzService
}

func NewKeyResultHandler(
	keyResultService services.KeyResultService,
	checkinService services.CheckinService,
	authzService services.AuthzService,
) *KeyResultHandler {
	return &KeyResultHandler{
		keyResultService: keyResultService,
		checkinService:   checkinService,
		authzService:     authzService,
	}
}

type createKeyResultRequest struct {
	Title       string   `json:"title" binding:"required"`
	MetricName  *string  `json:"metricName"`
	TargetValue *float64 `json:"targetValue"`
	Unit        *string  `json:"unit"`
	AllowIssues bool     `json:"allowIssues"`
}

func (kh *KeyResultHandler) Create(c *gin.Context) {
	rd, objectiveID, ok := objectiveScope(c)
	if !ok {
		return
	}
	var req createKeyResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if _, err := kh.authzService.RequireEdit(c.Request.Context(), rd.TenantID, objectiveID, rd.UserObjectID); err != nil {
		RespondServiceError(c, err)
		return
	}
	kr, review, err := kh.keyResultService.Create(c.Request.Context(), rd.TenantID, objectiveID, services.CreateKeyResultInput{
		Title:       req.Title,
		MetricName:  req.MetricName,
		TargetValue: req.TargetValue,
		Unit:        req.Unit,
		AllowIssues: req.AllowIssues,
	})
	if err != nil {
		ae := apierr.From(err)
		if ae.Code == "kr_validation_failed" {
			c.JSON(ae.Status, gin.H{
				"error":      APIError{Message: "draft has blocking issues", Code: ae.Code},
				"validation": review,
			})
			return
		}
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, gin.H{"keyResult": kr, "validation": review})
}

func (kh *KeyResultHandler) List(c *gin.Context) {
	rd, objectiveID, ok := objectiveScope(c)
	if !ok {
		return
	}
	if err := kh.authzService.RequireView(c.Request.Context(), rd.TenantID, objectiveID, rd.UserObjectID); err != nil {
		RespondServiceError(c, err)
		return
	}
	views, err := kh.keyResultService.List(c.Request.Context(), rd.TenantID, objectiveID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"keyResults": views})
}

func (kh *KeyResultHandler) DeleteInfo(c *gin.Context) {
	rd, krID, view, ok := kh.krScope(c)
	if !ok {
		return
	}
	access, err := kh.authzService.Resolve(c.Request.Context(), rd.TenantID, view.KeyResult.ObjectiveID, rd.UserObjectID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	if !access.CanDelete {
		RespondError(c, http.StatusForbidden, "forbidden", nil)
		return
	}
	info, err := kh.keyResultService.DeleteInfo(c.Request.Context(), rd.TenantID, krID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, info)
}

func (kh *KeyResultHandler) Delete(c *gin.Context) {
	rd, krID, view, ok := kh.krScope(c)
	if !ok {
		return
	}
	access, err := kh.authzService.Resolve(c.Request.Context(), rd.TenantID, view.KeyResult.ObjectiveID, rd.UserObjectID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	if !access.CanDelete {
		RespondError(c, http.StatusForbidden, "forbidden", nil)
		return
	}
	if err := kh.keyResultService.Delete(c.Request.Context(), rd.TenantID, krID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}

type createCheckinRequest struct {
	Value   *float64 `json:"value" binding:"required"`
	Comment *string  `json:"comment"`
}

func (kh *KeyResultHandler) CreateCheckin(c *gin.Context) {
	rd, krID, view, ok := kh.krScope(c)
	if !ok {
		return
	}
	var req createCheckinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if _, err := kh.authzService.RequireEdit(c.Request.Context(), rd.TenantID, view.KeyResult.ObjectiveID, rd.UserObjectID); err != nil {
		RespondServiceError(c, err)
		return
	}
	checkin, err := kh.checkinService.Create(c.Request.Context(), rd.TenantID, krID, rd.UserObjectID, services.CreateCheckinInput{
		Value:   *req.Value,
		Comment: req.Comment,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, gin.H{"checkin": checkin})
}

func (kh *KeyResultHandler) ListCheckins(c *gin.Context) {
	rd, krID, view, ok := kh.krScope(c)
	if !ok {
		return
	}
	if err := kh.authzService.RequireView(c.Request.Context(), rd.TenantID, view.KeyResult.ObjectiveID, rd.UserObjectID); err != nil {
		RespondServiceError(c, err)
		return
	}
	checkins, err := kh.checkinService.List(c.Request.Context(), rd.TenantID, krID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"checkins": checkins})
}

func (kh *KeyResultHandler) krScope(c *gin.Context) (*requestdata.RequestData, uuid.UUID, *services.KeyResultView, bool) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return nil, uuid.Nil, nil, false
	}
	krID, err := uuid.Parse(c.Param("krId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_kr_id", err)
		return nil, uuid.Nil, nil, false
	}
	view, err := kh.keyResultService.Get(c.Request.Context(), rd.TenantID, krID)
	if err != nil {
		RespondServiceError(c, err)
		return nil, uuid.Nil, nil, false
	}
	return rd, krID, view, true
}
