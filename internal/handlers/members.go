package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/okrboard/okrboard-backend/internal/requestdata"
	"github.com/okrboard/okrboard-backend/internal/services"
	"github.com/okrboard/okrboard-backend/internal/types"
)

type MemberHandler struct {
	membershipService services.MembershipService
	authzService      services.AuthzService
}

func NewMemberHandler(membershipService services.MembershipService, authzService services.AuthzService) *MemberHandler {
	return &MemberHandler{membershipService: membershipService, authzService: authzService}
}

func (mh *MemberHandler) List(c *gin.Context) {
	rd, objectiveID, ok := objectiveScope(c)
	if !ok {
		return
	}
	if err := mh.authzService.RequireView(c.Request.Context(), rd.TenantID, objectiveID, rd.UserObjectID); err != nil {
		RespondServiceError(c, err)
		return
	}
	members, err := mh.membershipService.List(c.Request.Context(), rd.TenantID, objectiveID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"members": members})
}

type addMemberRequest struct {
	Email string `json:"email" binding:"required"`
	Role  string `json:"role" binding:"required"`
}

func (mh *MemberHandler) Add(c *gin.Context) {
	rd, objectiveID, ok := objectiveScope(c)
	if !ok {
		return
	}
	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if !mh.requireManage(c, rd, objectiveID) {
		return
	}
	member, err := mh.membershipService.AddByEmail(c.Request.Context(), rd.TenantID, objectiveID, req.Email, types.Role(req.Role))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, gin.H{"member": member})
}

type updateRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

func (mh *MemberHandler) UpdateRole(c *gin.Context) {
	rd, objectiveID, ok := objectiveScope(c)
	if !ok {
		return
	}
	userObjectID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_user_id", err)
		return
	}
	var req updateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if !mh.requireManage(c, rd, objectiveID) {
		return
	}
	if err := mh.membershipService.UpdateRole(c.Request.Context(), rd.TenantID, objectiveID, userObjectID, types.Role(req.Role)); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"role": req.Role})
}

func (mh *MemberHandler) Remove(c *gin.Context) {
	rd, objectiveID, ok := objectiveScope(c)
	if !ok {
		return
	}
	userObjectID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_user_id", err)
		return
	}
	if !mh.requireManage(c, rd, objectiveID) {
		return
	}
	if err := mh.membershipService.Remove(c.Request.Context(), rd.TenantID, objectiveID, userObjectID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"removed": true})
}

func (mh *MemberHandler) requireManage(c *gin.Context, rd *requestdata.RequestData, objectiveID uuid.UUID) bool {
	access, err := mh.authzService.Resolve(c.Request.Context(), rd.TenantID, objectiveID, rd.UserObjectID)
	if err != nil {
		RespondServiceError(c, err)
		return false
	}
	if !access.CanManageMembers {
		RespondError(c, http.StatusForbidden, "forbidden", nil)
		return false
	}
	return true
}
