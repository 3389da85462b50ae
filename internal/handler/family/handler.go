package family

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/carebook/scheduling-api/internal/middleware"
	"github.com/carebook/scheduling-api/internal/model"
	"github.com/carebook/scheduling-api/internal/service/family"
	apperrors "github.com/carebook/scheduling-api/pkg/errors"
	"github.com/carebook/scheduling-api/pkg/httputil"
)

type Handler struct {
	service *family.Service
}

func NewHandler(service *family.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	members := rg.Group("/family/members")
	{
		members.POST("", h.Invite)
		members.GET("", h.ListMembers)
		members.DELETE("/:id", h.RemoveMember)
		members.POST("/:id/permissions", h.Grant)
		members.GET("/:id/permissions", h.ListPermissions)
		members.PUT("/:id/permissions/:type", h.Update)
		members.DELETE("/:id/permissions/:type", h.Revoke)
	}

	rg.POST("/family/invitations/:id/accept", h.AcceptInvite)
}

func (h *Handler) Invite(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)

	patientID, err := resolvePatientID(c, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var req model.InviteFamilyMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		c.Abort()
		return
	}

	member, err := h.service.Invite(c.Request.Context(), actor, patientID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithCreated(c, member)
}

func (h *Handler) AcceptInvite(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)

	memberID, err := parseMemberID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	if err := h.service.AcceptInvite(c.Request.Context(), actor, memberID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, gin.H{"id": memberID})
}

func (h *Handler) ListMembers(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)

	patientID, err := resolvePatientID(c, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	members, err := h.service.ListMembers(c.Request.Context(), actor, patientID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, members)
}

func (h *Handler) RemoveMember(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)

	patientID, memberID, err := memberScope(c, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	if err := h.service.RemoveMember(c.Request.Context(), actor, patientID, memberID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, gin.H{"id": memberID})
}

func (h *Handler) Grant(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)

	patientID, memberID, err := memberScope(c, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var req model.GrantPermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		c.Abort()
		return
	}

	perm, err := h.service.Grant(c.Request.Context(), actor, patientID, memberID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithCreated(c, perm)
}

func (h *Handler) Update(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)

	patientID, memberID, err := memberScope(c, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	permType, err := parsePermissionType(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var req model.UpdatePermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		c.Abort()
		return
	}

	perm, err := h.service.Update(c.Request.Context(), actor, patientID, memberID, permType, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, perm)
}

func (h *Handler) Revoke(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)

	patientID, memberID, err := memberScope(c, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	permType, err := parsePermissionType(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	if err := h.service.Revoke(c.Request.Context(), actor, patientID, memberID, permType); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, gin.H{"id": memberID, "permission_type": permType})
}

func (h *Handler) ListPermissions(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)

	patientID, memberID, err := memberScope(c, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	perms, err := h.service.ListPermissions(c.Request.Context(), actor, patientID, memberID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, perms)
}

func memberScope(c *gin.Context, actor model.Actor) (patientID, memberID uuid.UUID, err error) {
	patientID, err = resolvePatientID(c, actor)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	memberID, err = parseMemberID(c, "id")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return patientID, memberID, nil
}

func parseMemberID(c *gin.Context, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		return uuid.Nil, apperrors.NewValidation("invalid family member ID")
	}
	return id, nil
}

func parsePermissionType(c *gin.Context) (model.PermissionType, error) {
	permType := model.PermissionType(c.Param("type"))
	if !permType.Valid() {
		return "", apperrors.NewValidation("unknown permission type")
	}
	return permType, nil
}

// resolvePatientID lets a delegate manage another patient's family roster by
// passing patient_id; absent that, the actor's own patient record is used.
func resolvePatientID(c *gin.Context, actor model.Actor) (uuid.UUID, error) {
	if raw := c.Query("patient_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, apperrors.NewValidation("invalid patient ID")
		}
		return id, nil
	}
	if actor.PatientID == nil {
		return uuid.Nil, apperrors.NewValidation("patient_id is required")
	}
	return *actor.PatientID, nil
}
