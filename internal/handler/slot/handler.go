package slot

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/carebook/scheduling-api/internal/middleware"
	"github.com/carebook/scheduling-api/internal/model"
	slotService "github.com/carebook/scheduling-api/internal/service/slot"
	apperrors "github.com/carebook/scheduling-api/pkg/errors"
	"github.com/carebook/scheduling-api/pkg/httputil"
)

type Handler struct {
	service *slotService.Service
	auth    *middleware.AuthMiddleware
}

func NewHandler(service *slotService.Service, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{service: service, auth: auth}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	doctor := rg.Group("/slots", h.auth.RequireDoctor())
	{
		doctor.POST("", h.CreateSlot)
		doctor.GET("", h.ListOwnSlots)
		doctor.PUT("/:id", h.UpdateSlot)
		doctor.POST("/:id/enable", h.EnableSlot)
		doctor.POST("/:id/disable", h.DisableSlot)
	}

	// Patient-facing browsing.
	rg.GET("/doctors/:doctorId/slots", h.ListAvailableSlots)
}

func (h *Handler) CreateSlot(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)

	var req model.CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		c.Abort()
		return
	}

	slot, err := h.service.CreateSlot(c.Request.Context(), *actor.DoctorID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithCreated(c, slot)
}

func (h *Handler) UpdateSlot(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)

	slotID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation("invalid slot ID"))
		return
	}

	var req model.UpdateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		c.Abort()
		return
	}

	slot, err := h.service.UpdateSlot(c.Request.Context(), *actor.DoctorID, slotID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, slot)
}

func (h *Handler) EnableSlot(c *gin.Context) {
	h.setAvailability(c, true)
}

func (h *Handler) DisableSlot(c *gin.Context) {
	h.setAvailability(c, false)
}

func (h *Handler) setAvailability(c *gin.Context, available bool) {
	actor, _ := middleware.ActorFromContext(c)

	slotID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation("invalid slot ID"))
		return
	}

	if available {
		err = h.service.Enable(c.Request.Context(), *actor.DoctorID, slotID)
	} else {
		err = h.service.Disable(c.Request.Context(), *actor.DoctorID, slotID)
	}
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, gin.H{"is_available": available})
}

func (h *Handler) ListOwnSlots(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)

	window, err := parseWindow(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	slots, err := h.service.ListDoctorSlots(c.Request.Context(), *actor.DoctorID, window)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, slots)
}

func (h *Handler) ListAvailableSlots(c *gin.Context) {
	doctorID, err := uuid.Parse(c.Param("doctorId"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation("invalid doctor ID"))
		return
	}

	window, err := parseWindow(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	slots, err := h.service.FindAvailable(c.Request.Context(), doctorID, window)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, slots)
}

func parseWindow(c *gin.Context) (model.DateWindow, error) {
	window := model.DateWindow{
		From: time.Now(),
		To:   time.Now().AddDate(0, 0, 30),
	}

	if from := c.Query("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return model.DateWindow{}, apperrors.NewValidation("invalid 'from' timestamp")
		}
		window.From = t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return model.DateWindow{}, apperrors.NewValidation("invalid 'to' timestamp")
		}
		window.To = t
	}

	return window, nil
}
