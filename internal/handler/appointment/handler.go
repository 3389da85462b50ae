package appointment

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/carebook/scheduling-api/internal/middleware"
	"github.com/carebook/scheduling-api/internal/model"
	"github.com/carebook/scheduling-api/internal/service/scheduler"
	apperrors "github.com/carebook/scheduling-api/pkg/errors"
	"github.com/carebook/scheduling-api/pkg/httputil"
)

type Handler struct {
	service *scheduler.Service
}

func NewHandler(service *scheduler.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	appointments := rg.Group("/appointments")
	{
		appointments.POST("", h.Book)
		appointments.GET("/:id", h.Get)
		appointments.POST("/:id/reschedule", h.Reschedule)
		appointments.POST("/:id/cancel", h.Cancel)
		appointments.POST("/:id/confirm", h.Confirm)
		appointments.POST("/:id/payment-confirmed", h.ConfirmPayment)
		appointments.POST("/:id/start-call", h.StartCall)
		appointments.POST("/:id/complete", h.Complete)
		appointments.POST("/:id/documents", h.AttachDocument)
		appointments.GET("/:id/documents", h.ListDocuments)
	}

	rg.GET("/patients/:patientId/appointments", h.ListByPatient)
	rg.GET("/doctors/:doctorId/appointments", h.ListByDoctor)
}

func (h *Handler) Book(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)

	var req model.BookAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		c.Abort()
		return
	}

	apt, err := h.service.Book(c.Request.Context(), actor, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithCreated(c, apt)
}

func (h *Handler) Get(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)

	id, err := parseID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	apt, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, apt)
}

func (h *Handler) Reschedule(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)

	id, err := parseID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var req model.RescheduleAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		c.Abort()
		return
	}

	apt, err := h.service.Reschedule(c.Request.Context(), actor, id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithCreated(c, apt)
}

func (h *Handler) Cancel(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)

	id, err := parseID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var req model.CancelAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		c.Abort()
		return
	}

	apt, err := h.service.Cancel(c.Request.Context(), actor, id, req.Reason)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, apt)
}

func (h *Handler) Confirm(c *gin.Context) {
	h.transition(c, h.service.Confirm)
}

func (h *Handler) StartCall(c *gin.Context) {
	h.transition(c, h.service.StartCall)
}

func (h *Handler) Complete(c *gin.Context) {
	h.transition(c, h.service.Complete)
}

// ConfirmPayment is the billing collaborator's callback; the actor's
// identity does not gate it.
func (h *Handler) ConfirmPayment(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	if err := h.service.ConfirmPayment(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, gin.H{"status": model.AppointmentStatusConfirmed})
}

func (h *Handler) AttachDocument(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)

	id, err := parseID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var req model.AttachDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		c.Abort()
		return
	}

	doc, err := h.service.AttachDocument(c.Request.Context(), actor, id, req.DocumentRef)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithCreated(c, doc)
}

func (h *Handler) ListDocuments(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)

	id, err := parseID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	docs, err := h.service.ListDocuments(c.Request.Context(), actor, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, docs)
}

func (h *Handler) ListByPatient(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)

	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation("invalid patient ID"))
		return
	}

	filters, err := parseFilters(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	appointments, err := h.service.ListByPatient(c.Request.Context(), actor, patientID, filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, appointments)
}

func (h *Handler) ListByDoctor(c *gin.Context) {
	actor, _ := middleware.ActorFromContext(c)

	doctorID, err := uuid.Parse(c.Param("doctorId"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation("invalid doctor ID"))
		return
	}

	filters, err := parseFilters(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	appointments, err := h.service.ListByDoctor(c.Request.Context(), actor, doctorID, filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, appointments)
}

type transitionFunc func(ctx context.Context, actor model.Actor, id uuid.UUID) error

func (h *Handler) transition(c *gin.Context, fn transitionFunc) {
	actor, _ := middleware.ActorFromContext(c)

	id, err := parseID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	if err := fn(c.Request.Context(), actor, id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, gin.H{"id": id})
}

func parseID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperrors.NewValidation("invalid appointment ID")
	}
	return id, nil
}

func parseFilters(c *gin.Context) (*model.AppointmentFilters, error) {
	filters := &model.AppointmentFilters{}

	if status := c.Query("status"); status != "" {
		filters.Status = model.AppointmentStatus(status)
	}
	if date := c.Query("start_date"); date != "" {
		t, err := time.Parse(time.RFC3339, date)
		if err != nil {
			return nil, apperrors.NewValidation("invalid 'start_date' timestamp")
		}
		filters.StartDate = t
	}
	if date := c.Query("end_date"); date != "" {
		t, err := time.Parse(time.RFC3339, date)
		if err != nil {
			return nil, apperrors.NewValidation("invalid 'end_date' timestamp")
		}
		filters.EndDate = t
	}

	return filters, nil
}
