package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/medroster/internal/middleware"
	"github.com/lalith-99/medroster/internal/scheduling"
	"go.uber.org/zap"
)

// AppointmentHandler exposes the booking lifecycle. Every method reads the
// caller from the JWT identity; tenant and role never come from the body.
type AppointmentHandler struct {
	svc    *scheduling.Service
	logger *zap.Logger
}

func NewAppointmentHandler(svc *scheduling.Service, logger *zap.Logger) *AppointmentHandler {
	return &AppointmentHandler{svc: svc, logger: logger}
}

type bookRequest struct {
	DoctorID  string `json:"doctorId" binding:"required,uuid"`
	PatientID string `json:"patientId" binding:"required,uuid"`
	Date      string `json:"date" binding:"required"`
	TimeSlot  string `json:"timeSlot" binding:"required"`
	Mode      string `json:"mode" binding:"omitempty,oneof=in-person telehealth"`
	Notes     string `json:"notes" binding:"max=2000"`
}

// Book handles POST /v1/appointments
func (h *AppointmentHandler) Book(c *gin.Context) {
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}

	a, err := h.svc.Book(c.Request.Context(), middleware.GetIdentity(c), scheduling.BookRequest{
		DoctorID:  mustUUID(req.DoctorID),
		PatientID: mustUUID(req.PatientID),
		Date:      req.Date,
		TimeSlot:  req.TimeSlot,
		Mode:      req.Mode,
		Notes:     req.Notes,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

// List handles GET /v1/appointments?from=&to=&status=&doctor_id=&patient_id=
func (h *AppointmentHandler) List(c *gin.Context) {
	doctorID, err := queryID(c, "doctor_id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	patientID, err := queryID(c, "patient_id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	list, err := h.svc.List(c.Request.Context(), middleware.GetIdentity(c), scheduling.ListQuery{
		DoctorID:  doctorID,
		PatientID: patientID,
		From:      c.Query("from"),
		To:        c.Query("to"),
		Status:    c.Query("status"),
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// ListMine handles GET /v1/appointments/me
func (h *AppointmentHandler) ListMine(c *gin.Context) {
	list, err := h.svc.ListMine(c.Request.Context(), middleware.GetIdentity(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Get handles GET /v1/appointments/:id
func (h *AppointmentHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	a, err := h.svc.Get(c.Request.Context(), middleware.GetIdentity(c), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

type rescheduleRequest struct {
	Date     string `json:"date" binding:"required"`
	TimeSlot string `json:"timeSlot" binding:"required"`
}

// Reschedule handles PATCH /v1/appointments/:id
func (h *AppointmentHandler) Reschedule(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	var req rescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}

	a, err := h.svc.Reschedule(c.Request.Context(), middleware.GetIdentity(c), id, scheduling.RescheduleRequest{
		Date:     req.Date,
		TimeSlot: req.TimeSlot,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

type cancelRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// Cancel handles PATCH /v1/appointments/:id/cancel. The body is optional.
func (h *AppointmentHandler) Cancel(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	var req cancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, h.logger, bindError(err))
			return
		}
	}

	a, err := h.svc.Cancel(c.Request.Context(), middleware.GetIdentity(c), id, req.Reason)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// Attend handles PATCH /v1/appointments/:id/attend
func (h *AppointmentHandler) Attend(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	a, err := h.svc.MarkAttended(c.Request.Context(), middleware.GetIdentity(c), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// Delete handles DELETE /v1/appointments/:id
func (h *AppointmentHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.GetIdentity(c), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type conflictRequest struct {
	DoctorID  string `json:"doctorId" binding:"required,uuid"`
	Date      string `json:"date" binding:"required"`
	TimeSlot  string `json:"timeSlot" binding:"required"`
	ExcludeID string `json:"excludeId" binding:"omitempty,uuid"`
}

// CheckConflict handles POST /v1/appointments/check-conflict. A free slot
// is 200; a held one is 409 like a failed booking.
func (h *AppointmentHandler) CheckConflict(c *gin.Context) {
	var req conflictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}

	err := h.svc.CheckConflict(c.Request.Context(), middleware.GetIdentity(c), scheduling.ConflictRequest{
		DoctorID:  mustUUID(req.DoctorID),
		Date:      req.Date,
		TimeSlot:  req.TimeSlot,
		ExcludeID: mustUUID(req.ExcludeID),
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": true})
}

// Reconcile handles POST /v1/appointments/reconcile for the caller's tenant.
func (h *AppointmentHandler) Reconcile(c *gin.Context) {
	res, err := h.svc.ReconcileTenant(c.Request.Context(), middleware.GetIdentity(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
