package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/medroster/internal/middleware"
	"github.com/lalith-99/medroster/internal/scheduling"
	"go.uber.org/zap"
)

// DoctorHandler serves a doctor's availability and linked patients.
type DoctorHandler struct {
	svc    *scheduling.Service
	logger *zap.Logger
}

func NewDoctorHandler(svc *scheduling.Service, logger *zap.Logger) *DoctorHandler {
	return &DoctorHandler{svc: svc, logger: logger}
}

type availabilityResponse struct {
	DoctorID string   `json:"doctor_id"`
	Date     string   `json:"date"`
	Slots    []string `json:"slots"`
}

// Availability handles GET /v1/doctors/:id/availability?date=YYYY-MM-DD
func (h *DoctorHandler) Availability(c *gin.Context) {
	doctorID, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	date := c.Query("date")
	open, err := h.svc.Availability(c.Request.Context(), middleware.GetIdentity(c), doctorID, date)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, availabilityResponse{DoctorID: doctorID.String(), Date: date, Slots: open})
}

// NextAvailable handles GET /v1/doctors/:id/next-available?after=YYYY-MM-DD.
// "after" defaults to today.
func (h *DoctorHandler) NextAvailable(c *gin.Context) {
	doctorID, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	next, err := h.svc.NextAvailableDate(c.Request.Context(), middleware.GetIdentity(c), doctorID, c.Query("after"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, next)
}

// LinkedPatients handles GET /v1/doctors/:id/patients
func (h *DoctorHandler) LinkedPatients(c *gin.Context) {
	doctorID, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	patients, err := h.svc.LinkedPatients(c.Request.Context(), middleware.GetIdentity(c), doctorID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, patients)
}

type linkRequest struct {
	PatientIDs []string `json:"patientIds" binding:"required,min=1,dive,uuid"`
}

// Link handles POST /v1/doctors/:id/patients. Linking an already linked
// patient is a no-op, so clients may retry.
func (h *DoctorHandler) Link(c *gin.Context) {
	doctorID, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	var req linkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}

	ids := make([]uuid.UUID, 0, len(req.PatientIDs))
	for _, raw := range req.PatientIDs {
		ids = append(ids, mustUUID(raw))
	}
	d, err := h.svc.Link(c.Request.Context(), middleware.GetIdentity(c), doctorID, ids)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// Unlink handles DELETE /v1/doctors/:id/patients/:patientId
func (h *DoctorHandler) Unlink(c *gin.Context) {
	doctorID, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	patientID, err := pathID(c, "patientId")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	d, err := h.svc.Unlink(c.Request.Context(), middleware.GetIdentity(c), doctorID, patientID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, d)
}
