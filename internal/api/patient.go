package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/medroster/internal/middleware"
	"github.com/lalith-99/medroster/internal/scheduling"
	"go.uber.org/zap"
)

type PatientHandler struct {
	svc    *scheduling.Service
	logger *zap.Logger
}

func NewPatientHandler(svc *scheduling.Service, logger *zap.Logger) *PatientHandler {
	return &PatientHandler{svc: svc, logger: logger}
}

type reassignRequest struct {
	PatientID    string `json:"patientId" binding:"required,uuid"`
	FromDoctorID string `json:"fromDoctorId" binding:"required,uuid"`
	ToDoctorID   string `json:"toDoctorId" binding:"required,uuid"`
}

// Reassign handles POST /v1/patients/reassign
func (h *PatientHandler) Reassign(c *gin.Context) {
	var req reassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}

	res, err := h.svc.Reassign(c.Request.Context(), middleware.GetIdentity(c), scheduling.ReassignRequest{
		PatientID:    mustUUID(req.PatientID),
		FromDoctorID: mustUUID(req.FromDoctorID),
		ToDoctorID:   mustUUID(req.ToDoctorID),
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Unlinked handles GET /v1/patients/unlinked
func (h *PatientHandler) Unlinked(c *gin.Context) {
	patients, err := h.svc.UnlinkedPatients(c.Request.Context(), middleware.GetIdentity(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, patients)
}
