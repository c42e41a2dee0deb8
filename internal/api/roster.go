package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/medroster/internal/apperr"
	"github.com/lalith-99/medroster/internal/middleware"
	"github.com/lalith-99/medroster/internal/scheduling"
	"go.uber.org/zap"
)

type RosterHandler struct {
	svc    *scheduling.Service
	logger *zap.Logger
}

func NewRosterHandler(svc *scheduling.Service, logger *zap.Logger) *RosterHandler {
	return &RosterHandler{svc: svc, logger: logger}
}

type rosterRequest struct {
	StaffID   string `json:"staffId" binding:"required,uuid"`
	Date      string `json:"date" binding:"required"`
	StartTime string `json:"startTime" binding:"required"`
	EndTime   string `json:"endTime" binding:"required"`
	ShiftType string `json:"shiftType" binding:"max=50"`
	Location  string `json:"location" binding:"max=200"`
	Notes     string `json:"notes" binding:"max=2000"`
}

func (r rosterRequest) toService() scheduling.RosterRequest {
	return scheduling.RosterRequest{
		StaffID:   mustUUID(r.StaffID),
		Date:      r.Date,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		ShiftType: r.ShiftType,
		Location:  r.Location,
		Notes:     r.Notes,
	}
}

type bulkRosterRequest struct {
	rosterRequest
	RepeatDays int `json:"repeatDays" binding:"omitempty,min=1,max=92"`
}

// Create handles POST /v1/rosters
func (h *RosterHandler) Create(c *gin.Context) {
	var req rosterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}
	e, err := h.svc.CreateRoster(c.Request.Context(), middleware.GetIdentity(c), req.toService())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

// Bulk handles POST /v1/rosters/bulk: the same shift on repeatDays
// consecutive days (14 when omitted).
func (h *RosterHandler) Bulk(c *gin.Context) {
	var req bulkRosterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}
	entries, err := h.svc.BulkCreateRosters(c.Request.Context(), middleware.GetIdentity(c), scheduling.BulkRosterRequest{
		RosterRequest: req.toService(),
		RepeatDays:    req.RepeatDays,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, entries)
}

// List handles GET /v1/rosters?staff_id=&from=&to=
func (h *RosterHandler) List(c *gin.Context) {
	staffID, err := queryID(c, "staff_id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if c.Query("staff_id") == "" {
		writeError(c, h.logger, apperr.Validation("staff_id", "is required"))
		return
	}

	entries, err := h.svc.ListRosters(c.Request.Context(), middleware.GetIdentity(c), staffID, c.Query("from"), c.Query("to"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
