// Package api is the HTTP surface: gin handlers over the scheduling
// service, mounted under /v1.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/lalith-99/medroster/internal/auth"
	"github.com/lalith-99/medroster/internal/middleware"
	"github.com/lalith-99/medroster/internal/notify"
	"github.com/lalith-99/medroster/internal/scheduling"
	"go.uber.org/zap"
)

type RouterDeps struct {
	Service   *scheduling.Service
	Tenants   middleware.TenantLookup
	Hub       *notify.Hub
	JWTSecret string
	Logger    *zap.Logger

	// Limiter is optional; nil disables per-tenant rate limiting.
	Limiter *middleware.TenantRateLimiter

	// Checks are reported by /v1/health.
	Checks map[string]HealthChecker
}

// NewRouter wires every route. Role checks happen twice on admin routes:
// here, so a wrong role never reaches a handler, and again in the service,
// which does not trust its callers.
func NewRouter(d RouterDeps) *gin.Engine {
	useJSONFieldNames()

	r := gin.New()
	r.Use(middleware.RequestLogger(d.Logger), gin.Recovery())

	r.GET("/v1/health", Health(d.Logger, d.Checks))

	v1 := r.Group("/v1")
	v1.Use(middleware.AuthMiddleware(d.JWTSecret), middleware.TenantGuard(d.Tenants, d.Logger))
	if d.Limiter != nil {
		v1.Use(d.Limiter.Middleware())
	}
	adminOnly := middleware.RequireRole(auth.RoleAdmin)

	appointments := NewAppointmentHandler(d.Service, d.Logger)
	a := v1.Group("/appointments")
	a.POST("", appointments.Book)
	a.GET("", appointments.List)
	a.GET("/me", appointments.ListMine)
	a.POST("/check-conflict", appointments.CheckConflict)
	a.POST("/reconcile", adminOnly, appointments.Reconcile)
	a.GET("/:id", appointments.Get)
	a.PATCH("/:id", appointments.Reschedule)
	a.PATCH("/:id/cancel", appointments.Cancel)
	a.PATCH("/:id/attend", appointments.Attend)
	a.DELETE("/:id", adminOnly, appointments.Delete)

	doctors := NewDoctorHandler(d.Service, d.Logger)
	doc := v1.Group("/doctors/:id")
	doc.GET("/availability", doctors.Availability)
	doc.GET("/next-available", doctors.NextAvailable)
	doc.GET("/patients", doctors.LinkedPatients)
	doc.POST("/patients", adminOnly, doctors.Link)
	doc.DELETE("/patients/:patientId", adminOnly, doctors.Unlink)

	patients := NewPatientHandler(d.Service, d.Logger)
	v1.POST("/patients/reassign", adminOnly, patients.Reassign)
	v1.GET("/patients/unlinked", patients.Unlinked)

	rosters := NewRosterHandler(d.Service, d.Logger)
	v1.POST("/rosters", adminOnly, rosters.Create)
	v1.POST("/rosters/bulk", adminOnly, rosters.Bulk)
	v1.GET("/rosters", rosters.List)

	if d.Hub != nil {
		v1.GET("/ws", NewWSHandler(d.Hub, d.Logger).Subscribe)
	}
	return r
}
