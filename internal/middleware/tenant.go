package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/medroster/internal/models"
	"go.uber.org/zap"
)

type TenantLookup interface {
	GetByID(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error)
}

// TenantGuard resolves the caller's tenant and rejects requests from
// tenants that are missing or not active. Must run after AuthMiddleware.
func TenantGuard(tenants TenantLookup, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := GetTenantID(c)
		tenant, err := tenants.GetByID(c.Request.Context(), tenantID)
		if err != nil {
			logger.Error("resolve tenant", zap.String("tenant_id", tenantID.String()), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if tenant == nil || tenant.Status != models.TenantActive {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "tenant is not active"})
			return
		}
		c.Next()
	}
}
