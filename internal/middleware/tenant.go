package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/okrboard/okrboard-backend/internal/logger"
	"github.com/okrboard/okrboard-backend/internal/repos"
	"github.com/okrboard/okrboard-backend/internal/requestdata"
)

type TenantMiddleware struct {
	log     *logger.Logger
	tenants repos.TenantRepo
}

func NewTenantMiddleware(log *logger.Logger, tenants repos.TenantRepo) *TenantMiddleware {
	middlewareLogger := log.With("Middleware", "TenantMiddleware")
	return &TenantMiddleware{log: middlewareLogger, tenants: tenants}
}

// EnsureTenant provisions the token's tenant on first sight and rejects
// requests whose x-tenant-id header disagrees with the token.
func (tm *TenantMiddleware) EnsureTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		rd := requestdata.GetRequestData(c.Request.Context())
		if rd == nil || rd.TenantID == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing tenant identity"})
			return
		}
		if header := c.GetHeader("x-tenant-id"); header != "" {
			headerID, err := uuid.Parse(header)
			if err != nil || headerID != rd.TenantID {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "tenant mismatch"})
				return
			}
		}
		if err := tm.tenants.Ensure(c.Request.Context(), nil, rd.TenantID); err != nil {
			tm.log.Error("tenant provisioning failed", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.Next()
	}
}
