package middleware

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/damoang/angple-qualitygate/internal/common"
)

var tenantIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// RequireTenant resolves the tenant of the request. A tenant bound in the
// token always wins and a header that contradicts it is refused. Only
// platform operators (level >= platformLevel) carry no tenant and may name
// one in X-Tenant-ID.
func RequireTenant(platformLevel int) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("X-Tenant-ID"))
		claimed := c.GetString(ctxTenantID)

		switch {
		case claimed != "":
			if header != "" && header != claimed {
				common.ErrorResponse(c, http.StatusForbidden, "Tenant mismatch", nil)
				c.Abort()
				return
			}
		case header != "":
			if GetUserLevel(c) < platformLevel {
				common.ErrorResponse(c, http.StatusForbidden, "Tenant-scoped token required", nil)
				c.Abort()
				return
			}
			if !tenantIDPattern.MatchString(header) {
				common.ErrorResponse(c, http.StatusBadRequest, "Invalid tenant id", nil)
				c.Abort()
				return
			}
			c.Set(ctxTenantID, header)
		default:
			common.ErrorResponse(c, http.StatusBadRequest, "Tenant is required", nil)
			c.Abort()
			return
		}

		c.Next()
	}
}

// GetTenantID extracts the resolved tenant from context
func GetTenantID(c *gin.Context) string {
	return c.GetString(ctxTenantID)
}
