package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/damoang/angple-qualitygate/internal/common"
)

// RequireReviewer checks that the authenticated user may resolve review entries
func RequireReviewer(minLevel int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUserLevel(c) < minLevel {
			common.ErrorResponse(c, http.StatusForbidden, "Reviewer permission required", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}
