package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rollcall/rollcall-backend/internal/model"
	"github.com/rollcall/rollcall-backend/internal/response"
)

// RequireRole restricts a route to callers holding one of the given roles.
// Roles form a closed set (model.Role); there is no wildcard.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		for _, role := range roles {
			if claims.Role == role {
				c.Next()
				return
			}
		}

		response.AbortFail(c, http.StatusForbidden, response.ErrForbidden)
	}
}
