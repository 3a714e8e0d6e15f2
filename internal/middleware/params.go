package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/taskdesk/internal/errors"
)

const contextKeyResourceID = "resource_id"

// RequireIDParam validates that the named path parameter is a positive
// integer and stores it for GetResourceID.
func RequireIDParam(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param(name), 10, 64)
		if err != nil || id == 0 {
			apierrors.BadRequest(c, "Invalid "+name)
			c.Abort()
			return
		}

		c.Set(contextKeyResourceID, id)
		c.Next()
	}
}

// GetResourceID returns the id stored by RequireIDParam.
func GetResourceID(c *gin.Context) (uint64, bool) {
	v, exists := c.Get(contextKeyResourceID)
	if !exists {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok
}
