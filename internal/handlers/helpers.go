package handlers

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskdesk/internal/access"
	apierrors "github.com/yukikurage/taskdesk/internal/errors"
	"github.com/yukikurage/taskdesk/internal/middleware"
)

var dueDateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// parseDueDate accepts RFC3339 timestamps and plain dates.
func parseDueDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	var lastErr error
	for _, layout := range dueDateLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// requirePrincipal returns the caller or writes a 401.
func requirePrincipal(c *gin.Context) (access.Principal, bool) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return access.Principal{}, false
	}
	return p, true
}

// requireResourceID returns the validated :id parameter or writes a 400.
func requireResourceID(c *gin.Context) (uint64, bool) {
	id, ok := middleware.GetResourceID(c)
	if !ok {
		apierrors.BadRequest(c, "Invalid id")
		return 0, false
	}
	return id, true
}
