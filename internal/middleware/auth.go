package middleware

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskdesk/internal/access"
	"github.com/yukikurage/taskdesk/internal/auth"
	"github.com/yukikurage/taskdesk/internal/constants"
	apierrors "github.com/yukikurage/taskdesk/internal/errors"
	"github.com/yukikurage/taskdesk/internal/models"
	"github.com/yukikurage/taskdesk/internal/repository"
	"gorm.io/gorm"
)

// RequireAuth authenticates the request from an Authorization bearer token,
// falling back to the token stored in the session at login. Role and
// company come from the stored user, not from the token claims.
func RequireAuth(tokens *auth.TokenManager, users repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := auth.BearerToken(c.GetHeader("Authorization"))
		if !ok {
			token, ok = sessionToken(c)
		}
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		claimed, err := tokens.Parse(token)
		if err != nil {
			apierrors.Unauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}

		user, err := users.FindByID(c.Request.Context(), claimed.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				apierrors.Unauthorized(c, "Account no longer exists")
			} else {
				apierrors.Respond(c, fmt.Errorf("failed to load caller: %w", err))
			}
			c.Abort()
			return
		}

		SetPrincipal(c, access.PrincipalFor(*user))
		c.Next()
	}
}

// RequireRoles rejects authenticated callers whose role is not listed.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}
		if !slices.Contains(roles, principal.Role) {
			apierrors.Forbidden(c, "Insufficient role for this operation")
			c.Abort()
			return
		}
		c.Next()
	}
}

func sessionToken(c *gin.Context) (string, bool) {
	// sessions.Default panics when the sessions middleware is not installed
	if _, exists := c.Get(sessions.DefaultKey); !exists {
		return "", false
	}
	token, ok := sessions.Default(c).Get(constants.SessionKeyAccessToken).(string)
	return token, ok && token != ""
}

// SetPrincipal stores the caller in the request context.
func SetPrincipal(c *gin.Context, p access.Principal) {
	c.Set(constants.ContextKeyPrincipal, p)
	c.Set(constants.ContextKeyUserID, p.UserID)
	c.Set(constants.ContextKeyRole, string(p.Role))
}

// GetPrincipal retrieves the authenticated caller from context
func GetPrincipal(c *gin.Context) (access.Principal, bool) {
	v, exists := c.Get(constants.ContextKeyPrincipal)
	if !exists {
		return access.Principal{}, false
	}
	p, ok := v.(access.Principal)
	return p, ok
}
