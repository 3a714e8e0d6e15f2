package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskdesk/internal/auth"
	"github.com/yukikurage/taskdesk/internal/models"
	"github.com/yukikurage/taskdesk/internal/repository"
	"github.com/yukikurage/taskdesk/internal/testutil"
	"gorm.io/gorm"
)

type routerEnv struct {
	db     *gorm.DB
	router *gin.Engine
	tokens *auth.TokenManager
}

func setupRouter(t *testing.T) routerEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	tokens, err := auth.NewTokenManager("middleware-secret", time.Hour)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/staff/:id",
		RequireAuth(tokens, repository.NewUserRepository(db)),
		RequireRoles(models.RoleSuperAdmin, models.RoleCompanyUser),
		RequireIDParam("id"),
		func(c *gin.Context) {
			p, _ := GetPrincipal(c)
			id, _ := GetResourceID(c)
			c.JSON(http.StatusOK, gin.H{"user_id": p.UserID, "role": p.Role, "id": id})
		},
	)
	return routerEnv{db: db, router: r, tokens: tokens}
}

func (env routerEnv) issue(t *testing.T, u *models.User) string {
	t.Helper()
	token, _, err := env.tokens.Issue(*u)
	require.NoError(t, err)
	return token
}

func (env routerEnv) get(path, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func TestMiddlewareChain(t *testing.T) {
	env := setupRouter(t)
	staff := testutil.CreateUser(t, env.db, "companyuser_mike", models.RoleCompanyUser, "TechCorp")
	endUser := testutil.CreateUser(t, env.db, "enduser_emma", models.RoleEndUser, "TechCorp")
	staffToken := env.issue(t, staff)

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"no credentials", "/staff/1", "", http.StatusUnauthorized},
		{"garbage token", "/staff/1", "Bearer nope", http.StatusUnauthorized},
		{"wrong scheme", "/staff/1", "Basic " + staffToken, http.StatusUnauthorized},
		{"wrong role", "/staff/1", "Bearer " + env.issue(t, endUser), http.StatusForbidden},
		{"bad id", "/staff/abc", "Bearer " + staffToken, http.StatusBadRequest},
		{"zero id", "/staff/0", "Bearer " + staffToken, http.StatusBadRequest},
		{"ok", "/staff/42", "Bearer " + staffToken, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.get(tt.path, tt.header)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.JSONEq(t, `{"user_id":`+itoa(staff.ID)+`,"role":"CompanyUser","id":42}`, w.Body.String())
			}
		})
	}
}

func TestRequireAuth_RoleComesFromStoredUser(t *testing.T) {
	env := setupRouter(t)
	user := testutil.CreateUser(t, env.db, "companyuser_lisa", models.RoleCompanyUser, "Globex")
	token := env.issue(t, user)

	require.Equal(t, http.StatusOK, env.get("/staff/1", "Bearer "+token).Code)

	// demoted after the token was issued
	require.NoError(t, env.db.Model(&models.User{}).Where("id = ?", user.ID).Update("role", models.RoleEndUser).Error)
	assert.Equal(t, http.StatusForbidden, env.get("/staff/1", "Bearer "+token).Code)
}

func TestRequireAuth_DeletedUser(t *testing.T) {
	env := setupRouter(t)
	user := testutil.CreateUser(t, env.db, "superadmin_sarah", models.RoleSuperAdmin, "InnovateX")
	token := env.issue(t, user)

	require.NoError(t, env.db.Delete(&models.User{}, user.ID).Error)

	w := env.get("/staff/1", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "UNAUTHENTICATED")
}

func TestRequireRoles_WithoutPrincipal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	RequireRoles(models.RoleSuperAdmin)(c)

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func itoa(id uint64) string {
	return strconv.FormatUint(id, 10)
}
