package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskdesk/internal/models"
)

func strPtr(s string) *string { return &s }

func TestTokenManager_RoundTrip(t *testing.T) {
	m, err := NewTokenManager("secret", time.Hour)
	require.NoError(t, err)

	user := models.User{ID: 7, Role: models.RoleCompanyUser, Company: strPtr("TechCorp")}
	token, expiresAt, err := m.Issue(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	p, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), p.UserID)
	assert.Equal(t, models.RoleCompanyUser, p.Role)
	require.NotNil(t, p.Company)
	assert.Equal(t, "TechCorp", *p.Company)
}

func TestTokenManager_RejectsExpired(t *testing.T) {
	m, err := NewTokenManager("secret", time.Hour)
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := m.Issue(models.User{ID: 1, Role: models.RoleEndUser})
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsWrongSecretAndAlgorithm(t *testing.T) {
	issuer, err := NewTokenManager("one", time.Hour)
	require.NoError(t, err)
	verifier, err := NewTokenManager("two", time.Hour)
	require.NoError(t, err)

	token, _, err := issuer.Issue(models.User{ID: 1, Role: models.RoleEndUser})
	require.NoError(t, err)
	_, err = verifier.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub":  "1",
		"role": "SuperAdmin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = verifier.Parse(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokenManager_RequiresSecret(t *testing.T) {
	_, err := NewTokenManager("  ", time.Hour)
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestBearerToken(t *testing.T) {
	tok, ok := BearerToken("Bearer abc.def")
	assert.True(t, ok)
	assert.Equal(t, "abc.def", tok)

	_, ok = BearerToken("Basic abc")
	assert.False(t, ok)
	_, ok = BearerToken("Bearer")
	assert.False(t, ok)
}
