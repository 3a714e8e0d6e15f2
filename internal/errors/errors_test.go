package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskdesk/internal/constants"
	"gorm.io/gorm"
)

func TestStatusFor(t *testing.T) {
	tests := map[string]int{
		ErrCodeUnauthenticated:    http.StatusUnauthorized,
		ErrCodeForbidden:          http.StatusForbidden,
		ErrCodeImmutableField:     http.StatusForbidden,
		ErrCodeNotFound:           http.StatusNotFound,
		ErrCodeConflict:           http.StatusConflict,
		ErrCodeAlreadyAssigned:    http.StatusConflict,
		ErrCodeAlreadyCompleted:   http.StatusConflict,
		ErrCodeInvalidTransition:  http.StatusUnprocessableEntity,
		ErrCodePreconditionFailed: http.StatusUnprocessableEntity,
		ErrCodeNotAssigned:        http.StatusUnprocessableEntity,
		ErrCodeNoFiles:            http.StatusBadRequest,
		ErrCodeInvalidAssignee:    http.StatusBadRequest,
		ErrCodeValidation:         http.StatusBadRequest,
		ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
		"SOMETHING_ELSE":          http.StatusInternalServerError,
	}
	for code, want := range tests {
		assert.Equal(t, want, StatusFor(code), code)
	}
}

func TestAPIError_Is(t *testing.T) {
	sentinel := NewAPIError(ErrCodeAlreadyAssigned, "task is already assigned")
	wrapped := fmt.Errorf("assign: %w", NewAPIError(ErrCodeAlreadyAssigned, "task is already assigned"))

	assert.ErrorIs(t, wrapped, sentinel)
	assert.ErrorIs(t, wrapped, &APIError{Code: ErrCodeAlreadyAssigned})
	assert.NotErrorIs(t, wrapped, NewAPIError(ErrCodeAlreadyAssigned, "other message"))
	assert.NotErrorIs(t, wrapped, NewAPIError(ErrCodeConflict, ""))
	assert.Equal(t, ErrCodeAlreadyAssigned, Code(wrapped))
	assert.Equal(t, ErrCodeInternalError, Code(errors.New("boom")))
}

func respond(err error, role string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if role != "" {
		c.Set(constants.ContextKeyRole, role)
	}
	Respond(c, err)
	return w
}

func TestRespond(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"api error", fmt.Errorf("wrapped: %w", Validation("bad")), http.StatusBadRequest, ErrCodeValidation},
		{"record not found", gorm.ErrRecordNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"duplicate key", gorm.ErrDuplicatedKey, http.StatusConflict, ErrCodeConflict},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, ErrCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := respond(tt.err, "")
			assert.Equal(t, tt.wantStatus, w.Code)

			var body APIError
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Code)
			assert.Nil(t, body.Details)
		})
	}
}

func TestRespond_InternalDetailsForSuperAdmin(t *testing.T) {
	w := respond(errors.New("disk on fire"), "SuperAdmin")

	var body APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "disk on fire", body.Details)

	w = respond(errors.New("disk on fire"), "EndUser")
	body = APIError{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Nil(t, body.Details)
}
