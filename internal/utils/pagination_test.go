package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/yukikurage/taskdesk/internal/constants"
)

func TestGetPaginationParams(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		query string
		want  PaginationParams
	}{
		{"", PaginationParams{Page: 1, Limit: constants.DefaultPageSize, Offset: 0}},
		{"?page=3&limit=10", PaginationParams{Page: 3, Limit: 10, Offset: 20}},
		{"?page=0&limit=0", PaginationParams{Page: 1, Limit: constants.DefaultPageSize, Offset: 0}},
		{"?page=abc&limit=1000", PaginationParams{Page: 1, Limit: constants.DefaultPageSize, Offset: 0}},
		{"?page=2&limit=100", PaginationParams{Page: 2, Limit: 100, Offset: 100}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest("GET", "/tasks"+tt.query, nil)
			assert.Equal(t, tt.want, GetPaginationParams(c))
		})
	}
}

func TestNewPaginationResponse(t *testing.T) {
	params := NewPaginationParams(2, 10)

	assert.Equal(t, int64(0), NewPaginationResponse(params, 0).TotalPages)
	assert.Equal(t, int64(1), NewPaginationResponse(params, 10).TotalPages)
	assert.Equal(t, int64(3), NewPaginationResponse(params, 21).TotalPages)
}
