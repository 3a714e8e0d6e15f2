package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskdesk/internal/constants"
)

// PaginationParams is a validated page request
type PaginationParams struct {
	Page   int
	Limit  int
	Offset int
}

// PaginationResponse is the pagination block of list responses
type PaginationResponse struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

// NewPaginationParams clamps page and limit. Out of range limits fall back
// to the default page size rather than the maximum.
func NewPaginationParams(page, limit int) PaginationParams {
	if page < constants.MinPageSize {
		page = constants.MinPageSize
	}
	if limit < constants.MinPageSize || limit > constants.MaxPageSize {
		limit = constants.DefaultPageSize
	}
	return PaginationParams{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

// GetPaginationParams reads ?page and ?limit. Unparseable values are
// treated as missing.
func GetPaginationParams(c *gin.Context) PaginationParams {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil {
		page = constants.MinPageSize
	}
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		limit = constants.DefaultPageSize
	}
	return NewPaginationParams(page, limit)
}

func NewPaginationResponse(params PaginationParams, total int64) PaginationResponse {
	limit := int64(params.Limit)
	if limit < 1 {
		limit = 1
	}
	return PaginationResponse{
		Page:       params.Page,
		Limit:      params.Limit,
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
	}
}
