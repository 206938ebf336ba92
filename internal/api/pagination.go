package api

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

const maxPageSize = 100

// pageRequest reads the 1-based page and the limit query parameters.
func pageRequest(c *gin.Context, defaultSize int) (types.PageRequest, error) {
	req := types.PageRequest{Page: 1, Limit: defaultSize}

	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return req, service.NewValidationError("page", "must be a positive integer")
		}
		req.Page = page
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return req, service.NewValidationError("limit", "must be a positive integer")
		}
		req.Limit = min(limit, maxPageSize)
	}
	// Page*Limit has to fit in an int for offsets and next links.
	if req.Limit > 0 && req.Page > math.MaxInt/req.Limit {
		return req, service.NewValidationError("page", "is out of range")
	}
	return req, nil
}

// newPage wraps results with the total count and absolute links to the
// neighbouring pages.
func newPage[T any](c *gin.Context, req types.PageRequest, count int64, results []T) types.Page[T] {
	page := types.Page[T]{Count: count, Results: results}
	if page.Results == nil {
		page.Results = []T{}
	}
	if int64(req.Page*req.Limit) < count {
		next := pageURL(c, req.Page+1)
		page.Next = &next
	}
	if req.Page > 1 {
		prev := pageURL(c, req.Page-1)
		page.Previous = &prev
	}
	return page
}

func pageURL(c *gin.Context, page int) string {
	u := *c.Request.URL
	u.Host = c.Request.Host
	u.Scheme = "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		u.Scheme = "https"
	}

	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}
