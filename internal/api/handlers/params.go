package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// PaginationParams holds parsed pagination parameters
type PaginationParams struct {
	Page  int
	Limit int
}

// QueryParamParser provides helpers for parsing and validating query parameters.
// The first error sticks; later calls return defaults.
type QueryParamParser struct {
	c   *gin.Context
	err error
}

// NewQueryParamParser creates a new query parameter parser
func NewQueryParamParser(c *gin.Context) *QueryParamParser {
	return &QueryParamParser{c: c}
}

// Error returns any parsing error that occurred
func (p *QueryParamParser) Error() error {
	return p.err
}

// Pagination parses and validates pagination parameters
func (p *QueryParamParser) Pagination(defaultLimit int) PaginationParams {
	page := p.Int("page", 1)
	limit := p.Int("limit", defaultLimit)

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > 100 {
		limit = 100
	}

	return PaginationParams{Page: page, Limit: limit}
}

// Int gets an integer parameter with a default
func (p *QueryParamParser) Int(key string, defaultValue int) int {
	if p.err != nil {
		return defaultValue
	}

	value := p.c.Query(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		p.err = fmt.Errorf("invalid '%s' parameter: must be a number", key)
		return defaultValue
	}
	return parsed
}

// OneOf gets an optional parameter restricted to the allowed values
func (p *QueryParamParser) OneOf(key string, allowed ...string) string {
	value := p.String(key, "")
	if value == "" || p.err != nil {
		return ""
	}
	for _, a := range allowed {
		if value == a {
			return value
		}
	}
	p.err = fmt.Errorf("invalid '%s' parameter: must be one of %s", key, strings.Join(allowed, ", "))
	return ""
}

// String gets a string parameter with optional default
func (p *QueryParamParser) String(key, defaultValue string) string {
	if p.err != nil {
		return defaultValue
	}

	value := strings.TrimSpace(p.c.Query(key))
	if value == "" {
		return defaultValue
	}
	return value
}
