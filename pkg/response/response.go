package response

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Machine readable error codes, one per status the API answers with
const (
	CodeInvalidRequest = "invalid_request"
	CodeUnauthorized   = "unauthorized"
	CodeNotFound       = "not_found"
	CodeConflict       = "conflict"
	CodeRateLimited    = "rate_limited"
	CodeUpstream       = "upstream_failed"
	CodeInternal       = "internal"
)

var codes = map[int]string{
	http.StatusBadRequest:          CodeInvalidRequest,
	http.StatusUnauthorized:        CodeUnauthorized,
	http.StatusNotFound:            CodeNotFound,
	http.StatusConflict:            CodeConflict,
	http.StatusTooManyRequests:     CodeRateLimited,
	http.StatusBadGateway:          CodeUpstream,
	http.StatusInternalServerError: CodeInternal,
}

// Response is the envelope of every JSON API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Code    string      `json:"code,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Success sends a successful response
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// Created sends a 201 Created response
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    data,
	})
}

// SuccessWithMessage sends a successful response with a message
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error aborts the handler chain with an error response
func Error(c *gin.Context, statusCode int, message string) {
	code, ok := codes[statusCode]
	if !ok {
		code = CodeInternal
	}
	c.AbortWithStatusJSON(statusCode, Response{
		Success: false,
		Code:    code,
		Error:   message,
	})
}

// BadRequest sends a 400 Bad Request response
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// Unauthorized sends a 401 Unauthorized response
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message)
}

// NotFound sends a 404 Not Found response
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

// Conflict sends a 409 Conflict response
func Conflict(c *gin.Context, message string) {
	Error(c, http.StatusConflict, message)
}

// TooManyRequests sends a 429 response with a Retry-After hint in seconds
func TooManyRequests(c *gin.Context, retryAfter int, message string) {
	c.Header("Retry-After", strconv.Itoa(retryAfter))
	Error(c, http.StatusTooManyRequests, message)
}

// BadGateway sends a 502 response for feeds that cannot be fetched or parsed
func BadGateway(c *gin.Context, message string) {
	Error(c, http.StatusBadGateway, message)
}

// InternalServerError sends a 500 Internal Server Error response
func InternalServerError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, message)
}
