package utils

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Response represents a standard API response
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp string      `json:"timestamp"`
	Meta      interface{} `json:"meta,omitempty"`
}

// ErrorResponse represents an error response with request context
type ErrorResponse struct {
	Success   bool        `json:"success"`
	Error     string      `json:"error"`
	Code      int         `json:"code"`
	Timestamp string      `json:"timestamp"`
	Request   RequestInfo `json:"request"`
	Details   interface{} `json:"details,omitempty"`
}

// RequestInfo provides context about the failed request
type RequestInfo struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Query  string `json:"query,omitempty"`
}

// SendSuccess sends a successful response
func SendSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// SendSuccessWithMeta sends a successful response with metadata
func SendSuccessWithMeta(c *gin.Context, data interface{}, meta interface{}) {
	c.JSON(http.StatusOK, Response{
		Success:   true,
		Data:      data,
		Meta:      meta,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// SendError sends an error response with request context
func SendError(c *gin.Context, statusCode int, message string) {
	errorResponse := ErrorResponse{
		Success:   false,
		Error:     message,
		Code:      statusCode,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Request: RequestInfo{
			Method: c.Request.Method,
			Path:   c.Request.URL.Path,
			Query:  c.Request.URL.RawQuery,
		},
	}

	if statusCode == http.StatusNotFound {
		if suggestions := suggestEndpoints(c.Request.URL.Path); len(suggestions) > 0 {
			errorResponse.Details = map[string]interface{}{
				"suggestions": suggestions,
			}
		}
	}

	c.JSON(statusCode, errorResponse)
}

// suggestEndpoints maps common path fragments to the closest real
// endpoints so 404 responses point callers in the right direction.
func suggestEndpoints(path string) []string {
	known := map[string][]string{
		"run":        {"/api/v1/runs", "/api/v1/runs/:id", "/api/v1/runs/trigger"},
		"alert":      {"/api/v1/alerts/feed", "/api/v1/alerts/:detector"},
		"anomal":     {"/api/v1/alerts/feed", "/api/v1/alerts/:detector"},
		"portfolio":  {"/api/v1/portfolio/patterns", "/api/v1/portfolio/health"},
		"pattern":    {"/api/v1/portfolio/patterns"},
		"predict":    {"/api/v1/predictions"},
		"forecast":   {"/api/v1/predictions"},
		"health":     {"/health", "/api/v1/portfolio/health"},
		"metric":     {"/metrics"},
		"prometheus": {"/metrics"},
		"ws":         {"/ws"},
		"socket":     {"/ws"},
	}

	lower := strings.ToLower(path)
	var suggestions []string
	for fragment, endpoints := range known {
		if strings.Contains(lower, fragment) {
			suggestions = append(suggestions, endpoints...)
		}
	}
	return suggestions
}
