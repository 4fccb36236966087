package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// statusForCategory maps the closed error taxonomy onto HTTP status codes.
func statusForCategory(cat Category) int {
	switch cat {
	case CategoryInvalidInput:
		return http.StatusBadRequest
	case CategoryUpstreamUnavailable:
		return http.StatusBadGateway
	case CategoryNoData:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// AbortWithRunError translates a *RunError (or any error) into the matching
// gin JSON response and aborts the request.
func AbortWithRunError(c *gin.Context, err error) {
	re, ok := AsRunError(err)
	if !ok {
		re = Internal(err.Error(), err)
	}
	c.AbortWithStatusJSON(statusForCategory(re.Category), NewAPIError(re.Category, re.Message, nil))
}

// AbortWithInvalidInput sends a 400 response carrying the invalid-input category.
func AbortWithInvalidInput(c *gin.Context, message string, details map[string]interface{}) {
	c.AbortWithStatusJSON(http.StatusBadRequest, NewAPIError(CategoryInvalidInput, message, details))
}
