// Package api holds the gin handlers that expose the shop's services over HTTP.
package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"strconv"  // String conversion

	"petshop/internal/domain" // Error kinds

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Message string `json:"message"`
}

// respondError maps a service error to its status code. Unknown errors are logged
// and hidden behind a generic message.
func respondError(c *gin.Context, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		logrus.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"error":  err.Error(),
		}).Error("Unhandled error")
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Message: "internal server error"})
		return
	}
	status := http.StatusInternalServerError
	switch de.Kind {
	case domain.KindInvalidInput:
		status = http.StatusBadRequest
	case domain.KindUnauthorized:
		status = http.StatusUnauthorized
	case domain.KindForbidden:
		status = http.StatusForbidden
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindConflict:
		status = http.StatusConflict
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Message: de.Message})
}

// bindJSON binds the request body and answers 400 when it is malformed or fails
// its binding tags
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Message: "invalid request: " + err.Error()})
		return false
	}
	return true
}

// pathID parses the :id route parameter, answering 400 when it is not a positive integer
func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Message: "invalid id"})
		return 0, false
	}
	return uint(id), true
}
