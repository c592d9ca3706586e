package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"emergencyhub/assistant"
	"emergencyhub/auth"
	"emergencyhub/location"
	"emergencyhub/request"
)

// writeError maps domain errors onto HTTP statuses. Anything unrecognized is
// logged and reported as a 500 without leaking internals.
func (s *Server) writeError(c *gin.Context, err error) {
	var dup *auth.DuplicateFieldError
	switch {
	case errors.As(err, &dup):
		c.JSON(http.StatusBadRequest, gin.H{"error": dup.Field + " already exists"})
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid credentials"})
	case errors.Is(err, auth.ErrWeakPassword):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 8 characters"})
	case errors.Is(err, auth.ErrUserNotFound), errors.Is(err, auth.ErrProviderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "User or Service Provider not found"})
	case errors.Is(err, request.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Request not found"})
	case errors.Is(err, request.ErrDuplicatePending):
		c.JSON(http.StatusConflict, gin.H{"message": "A pending request to this provider already exists"})
	case errors.Is(err, request.ErrAlreadyResolved):
		c.JSON(http.StatusConflict, gin.H{"message": "Request already resolved"})
	case errors.Is(err, request.ErrInvalidDecision):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid decision"})
	case errors.Is(err, location.ErrUnknownEmergencyType):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown emergency type"})
	case errors.Is(err, location.ErrNoResults):
		c.JSON(http.StatusNotFound, gin.H{"error": "No results found"})
	case errors.Is(err, location.ErrUpstream), errors.Is(err, assistant.ErrUpstream):
		s.logger.Error("upstream dependency failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Upstream service failure"})
	default:
		s.logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
