package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PratikDhanave/web-analytics-service/internal/apperrors"
	"github.com/PratikDhanave/web-analytics-service/internal/auth"
	"github.com/PratikDhanave/web-analytics-service/internal/logging"
)

const internalErrorMessage = "Internal server error"

// respondOK writes the success envelope. data is always present, even when
// it is an empty list.
func respondOK(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

// respondError maps err onto a status code and the failure envelope.
// Unexpected errors are logged and hidden behind a generic message.
func respondError(c *gin.Context, err error) {
	var verr *apperrors.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": verr.Violations})
	case errors.Is(err, apperrors.ErrBadRequest):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": err.Error()})
	default:
		_ = c.Error(err)
		entry := logging.FromContext(c).WithError(err)
		if client := auth.ClientName(c); client != "" {
			entry = entry.WithField("client", client)
		}
		entry.Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": internalErrorMessage})
	}
}
