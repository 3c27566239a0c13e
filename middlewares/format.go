package middlewares

import (
	"SmartDentist/services"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// HttpError logs an error and writes an HTTP error response to the client.
func HttpError(c *gin.Context, message string, status int, err error) {
	entry := logrus.WithFields(logrus.Fields{
		"status": status,
		"method": c.Request.Method,
		"path":   c.Request.URL.Path,
	})
	if err != nil {
		entry = entry.WithError(err)
	}
	if status >= http.StatusInternalServerError {
		entry.Error(message)
	} else {
		entry.Debug(message)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// RespondError maps service errors onto HTTP statuses.
func RespondError(c *gin.Context, err error) {
	var validationErr *services.ValidationError
	switch {
	case errors.As(err, &validationErr):
		logrus.WithError(err).Debug("Rejected invalid input")
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":  services.ErrValidation.Error(),
			"fields": validationErr.Fields,
		})
	case errors.Is(err, services.ErrAuthenticationFailed):
		HttpError(c, services.ErrAuthenticationFailed.Error(), http.StatusUnauthorized, err)
	case errors.Is(err, services.ErrInvalidToken):
		HttpError(c, services.ErrInvalidToken.Error(), http.StatusUnauthorized, err)
	case errors.Is(err, services.ErrPermissionDenied):
		HttpError(c, services.ErrPermissionDenied.Error(), http.StatusForbidden, err)
	case errors.Is(err, services.ErrNotFound):
		HttpError(c, services.ErrNotFound.Error(), http.StatusNotFound, err)
	case errors.Is(err, services.ErrBadArchive):
		HttpError(c, services.ErrBadArchive.Error(), http.StatusBadRequest, err)
	case errors.Is(err, services.ErrEmailTaken):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":  services.ErrValidation.Error(),
			"fields": gin.H{"email": services.ErrEmailTaken.Error()},
		})
	case errors.Is(err, services.ErrNoArchive):
		HttpError(c, services.ErrNoArchive.Error(), http.StatusConflict, err)
	case errors.Is(err, services.ErrBusy):
		HttpError(c, services.ErrBusy.Error(), http.StatusConflict, err)
	case errors.Is(err, services.ErrEmptyLibrary):
		HttpError(c, services.ErrEmptyLibrary.Error(), http.StatusInternalServerError, err)
	default:
		HttpError(c, "internal server error", http.StatusInternalServerError, err)
	}
}
