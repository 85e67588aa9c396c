package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opencafe/intake/internal/core"
)

// respondError maps the core error taxonomy onto HTTP statuses. Unexpected
// errors are logged with detail and surfaced as a generic failure.
func respondError(c *gin.Context, log *slog.Logger, err error) {
	var validation *core.ValidationError
	var precondition *core.PreconditionError

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error(), "field": validation.Field})
	case errors.As(err, &precondition):
		c.JSON(http.StatusConflict, gin.H{"error": precondition.Error()})
	case errors.Is(err, core.ErrNoActiveWindow):
		c.JSON(http.StatusConflict, gin.H{"error": "no active intake window, registrations are closed"})
	case errors.Is(err, core.ErrItemNotFound),
		errors.Is(err, core.ErrMaterialNotFound),
		errors.Is(err, core.ErrDepartmentNotFound),
		errors.Is(err, core.ErrJobNotFound),
		errors.Is(err, core.ErrPrinterNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, core.ErrCodeSpaceExhausted):
		log.Error("tracking code generation exhausted", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "could not allocate a tracking code"})
	case errors.Is(err, core.ErrStatusNotConfigured):
		log.Error("lifecycle status missing", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server misconfigured"})
	default:
		log.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
