package handlers

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront-api/internal/apperrors"
	"storefront-api/internal/repository"
)

type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

// classify maps repository sentinels onto the error taxonomy. entity names
// the document for not-found messages, e.g. "Discount".
func classify(err error, entity string) error {
	var appErr *apperrors.Error
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NotFound(entity + " not found")
	case errors.Is(err, repository.ErrInvalidID):
		return apperrors.Validation("Invalid " + strings.ToLower(entity) + " ID")
	case errors.Is(err, repository.ErrDuplicateKey):
		return apperrors.Conflict(entity + " already exists.")
	default:
		return apperrors.Internal("Internal Server Error", err)
	}
}

// respondError writes err as JSON. Internal failures are logged and echo
// the underlying cause to the caller.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	kind := apperrors.KindOf(err)
	status := apperrors.HTTPStatus(kind)
	body := ErrorResponse{Message: err.Error()}

	if kind == apperrors.KindInternal {
		var appErr *apperrors.Error
		if errors.As(err, &appErr) && appErr.Err != nil {
			body.Message = appErr.Message
			body.Error = appErr.Err.Error()
		}
		if body.Message == "" {
			body.Message = "Internal Server Error"
		}
		log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}
