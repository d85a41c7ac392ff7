package http

import (
	"errors"
	"net/http"

	"stock-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError транслирует сервисные sentinel-ошибки в HTTP-коды и BaseError.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, NewUnauthorizedError(err.Error()))
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, NewForbiddenError(err.Error()))
	case errors.Is(err, service.ErrBalanceNotFound),
		errors.Is(err, service.ErrRequestNotFound),
		errors.Is(err, service.ErrCatalogItemNotFound):
		c.JSON(http.StatusNotFound, NewNotFoundError(err.Error()))
	case errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidMovementType),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrEmptyLines),
		errors.Is(err, service.ErrAmbiguousLineRef):
		c.JSON(http.StatusBadRequest, NewValidationError(err.Error()))
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, NewConflictError(err.Error()))
	default:
		log.Error("internal error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewInternalError(""))
	}
}
