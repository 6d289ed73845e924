package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/budget-server/internal/models"
	"github.com/rongwang/budget-server/internal/service"
	"github.com/rongwang/budget-server/internal/utils"
)

var statusByKind = map[service.ErrorKind]int{
	service.KindNotFound:     http.StatusNotFound,
	service.KindForbidden:    http.StatusForbidden,
	service.KindConflict:     http.StatusConflict,
	service.KindBadRequest:   http.StatusBadRequest,
	service.KindUnauthorized: http.StatusUnauthorized,
	service.KindInternal:     http.StatusInternalServerError,
}

// respondError writes err as an ErrorResponse with the status of its kind
func (h *Handler) respondError(c *gin.Context, err error) {
	kind := service.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			utils.FieldMethod, c.Request.Method,
			utils.FieldPath, c.FullPath(),
			utils.FieldError, err,
		)
	}

	c.JSON(status, models.ErrorResponse{
		Status:  "error",
		Code:    string(kind),
		Message: service.MessageOf(err),
	})
}

// respondInvalid reports a request that failed binding or query parsing
func respondInvalid(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Status:  "error",
		Code:    "INVALID_REQUEST",
		Message: message,
	})
}
