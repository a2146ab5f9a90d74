package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	zlog "github.com/rs/zerolog/log"

	"shop-orders/internal/domain"
)

const statusOK = "OK"

// envelope is the body of every API response.
type envelope struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(c *gin.Context, status int, message string, data any) {
	c.JSON(status, envelope{Success: true, Status: statusOK, Message: message, Data: data})
}

func httpStatus(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError classifies err and writes the failure envelope. System errors
// keep their cause out of the response and in the log.
func writeError(c *gin.Context, err error) {
	de := domain.AsError(err)
	status := httpStatus(de.Kind)

	message := de.Message
	if de.Kind == domain.KindSystem {
		zlog.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		message = domain.ErrInternal.Message
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, envelope{
		Success: false,
		Status:  string(de.Kind),
		Code:    de.Code,
		Message: message,
	})
}

// bindJSON decodes the body into dst and reports a validation error when it
// cannot.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var de *domain.Error
		if errors.As(err, &de) {
			writeError(c, de)
			return false
		}
		writeError(c, domain.Invalidf("invalid request body: %v", err))
		return false
	}
	return true
}
