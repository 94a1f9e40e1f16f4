package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"coop-ledger/internal/domain/apperr"
)

// MapErrorToHTTPStatus translates the ledger's error kinds.
func MapErrorToHTTPStatus(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindFormat:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindAuthorization:
		return http.StatusUnauthorized
	case apperr.KindInvalidState, apperr.KindInsufficientFunds:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c echo.Context, err error) error {
	status := MapErrorToHTTPStatus(err)
	if status == http.StatusInternalServerError {
		logrus.WithError(err).WithFields(logrus.Fields{
			"method": c.Request().Method,
			"route":  c.Path(),
		}).Error("request failed")
		return c.JSON(status, ErrorResponse{Error: "internal error"})
	}
	msg := err.Error()
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Message != "" {
		msg = ae.Message
	}
	return c.JSON(status, ErrorResponse{Error: msg})
}

// bind decodes and validates the body; a non-nil result is the 400 payload.
func bind(c echo.Context, req any) *ErrorResponse {
	if err := c.Bind(req); err != nil {
		return &ErrorResponse{Error: "invalid body"}
	}
	if err := c.Validate(req); err != nil {
		return &ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)}
	}
	return nil
}
