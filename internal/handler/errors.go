package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/facility-placement/internal/allocation"
)

// ErrorResponse is the JSON body of every rejected placement request.
type ErrorResponse struct {
	Error         string                  `json:"error"`
	Message       string                  `json:"message"`
	FacilityCode  string                  `json:"facility_code,omitempty"`
	RequiredArea  *string                 `json:"required_area,omitempty"`
	AvailableArea *string                 `json:"available_area,omitempty"`
	Fields        []allocation.FieldError `json:"fields,omitempty"`
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind allocation.Kind) int {
	switch kind {
	case allocation.KindNotFound:
		return http.StatusNotFound
	case allocation.KindInvalidInput:
		return http.StatusBadRequest
	case allocation.KindInsufficientArea,
		allocation.KindAlreadyDeactivated,
		allocation.KindContractInactive,
		allocation.KindConcurrencyConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err.  Unexpected errors never leak their cause.
func writeError(c echo.Context, err error) error {
	var tagged *allocation.Error
	if !errors.As(err, &tagged) {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   allocation.CodeUnexpected,
			Message: "An unexpected error occurred",
		})
	}
	status := statusFor(tagged.Kind)
	if tagged.Kind == allocation.KindUnexpected && errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}
	body := ErrorResponse{
		Error:        tagged.Code,
		Message:      tagged.Message,
		FacilityCode: tagged.FacilityCode,
		Fields:       tagged.Fields,
	}
	if tagged.Kind == allocation.KindInsufficientArea {
		req, avail := tagged.RequiredArea.String(), tagged.AvailableArea.String()
		body.RequiredArea, body.AvailableArea = &req, &avail
	}
	return c.JSON(status, body)
}

// badRequest reports a body that could not be decoded.
func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: allocation.CodeInvalidInput, Message: msg})
}
