package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/octobees/lead-enricher/internal/enrichment"
	"github.com/octobees/lead-enricher/internal/repository"
)

// APIResponse describes the standard envelope returned by the API.
type APIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Success sends a successful response using the shared envelope format.
func Success(c echo.Context, status int, message string, data any) error {
	if status == 0 {
		status = http.StatusOK
	}
	return c.JSON(status, APIResponse{Status: "success", Message: message, Data: data})
}

// Error sends an error response using the shared envelope format.
func Error(c echo.Context, status int, message string) error {
	return ErrorWithData(c, status, message, nil)
}

// ErrorWithData sends an error envelope that still carries a partial result.
func ErrorWithData(c echo.Context, status int, message string, data any) error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return c.JSON(status, APIResponse{Status: "error", Message: message, Data: data})
}

// FromError maps pipeline and storage sentinels onto HTTP statuses.
func FromError(c echo.Context, err error, fallback string) error {
	switch {
	case errors.Is(err, enrichment.ErrInvalidIdentifier):
		return Error(c, http.StatusBadRequest, "invalid identifier")
	case errors.Is(err, enrichment.ErrIdentityNotFound), errors.Is(err, repository.ErrCompanyNotFound):
		return Error(c, http.StatusNotFound, "company not found")
	case errors.Is(err, enrichment.ErrUpstream):
		return Error(c, http.StatusBadGateway, "upstream provider unavailable")
	default:
		return Error(c, http.StatusInternalServerError, fallback)
	}
}
