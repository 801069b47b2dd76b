package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/octobees/lead-enricher/internal/service"
)

// ImportHandler handles CSV lead imports.
type ImportHandler struct {
	companiesService *service.CompaniesService
}

// NewImportHandler wires a handler backed by the companies service.
func NewImportHandler(companiesService *service.CompaniesService) *ImportHandler {
	return &ImportHandler{companiesService: companiesService}
}

// UploadCSV handles POST /companies/import requests.
func (h *ImportHandler) UploadCSV(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return Error(c, http.StatusBadRequest, "missing csv file")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return Error(c, http.StatusBadRequest, "unable to open file")
	}
	defer file.Close()

	summary, err := h.companiesService.ImportCompaniesCSV(c.Request().Context(), file)
	if err != nil {
		var validationErr service.CSVValidationError
		if errors.As(err, &validationErr) {
			return Error(c, http.StatusBadRequest, validationErr.Error())
		}
		return ErrorWithData(c, http.StatusInternalServerError, "failed to process csv", summary)
	}

	return Success(c, http.StatusAccepted, "companies CSV queued for enrichment", summary)
}
