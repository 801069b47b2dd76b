package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/octobees/lead-enricher/internal/dto"
	"github.com/octobees/lead-enricher/internal/enrichment"
	"github.com/octobees/lead-enricher/internal/service"
)

// CompaniesHandler exposes company catalogue endpoints.
type CompaniesHandler struct {
	service *service.CompaniesService
	tracker *enrichment.Tracker
}

// NewCompaniesHandler creates a new handler instance.
func NewCompaniesHandler(service *service.CompaniesService, tracker *enrichment.Tracker) *CompaniesHandler {
	return &CompaniesHandler{service: service, tracker: tracker}
}

// List handles GET /companies requests.
func (h *CompaniesHandler) List(c echo.Context) error {
	filter := dto.ListFilter{
		Q:                 strings.TrimSpace(c.QueryParam("q")),
		BusinessModel:     strings.TrimSpace(c.QueryParam("business_model")),
		HasOnlineCheckout: strings.TrimSpace(c.QueryParam("has_online_checkout")),
		Ecommerce:         strings.TrimSpace(c.QueryParam("ecommerce")),
		Page:              parseIntDefault(c.QueryParam("page"), 1),
		PerPage:           parseIntDefault(c.QueryParam("per_page"), 20),
	}

	if updatedSinceStr := strings.TrimSpace(c.QueryParam("updated_since")); updatedSinceStr != "" {
		parsed, err := time.Parse(time.RFC3339, updatedSinceStr)
		if err != nil {
			return Error(c, http.StatusBadRequest, "invalid updated_since (use RFC3339)")
		}
		filter.UpdatedSince = &parsed
	}

	companies, err := h.service.ListCompanies(c.Request().Context(), filter)
	if err != nil {
		return Error(c, http.StatusInternalServerError, "failed to list companies")
	}

	return Success(c, http.StatusOK, "companies retrieved", companies)
}

// Get handles GET /companies/:id.
func (h *CompaniesHandler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid company id")
	}

	company, err := h.service.GetCompany(c.Request().Context(), id)
	if err != nil {
		return FromError(c, err, "failed to fetch company")
	}
	return Success(c, http.StatusOK, "company retrieved", map[string]any{
		"company":   company,
		"analyzing": h.tracker.IsAnalyzing(id),
	})
}

// Delete handles DELETE /companies/:id.
func (h *CompaniesHandler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid company id")
	}

	if err := h.service.DeleteCompany(c.Request().Context(), id); err != nil {
		return FromError(c, err, "failed to delete company")
	}
	return Success(c, http.StatusOK, "company deleted", map[string]any{"id": id})
}

// Create handles POST /companies: placeholders are stored now and enriched in the background.
func (h *CompaniesHandler) Create(c echo.Context) error {
	var payload dto.CreateCompaniesRequest
	if err := c.Bind(&payload); err != nil {
		return Error(c, http.StatusBadRequest, "invalid JSON payload")
	}
	if len(payload.Leads) == 0 {
		return Error(c, http.StatusBadRequest, "leads are required")
	}

	summary, err := h.service.RegisterLeads(c.Request().Context(), payload.Leads)
	if err != nil {
		return ErrorWithData(c, http.StatusInternalServerError, "failed to register companies", summary)
	}
	return Success(c, http.StatusAccepted, "companies queued for enrichment", summary)
}

// Analyzing handles GET /companies/analyzing.
func (h *CompaniesHandler) Analyzing(c echo.Context) error {
	return Success(c, http.StatusOK, "analysis in progress", h.tracker.Snapshot())
}

func parseIntDefault(input string, fallback int) int {
	if input == "" {
		return fallback
	}
	if value, err := strconv.Atoi(input); err == nil {
		return value
	}
	return fallback
}
