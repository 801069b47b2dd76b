package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/octobees/lead-enricher/internal/dto"
	"github.com/octobees/lead-enricher/internal/enrichment"
	"github.com/octobees/lead-enricher/internal/entity"
)

// Pipeline is the synchronous enrichment surface used by EnrichHandler.
type Pipeline interface {
	Run(ctx context.Context, identifier string) (*enrichment.Result, error)
	LookupContact(ctx context.Context, identifier, fullName string) (*enrichment.ContactResult, error)
	AnalyzeWebsite(ctx context.Context, domain string) (*enrichment.WebsiteAnalysis, error)
}

// EnrichHandler runs enrichment requests to completion.
type EnrichHandler struct {
	pipeline Pipeline
}

// NewEnrichHandler wires a new EnrichHandler instance.
func NewEnrichHandler(pipeline Pipeline) *EnrichHandler {
	return &EnrichHandler{pipeline: pipeline}
}

type databaseSave struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type enrichResponse struct {
	Company          *entity.Company   `json:"company"`
	Source           enrichment.Source `json:"source"`
	ExtractionFailed bool              `json:"extraction_failed"`
	DatabaseSave     databaseSave      `json:"database_save"`
}

// Enrich handles POST /enrich.
func (h *EnrichHandler) Enrich(c echo.Context) error {
	var payload dto.EnrichRequest
	if err := c.Bind(&payload); err != nil {
		return Error(c, http.StatusBadRequest, "invalid JSON payload")
	}
	if strings.TrimSpace(payload.Identifier) == "" {
		return Error(c, http.StatusBadRequest, "identifier is required")
	}

	// A client disconnect must not abandon paid calls halfway through.
	ctx := context.WithoutCancel(c.Request().Context())
	result, err := h.pipeline.Run(ctx, payload.Identifier)
	if err != nil {
		zap.L().Warn("enrichment failed", zap.String("identifier", payload.Identifier), zap.Error(err))
		return FromError(c, err, "enrichment failed")
	}

	return Success(c, http.StatusOK, "company enriched", enrichResponse{
		Company:          result.Company,
		Source:           result.Source,
		ExtractionFailed: result.ExtractionFailed,
		DatabaseSave:     databaseSave{Success: result.Persisted, Error: result.PersistError},
	})
}

// LookupContact handles POST /contacts/lookup.
func (h *EnrichHandler) LookupContact(c echo.Context) error {
	var payload dto.ContactLookupRequest
	if err := c.Bind(&payload); err != nil {
		return Error(c, http.StatusBadRequest, "invalid JSON payload")
	}
	if strings.TrimSpace(payload.Name) == "" || strings.TrimSpace(payload.Company) == "" {
		return Error(c, http.StatusBadRequest, "name and company are required")
	}

	ctx := context.WithoutCancel(c.Request().Context())
	result, err := h.pipeline.LookupContact(ctx, payload.Company, payload.Name)
	if err != nil {
		zap.L().Warn("contact lookup failed", zap.String("company", payload.Company), zap.Error(err))
		return FromError(c, err, "contact lookup failed")
	}
	return Success(c, http.StatusOK, "contact found", result)
}

// AnalyzeWebsite handles POST /analyze-website.
func (h *EnrichHandler) AnalyzeWebsite(c echo.Context) error {
	var payload dto.AnalyzeWebsiteRequest
	if err := c.Bind(&payload); err != nil {
		return Error(c, http.StatusBadRequest, "invalid JSON payload")
	}
	if strings.TrimSpace(payload.Domain) == "" {
		return Error(c, http.StatusBadRequest, "domain is required")
	}

	ctx := context.WithoutCancel(c.Request().Context())
	analysis, err := h.pipeline.AnalyzeWebsite(ctx, payload.Domain)
	if errors.Is(err, enrichment.ErrExtractionFailed) {
		return ErrorWithData(c, http.StatusUnprocessableEntity, "website content could not be extracted", analysis)
	}
	if err != nil {
		return FromError(c, err, "website analysis failed")
	}
	return Success(c, http.StatusOK, "website analyzed", analysis)
}
