package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/octobees/lead-enricher/internal/dto"
	"github.com/octobees/lead-enricher/internal/entity"
	"github.com/octobees/lead-enricher/internal/repository"
	"github.com/octobees/lead-enricher/internal/service"
)

// WebhookHandler receives asynchronous callbacks from the contact directory.
type WebhookHandler struct {
	companiesService *service.CompaniesService
}

// NewWebhookHandler wires a WebhookHandler.
func NewWebhookHandler(companiesService *service.CompaniesService) *WebhookHandler {
	return &WebhookHandler{companiesService: companiesService}
}

// DirectoryPhone handles POST /webhooks/directory-phone?person_type=ceo|cfo&domain=...
func (h *WebhookHandler) DirectoryPhone(c echo.Context) error {
	personType := strings.TrimSpace(c.QueryParam("person_type"))
	domain := strings.TrimSpace(c.QueryParam("domain"))
	if personType == "" || domain == "" {
		return Error(c, http.StatusBadRequest, "person_type and domain are required")
	}
	role, ok := entity.ParseRole(personType)
	if !ok {
		return Error(c, http.StatusBadRequest, "person_type must be ceo or cfo")
	}

	var payload dto.PhoneWebhookRequest
	if err := c.Bind(&payload); err != nil {
		return Error(c, http.StatusBadRequest, "invalid JSON payload")
	}
	if strings.TrimSpace(payload.ID) == "" {
		return Error(c, http.StatusBadRequest, "id is required")
	}

	number := payload.First()
	if number == "" {
		return Success(c, http.StatusOK, "no phone numbers in payload", map[string]any{"success": false})
	}

	name, err := h.companiesService.RecordPhone(c.Request().Context(), domain, role, number)
	switch {
	case errors.Is(err, service.ErrInvalidPhone):
		return Success(c, http.StatusOK, "phone number unusable", map[string]any{"success": false})
	case errors.Is(err, repository.ErrCompanyNotFound):
		return Error(c, http.StatusNotFound, "company not found")
	case err != nil:
		zap.L().Error("store webhook phone", zap.String("domain", domain), zap.Error(err))
		return Error(c, http.StatusInternalServerError, "failed to store phone number")
	}

	zap.L().Info("stored directory phone",
		zap.String("domain", domain),
		zap.String("role", string(role)),
		zap.String("person_id", payload.ID),
	)
	return Success(c, http.StatusOK, "phone number stored", map[string]any{
		"success":     true,
		"person_type": role,
		"name":        name,
	})
}
