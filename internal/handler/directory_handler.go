package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/octobees/lead-enricher/internal/dto"
	"github.com/octobees/lead-enricher/internal/entity"
	"github.com/octobees/lead-enricher/internal/normalize"
)

// DirectoryClient is the part of the contact directory exposed for passthrough.
type DirectoryClient interface {
	SearchExecutives(ctx context.Context, domain string) ([]entity.KeyPerson, error)
	EnrichPerson(ctx context.Context, known entity.KeyPerson, domain string) entity.KeyPerson
}

// DirectoryHandler forwards single directory actions for the UI.
type DirectoryHandler struct {
	directory DirectoryClient
}

// NewDirectoryHandler wires a DirectoryHandler.
func NewDirectoryHandler(directory DirectoryClient) *DirectoryHandler {
	return &DirectoryHandler{directory: directory}
}

// Handle serves POST /directory.
func (h *DirectoryHandler) Handle(c echo.Context) error {
	var payload dto.DirectoryRequest
	if err := c.Bind(&payload); err != nil {
		return Error(c, http.StatusBadRequest, "invalid JSON payload")
	}

	ctx := context.WithoutCancel(c.Request().Context())
	domain := normalize.Domain(payload.Domain)

	switch payload.Action {
	case "searchPeople":
		if domain == "" {
			return Error(c, http.StatusBadRequest, "domain is required")
		}
		people, err := h.directory.SearchExecutives(ctx, domain)
		if err != nil {
			return FromError(c, err, "directory search failed")
		}
		return Success(c, http.StatusOK, "people retrieved", people)

	case "enrichPerson":
		personID := strings.TrimSpace(payload.PersonID)
		if personID == "" {
			return Error(c, http.StatusBadRequest, "person_id is required")
		}
		known := entity.KeyPerson{DirectoryID: personID}
		if role, ok := entity.ParseRole(payload.Role); ok {
			known.Role = role
		}
		person := h.directory.EnrichPerson(ctx, known, domain)
		return Success(c, http.StatusOK, "person enriched", person)

	default:
		return Error(c, http.StatusBadRequest, "unsupported action")
	}
}
