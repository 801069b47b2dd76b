package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/octobees/lead-enricher/internal/config"
	"github.com/octobees/lead-enricher/internal/enrichment"
	"github.com/octobees/lead-enricher/internal/handler"
	middlewarepkg "github.com/octobees/lead-enricher/internal/middleware"
)

// Handlers aggregates HTTP handlers used by the router.
type Handlers struct {
	Companies *handler.CompaniesHandler
	Import    *handler.ImportHandler
	Enrich    *handler.EnrichHandler
	Directory *handler.DirectoryHandler
	Webhook   *handler.WebhookHandler
}

// Register wires all HTTP routes for the API.
func Register(e *echo.Echo, cfg *config.Config, handlers Handlers) {
	e.GET("/healthz", func(c echo.Context) error {
		return handler.Success(c, http.StatusOK, "service healthy", map[string]any{"status": "ok"})
	})

	// One bucket guards every route that spends provider credits.
	limited := middlewarepkg.EnrichRateLimiter(cfg.EnrichLimit)

	e.POST("/enrich", handlers.Enrich.Enrich, limited)
	e.POST("/contacts/lookup", handlers.Enrich.LookupContact, limited)
	e.POST("/analyze-website", handlers.Enrich.AnalyzeWebsite, limited)
	e.POST("/directory", handlers.Directory.Handle, limited)

	e.POST(enrichment.PhoneWebhookPath, handlers.Webhook.DirectoryPhone)

	companies := e.Group("/companies")
	companies.GET("", handlers.Companies.List)
	companies.POST("", handlers.Companies.Create, limited)
	companies.POST("/import", handlers.Import.UploadCSV, limited)
	companies.GET("/analyzing", handlers.Companies.Analyzing)
	companies.GET("/:id", handlers.Companies.Get)
	companies.DELETE("/:id", handlers.Companies.Delete)
}
