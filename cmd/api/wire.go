package main

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/octobees/lead-enricher/internal/config"
	"github.com/octobees/lead-enricher/internal/enrichment"
	"github.com/octobees/lead-enricher/internal/repository"
	"github.com/octobees/lead-enricher/pkg/anthropic"
	"github.com/octobees/lead-enricher/pkg/apollo"
	"github.com/octobees/lead-enricher/pkg/builtwith"
	"github.com/octobees/lead-enricher/pkg/companieshouse"
	"github.com/octobees/lead-enricher/pkg/perplexity"
	"github.com/octobees/lead-enricher/pkg/zenrows"
)

// pipeline holds the enrichment components shared by the serve and enrich commands.
type pipeline struct {
	repo      *repository.PGXCompaniesRepository
	directory *enrichment.Directory
	tracker   *enrichment.Tracker
	enricher  *enrichment.Enricher
}

func buildPipeline(cfg *config.Config, pool *pgxpool.Pool) *pipeline {
	repo := repository.NewPGXCompaniesRepository(pool)
	tracker := enrichment.NewTracker()

	directory := enrichment.NewDirectory(
		apollo.NewClient(cfg.Apollo.APIKey, apollo.WithBaseURL(cfg.Apollo.BaseURL)),
		enrichment.WithSecondaryBudget(enrichment.SecondaryBudget(cfg.Apollo.SecondaryBudget, cfg.Apollo.SecondaryBurst)),
		enrichment.WithWebhookBaseURL(cfg.Apollo.WebhookBaseURL),
		enrichment.WithPhoneRegion(cfg.Apollo.PhoneRegion),
	)

	enricher := enrichment.NewEnricher(enrichment.Dependencies{
		Registry: enrichment.NewRegistryResolver(
			companieshouse.NewClient(cfg.CompaniesHouse.APIKey, companieshouse.WithBaseURL(cfg.CompaniesHouse.BaseURL)),
		),
		Directory: directory,
		Detector: enrichment.NewTechDetector(
			builtwith.NewClient(cfg.BuiltWith.APIKey, builtwith.WithBaseURL(cfg.BuiltWith.BaseURL)),
		),
		Extractor: enrichment.NewExtractor(
			zenrows.NewClient(cfg.ZenRows.APIKey, zenrows.WithBaseURL(cfg.ZenRows.BaseURL)),
		),
		Summarizer: enrichment.NewSummarizer(
			anthropic.NewClient(cfg.Anthropic.APIKey), cfg.Anthropic.Model, cfg.Anthropic.MaxTokens,
		),
		Channels: enrichment.NewChannelAnalyzer(
			perplexity.NewClient(cfg.Perplexity.APIKey,
				perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
				perplexity.WithModel(cfg.Perplexity.Model),
			),
		),
		Store:   repo,
		Tracker: tracker,
		Policy:  enrichment.PolicyFor(cfg.Apollo.FallbackSelection),
	})

	return &pipeline{repo: repo, directory: directory, tracker: tracker, enricher: enricher}
}
