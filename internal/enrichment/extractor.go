package enrichment

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/octobees/lead-enricher/internal/normalize"
	"github.com/octobees/lead-enricher/internal/resilience"
	"github.com/octobees/lead-enricher/pkg/zenrows"
)

const (
	// ExtractionFailedSentinel is returned in place of content when every attempt failed.
	ExtractionFailedSentinel = "Failed to extract content from website after multiple attempts."

	// MinContentLength is the shortest content treated as a usable extraction.
	MinContentLength = 100

	retryContentLength = 500
	renderWait         = 5 * time.Second
	finalRenderWait    = 8 * time.Second
)

var errThinContent = eris.New("extractor: page content below retry threshold")

// Extractor fetches the visible text of a company website through the scraping proxy.
type Extractor struct {
	client zenrows.Client
	policy resilience.Policy
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithExtractionPolicy overrides the retry policy of the rendered fetch.
func WithExtractionPolicy(p resilience.Policy) ExtractorOption {
	return func(e *Extractor) { e.policy = p }
}

// NewExtractor wires an extractor with three attempts and a 2s linear backoff.
func NewExtractor(client zenrows.Client, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		client: client,
		policy: resilience.Policy{
			MaxAttempts: 3,
			Delay:       resilience.Linear(2 * time.Second),
			OnRetry:     resilience.RetryLogger("zenrows", "extract"),
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the page text of domain, or ExtractionFailedSentinel. Attempts yielding
// fewer than 500 characters are retried; after the budget one last fetch waits for the body
// element to render.
func (e *Extractor) Extract(ctx context.Context, domain string) string {
	target, err := normalize.WebsiteURL(domain)
	if err != nil {
		zap.L().Warn("extract: invalid website", zap.String("domain", domain), zap.Error(err))
		return ExtractionFailedSentinel
	}
	log := zap.L().With(zap.String("url", target))

	content, err := resilience.DoVal(ctx, e.policy, func(ctx context.Context) (string, error) {
		page, err := e.client.Fetch(ctx, zenrows.FetchRequest{
			URL:          target,
			JSRender:     true,
			PremiumProxy: true,
			ResponseType: "plaintext",
			Wait:         renderWait,
		})
		if err != nil {
			return "", err
		}
		text := page.Text()
		if utf8.RuneCountInString(text) < retryContentLength {
			return text, errThinContent
		}
		return text, nil
	})
	if err == nil {
		return content
	}
	if ctx.Err() != nil {
		return ExtractionFailedSentinel
	}
	log.Info("extract: final attempt", zap.Error(err))

	page, err := e.client.Fetch(ctx, zenrows.FetchRequest{
		URL:          target,
		JSRender:     true,
		PremiumProxy: true,
		Wait:         finalRenderWait,
		WaitFor:      "body",
	})
	if err != nil {
		log.Warn("extract: all attempts failed", zap.Error(err))
		return ExtractionFailedSentinel
	}
	text := page.Text()
	if text == "" {
		return ExtractionFailedSentinel
	}
	return text
}

// IsExtractionFailed reports whether content is the sentinel or too short to analyze.
func IsExtractionFailed(content string) bool {
	content = strings.TrimSpace(content)
	return content == ExtractionFailedSentinel || utf8.RuneCountInString(content) < MinContentLength
}
