package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/octobees/lead-enricher/internal/entity"
	"github.com/octobees/lead-enricher/pkg/anthropic"
)

const (
	maxSummaryInput    = 15000
	truncationMarker   = " ... (content truncated)"
	summaryMaxTokens   = 1024
	summaryTemperature = 0.2

	summarySystemPrompt = "You extract structured facts about companies from their website text. Reply with a single JSON object and nothing else."

	summaryPromptTemplate = `Given the following complete text from a company's official website:

"""
%s
"""

Extract the following structured information in JSON format. If the information is explicitly available, provide it accurately; if it's unclear or unavailable explicitly, answer with "unknown":

{
  "short_description": "<Short (1-2 sentence) summary of the product or service offered by the business based on website content>",
  "products_and_services": ["<Product/Service 1>", "<Product/Service 2>", "..."],
  "business_model": "<B2B or B2C or Both or unknown>",
  "has_online_checkout": "<Yes or No or unknown>"
}

Please only return the JSON object, nothing else.`
)

// Summary is the structured analysis of a website's text.
type Summary struct {
	ShortDescription    string               `json:"short_description"`
	ProductsAndServices []string             `json:"products_and_services"`
	BusinessModel       entity.BusinessModel `json:"business_model"`
	HasOnlineCheckout   entity.Checkout      `json:"has_online_checkout"`

	// Inferred is the vendor tech mentioned in the text.
	Inferred TechStack `json:"-"`
}

// UnknownSummary is the analysis recorded when the site could not be read or analyzed.
func UnknownSummary() Summary {
	return Summary{
		ShortDescription:    entity.Unknown,
		ProductsAndServices: []string{entity.Unknown},
		BusinessModel:       entity.BusinessModelUnknown,
		HasOnlineCheckout:   entity.CheckoutUnknown,
		Inferred:            TechStack{Ecommerce: []string{}, Payments: []string{}},
	}
}

// Summarizer asks the language model for a structured summary of website text.
type Summarizer struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewSummarizer wires a summarizer. maxTokens <= 0 uses the default.
func NewSummarizer(client anthropic.Client, model string, maxTokens int64) *Summarizer {
	if maxTokens <= 0 {
		maxTokens = summaryMaxTokens
	}
	return &Summarizer{client: client, model: model, maxTokens: maxTokens}
}

// Summarize analyzes content. Provider and parse failures are returned; callers fall back
// to UnknownSummary.
func (s *Summarizer) Summarize(ctx context.Context, content string) (Summary, error) {
	temperature := summaryTemperature
	resp, err := s.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     s.model,
		MaxTokens: s.maxTokens,
		System:    summarySystemPrompt,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(summaryPromptTemplate, truncateContent(content))},
		},
		Temperature: &temperature,
	})
	if err != nil {
		return UnknownSummary(), eris.Wrap(err, "summarizer: request")
	}
	resp.Usage.Log(resp.Model, "summarize")

	summary, err := parseSummary(resp.Text())
	if err != nil {
		return UnknownSummary(), err
	}
	summary.Inferred = InferTechStack(content)
	return summary, nil
}

func truncateContent(content string) string {
	if utf8.RuneCountInString(content) <= maxSummaryInput {
		return content
	}
	runes := []rune(content)
	return string(runes[:maxSummaryInput]) + truncationMarker
}

type summaryPayload struct {
	ShortDescription    string          `json:"short_description"`
	ProductsAndServices json.RawMessage `json:"products_and_services"`
	BusinessModel       string          `json:"business_model"`
	HasOnlineCheckout   json.RawMessage `json:"has_online_checkout"`
}

func parseSummary(raw string) (Summary, error) {
	raw = stripCodeFence(raw)
	var p summaryPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return UnknownSummary(), eris.Wrap(err, "summarizer: parse response")
	}

	s := Summary{
		ShortDescription:  strings.TrimSpace(p.ShortDescription),
		BusinessModel:     entity.ParseBusinessModel(p.BusinessModel),
		HasOnlineCheckout: parseCheckoutValue(p.HasOnlineCheckout),
	}
	if s.ShortDescription == "" {
		s.ShortDescription = entity.Unknown
	}

	var offerings []string
	if err := json.Unmarshal(p.ProductsAndServices, &offerings); err == nil {
		for _, o := range offerings {
			if o = strings.TrimSpace(o); o != "" {
				s.ProductsAndServices = append(s.ProductsAndServices, o)
			}
		}
	}
	if len(s.ProductsAndServices) == 0 {
		s.ProductsAndServices = []string{entity.Unknown}
	}
	return s, nil
}

// parseCheckoutValue accepts "Yes"/"No" strings as well as JSON booleans.
func parseCheckoutValue(raw json.RawMessage) entity.Checkout {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		if b {
			return entity.CheckoutYes
		}
		return entity.CheckoutNo
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return entity.ParseCheckout(s)
	}
	return entity.CheckoutUnknown
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
