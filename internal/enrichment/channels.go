package enrichment

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/octobees/lead-enricher/internal/entity"
	"github.com/octobees/lead-enricher/pkg/perplexity"
)

const (
	channelsSystemPrompt = "Be precise and concise."
	channelsPrompt       = "What sales channels does this company use? %s. Please write a brief bullet point list of the sales channels, max 5 items. Don't explain why, just list the channels, in plain text separated by commas - nothing else. Don't use any formatting or newline symbols."
)

// ChannelAnalyzer asks the research model which sales channels a company uses.
type ChannelAnalyzer struct {
	client perplexity.Client
}

// NewChannelAnalyzer wires an analyzer over the Perplexity client.
func NewChannelAnalyzer(client perplexity.Client) *ChannelAnalyzer {
	return &ChannelAnalyzer{client: client}
}

// Analyze returns a short comma-separated channel list, or "unknown" on any failure.
func (a *ChannelAnalyzer) Analyze(ctx context.Context, domain string) string {
	resp, err := a.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Messages: []perplexity.Message{
			{Role: perplexity.RoleSystem, Content: channelsSystemPrompt},
			{Role: perplexity.RoleUser, Content: fmt.Sprintf(channelsPrompt, domain)},
		},
	})
	if err != nil {
		zap.L().Warn("sales channel analysis failed", zap.String("domain", domain), zap.Error(err))
		return entity.Unknown
	}
	if text := resp.Content(); text != "" {
		return text
	}
	return entity.Unknown
}
