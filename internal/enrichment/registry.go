package enrichment

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/octobees/lead-enricher/internal/normalize"
	"github.com/octobees/lead-enricher/pkg/companieshouse"
)

var legalSuffixPattern = regexp.MustCompile(`(?i)\s+(LIMITED|LTD|PLC|LLC|INC|INCORPORATED|CORPORATION|CORP)\.?$`)

// RegistryResolver turns a registration number into a company name usable as a search query.
type RegistryResolver struct {
	client companieshouse.Client
}

// NewRegistryResolver wires a resolver over the registry client.
func NewRegistryResolver(client companieshouse.Client) *RegistryResolver {
	return &RegistryResolver{client: client}
}

// Resolve looks the number up once and returns the name without its legal suffix.
func (r *RegistryResolver) Resolve(ctx context.Context, raw string) (string, error) {
	number, ok := normalize.RegistrationNumber(raw)
	if !ok {
		return "", eris.Wrapf(ErrInvalidIdentifier, "registration number %q", raw)
	}

	company, err := r.client.GetCompany(ctx, number)
	if err != nil {
		if errors.Is(err, companieshouse.ErrNotFound) {
			return "", eris.Wrapf(ErrIdentityNotFound, "registry has no company %s", number)
		}
		return "", eris.Wrapf(ErrUpstream, "registry lookup %s: %v", number, err)
	}

	name := CleanCompanyName(company.CompanyName)
	if name == "" {
		return "", eris.Wrapf(ErrIdentityNotFound, "registry returned no name for %s", number)
	}
	return name, nil
}

// CleanCompanyName strips one trailing legal-entity suffix such as "Limited" or "PLC".
func CleanCompanyName(name string) string {
	name = strings.TrimSpace(name)
	return strings.TrimSpace(legalSuffixPattern.ReplaceAllString(name, ""))
}
