package enrichment

import (
	"context"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/octobees/lead-enricher/internal/entity"
	"github.com/octobees/lead-enricher/internal/normalize"
	"github.com/octobees/lead-enricher/pkg/apollo"
)

const (
	organizationPageSize = 10
	executivePageSize    = 5
	lookupPageSize       = 10

	// PhoneWebhookPath receives asynchronous phone reveals from the directory.
	PhoneWebhookPath = "/webhooks/directory-phone"
)

var (
	executiveTitles = []string{
		"CEO", "Chief Executive Officer", "Founder", "Co-Founder", "Owner",
		"President", "Managing Director", "CFO", "Chief Financial Officer",
	}
	executiveSeniorities = []string{"owner", "founder", "c_suite"}
)

// Organization is the directory's view of a company.
type Organization struct {
	DirectoryID string `json:"directory_id"`
	Name        string `json:"name"`
	Domain      string `json:"domain"`
	LogoURL     string `json:"logo_url,omitempty"`
	LinkedInURL string `json:"linkedin_url,omitempty"`
}

// Directory wraps the contact directory: organization search, executive search and the
// paid person enrichment, whose secondary reveal is rate budgeted.
type Directory struct {
	client         apollo.Client
	budget         *rate.Limiter
	webhookBaseURL string
	region         string
}

// DirectoryOption configures a Directory.
type DirectoryOption func(*Directory)

// WithSecondaryBudget limits secondary contact reveals. A nil limiter means unlimited.
func WithSecondaryBudget(l *rate.Limiter) DirectoryOption {
	return func(d *Directory) { d.budget = l }
}

// WithWebhookBaseURL enables asynchronous phone reveals delivered to baseURL.
func WithWebhookBaseURL(baseURL string) DirectoryOption {
	return func(d *Directory) { d.webhookBaseURL = strings.TrimRight(baseURL, "/") }
}

// WithPhoneRegion sets the region assumed for numbers without an international prefix.
func WithPhoneRegion(region string) DirectoryOption {
	return func(d *Directory) { d.region = region }
}

// NewDirectory wires the directory component over an Apollo client.
func NewDirectory(client apollo.Client, opts ...DirectoryOption) *Directory {
	d := &Directory{client: client, region: normalize.DefaultPhoneRegion}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SecondaryBudget builds the limiter for secondary reveals: perMinute reveals a minute with
// the given burst. perMinute <= 0 disables secondary reveals entirely.
func SecondaryBudget(perMinute, burst int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(0, 0)
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(perMinute)/60), burst)
}

// SearchOrganization finds the company for query. With several results, the one whose
// domain equals preferDomain wins; otherwise the first result is used.
func (d *Directory) SearchOrganization(ctx context.Context, query, preferDomain string) (*Organization, error) {
	orgs, err := d.client.SearchOrganizations(ctx, apollo.OrganizationSearchRequest{
		Name:    query,
		Page:    1,
		PerPage: organizationPageSize,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "directory: search organization %q", query)
	}
	if len(orgs) == 0 {
		return nil, eris.Wrapf(ErrIdentityNotFound, "directory has no organization for %q", query)
	}

	selected := orgs[0]
	if preferDomain = normalize.Domain(preferDomain); preferDomain != "" && len(orgs) > 1 {
		for _, o := range orgs {
			if organizationDomain(o) == preferDomain {
				selected = o
				break
			}
		}
	}

	return &Organization{
		DirectoryID: selected.ID,
		Name:        strings.TrimSpace(selected.Name),
		Domain:      organizationDomain(selected),
		LogoURL:     selected.LogoURL,
		LinkedInURL: normalize.ProfileURL(selected.LinkedInURL),
	}, nil
}

// SearchExecutives lists executive candidates at domain in directory order.
func (d *Directory) SearchExecutives(ctx context.Context, domain string) ([]entity.KeyPerson, error) {
	people, err := d.client.SearchPeople(ctx, apollo.PeopleSearchRequest{
		OrganizationDomains: []string{domain},
		Titles:              executiveTitles,
		Seniorities:         executiveSeniorities,
		Page:                1,
		PerPage:             executivePageSize,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "directory: search executives at %s", domain)
	}

	out := make([]entity.KeyPerson, 0, len(people))
	for _, p := range people {
		out = append(out, d.applyPerson(entity.KeyPerson{}, p))
	}
	return out, nil
}

// LookupPerson finds the person named fullName at domain. An exact folded-name match wins,
// then a first-name match with a compatible surname, then the first result.
func (d *Directory) LookupPerson(ctx context.Context, domain, fullName string) (*entity.KeyPerson, error) {
	people, err := d.client.SearchPeople(ctx, apollo.PeopleSearchRequest{
		OrganizationDomains: []string{domain},
		PersonName:          fullName,
		Page:                1,
		PerPage:             lookupPageSize,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "directory: search %q at %s", fullName, domain)
	}
	match, ok := bestPersonMatch(people, fullName)
	if !ok {
		return nil, eris.Wrapf(ErrIdentityNotFound, "directory has no %q at %s", fullName, domain)
	}

	person := d.EnrichPerson(ctx, d.applyPerson(entity.KeyPerson{}, match), domain)
	return &person, nil
}

// EnrichPerson reveals contact details for a known candidate. It never fails: provider
// errors leave the candidate as it was. A secondary reveal runs when the primary match
// leaves email or phone missing or locked, subject to the secondary budget.
func (d *Directory) EnrichPerson(ctx context.Context, known entity.KeyPerson, domain string) entity.KeyPerson {
	if known.DirectoryID == "" {
		return known
	}
	log := zap.L().With(zap.String("person_id", known.DirectoryID), zap.String("domain", domain))

	// phone reveals are delivered only to a webhook, so they are requested only with one
	webhook := d.phoneWebhookURL(known.Role, domain)
	match, err := d.client.MatchPerson(ctx, apollo.MatchRequest{
		ID:                   known.DirectoryID,
		RevealPersonalEmails: true,
		RevealPhoneNumber:    webhook != "",
		WebhookURL:           webhook,
	})
	if err != nil {
		log.Warn("directory person match failed", zap.Error(err))
		return known
	}
	result := d.applyPerson(known, *match)

	if normalize.IsUsable(result.Email) && normalize.IsUsable(result.Phone) {
		return result
	}
	if d.budget != nil && !d.budget.Allow() {
		log.Info("secondary contact reveal skipped, budget exhausted")
		return result
	}

	revealed, err := d.client.RevealContact(ctx, apollo.RevealRequest{
		ID:                   known.DirectoryID,
		RevealPersonalEmails: true,
	})
	if err != nil {
		log.Warn("directory contact reveal failed", zap.Error(err))
		return result
	}
	return d.applyPerson(result, *revealed)
}

// applyPerson fills base from p. Empty identity fields are filled; email and phone are
// filled when missing and replaced when currently a placeholder and p has a usable value.
func (d *Directory) applyPerson(base entity.KeyPerson, p apollo.Person) entity.KeyPerson {
	if base.DirectoryID == "" {
		base.DirectoryID = p.ID
	}
	if base.Name == "" {
		base.Name = strings.TrimSpace(p.FullName())
	}
	if base.Title == "" {
		base.Title = strings.TrimSpace(p.Title)
	}
	if base.LinkedInURL == "" {
		base.LinkedInURL = normalize.ProfileURL(p.LinkedInURL)
	}

	email := normalize.Email(p.Email)
	if email == "" && p.Contact != nil {
		email = normalize.Email(p.Contact.Email)
	}
	base.Email = preferContact(base.Email, email)
	base.Phone = preferContact(base.Phone, normalize.Phone(p.BestPhone(), d.region))
	return base
}

func preferContact(current, candidate string) string {
	switch {
	case candidate == "":
		return current
	case current == "":
		return candidate
	case normalize.IsPlaceholder(current) && normalize.IsUsable(candidate):
		return candidate
	default:
		return current
	}
}

func (d *Directory) phoneWebhookURL(role entity.Role, domain string) string {
	if d.webhookBaseURL == "" || role == "" || domain == "" {
		return ""
	}
	q := url.Values{}
	q.Set("person_type", string(role))
	q.Set("domain", domain)
	return d.webhookBaseURL + PhoneWebhookPath + "?" + q.Encode()
}

func organizationDomain(o apollo.Organization) string {
	if d := normalize.Domain(o.PrimaryDomain); d != "" {
		return d
	}
	return normalize.Domain(o.WebsiteURL)
}

func bestPersonMatch(people []apollo.Person, fullName string) (apollo.Person, bool) {
	if len(people) == 0 {
		return apollo.Person{}, false
	}
	want := normalize.FoldName(fullName)
	for _, p := range people {
		if normalize.FoldName(p.FullName()) == want {
			return p, true
		}
	}

	parts := strings.Fields(want)
	if len(parts) > 0 {
		first, last := parts[0], ""
		if len(parts) > 1 {
			last = parts[len(parts)-1]
		}
		for _, p := range people {
			pFirst := normalize.FoldName(p.FirstName)
			pLast := normalize.FoldName(p.LastName)
			if pFirst == first && (strings.HasPrefix(pLast, last) || strings.HasPrefix(last, pLast)) {
				return p, true
			}
		}
	}
	return people[0], true
}
