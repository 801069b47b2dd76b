// Package enrichment turns a company identifier into a persisted, enriched company record.
package enrichment

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/octobees/lead-enricher/internal/entity"
	"github.com/octobees/lead-enricher/internal/normalize"
	"github.com/octobees/lead-enricher/internal/repository"
)

// Source records how a company's identity was established.
type Source string

const (
	SourceRegistryAndDirectory Source = "registry_and_directory"
	SourceDirectoryDirect      Source = "directory_direct"
	SourceImported             Source = "imported"
)

// IdentityResolver resolves a registration number to a company name.
type IdentityResolver interface {
	Resolve(ctx context.Context, number string) (string, error)
}

// ContactDirectory finds organizations and their executives.
type ContactDirectory interface {
	SearchOrganization(ctx context.Context, query, preferDomain string) (*Organization, error)
	SearchExecutives(ctx context.Context, domain string) ([]entity.KeyPerson, error)
	EnrichPerson(ctx context.Context, person entity.KeyPerson, domain string) entity.KeyPerson
	LookupPerson(ctx context.Context, domain, fullName string) (*entity.KeyPerson, error)
}

// TechStackDetector reports the e-commerce and payment tech of a domain.
type TechStackDetector interface {
	Detect(ctx context.Context, domain string) TechStack
}

// ContentExtractor returns website text or ExtractionFailedSentinel.
type ContentExtractor interface {
	Extract(ctx context.Context, domain string) string
}

// ContentSummarizer produces a structured summary of website text.
type ContentSummarizer interface {
	Summarize(ctx context.Context, content string) (Summary, error)
}

// SalesChannelAnalyzer describes a company's sales channels.
type SalesChannelAnalyzer interface {
	Analyze(ctx context.Context, domain string) string
}

// Store persists company records.
type Store interface {
	FindByDomain(ctx context.Context, domain string) (*entity.Company, error)
	FindByRegistrationNumber(ctx context.Context, number string) (*entity.Company, error)
	Upsert(ctx context.Context, company *entity.Company) error
}

// Dependencies bundles the collaborators of an Enricher.
type Dependencies struct {
	Registry   IdentityResolver
	Directory  ContactDirectory
	Detector   TechStackDetector
	Extractor  ContentExtractor
	Summarizer ContentSummarizer
	Channels   SalesChannelAnalyzer
	Store      Store
	Tracker    *Tracker
	Policy     SelectionPolicy
}

// Enricher orchestrates identity resolution, contact discovery, website analysis and persistence.
type Enricher struct {
	registry   IdentityResolver
	directory  ContactDirectory
	detector   TechStackDetector
	extractor  ContentExtractor
	summarizer ContentSummarizer
	channels   SalesChannelAnalyzer
	store      Store
	tracker    *Tracker
	policy     SelectionPolicy
}

// NewEnricher wires an Enricher. A nil Policy selects DefaultSelection and a nil Tracker
// gets a fresh one.
func NewEnricher(deps Dependencies) *Enricher {
	e := &Enricher{
		registry:   deps.Registry,
		directory:  deps.Directory,
		detector:   deps.Detector,
		extractor:  deps.Extractor,
		summarizer: deps.Summarizer,
		channels:   deps.Channels,
		store:      deps.Store,
		tracker:    deps.Tracker,
		policy:     deps.Policy,
	}
	if e.policy == nil {
		e.policy = DefaultSelection
	}
	if e.tracker == nil {
		e.tracker = NewTracker()
	}
	return e
}

// Tracker exposes the progress tracker.
func (e *Enricher) Tracker() *Tracker {
	return e.tracker
}

// Result is the outcome of one enrichment run.
type Result struct {
	Company          *entity.Company `json:"company"`
	Source           Source          `json:"source"`
	ExtractionFailed bool            `json:"extraction_failed"`
	Persisted        bool            `json:"persisted"`
	PersistError     string          `json:"persist_error,omitempty"`
}

type identity struct {
	name               string
	domain             string
	registrationNumber string
	org                *Organization
	source             Source
}

// Run enriches the company named by identifier, a registration number or a domain.
// It fails only when identity cannot be established; every later failure degrades
// the affected fields and is reported on the Result.
func (e *Enricher) Run(ctx context.Context, identifier string) (*Result, error) {
	id, err := e.resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}

	existing := e.findExisting(ctx, id.domain, id.registrationNumber)
	company := e.prepare(ctx, existing, id)
	return e.enrich(ctx, company, existing, id.source), nil
}

// EnrichCompany runs the pipeline for a record that already exists, such as an imported
// placeholder.
func (e *Enricher) EnrichCompany(ctx context.Context, company *entity.Company) (*Result, error) {
	if company == nil || normalize.Domain(company.Domain) == "" {
		return nil, eris.Wrap(ErrInvalidIdentifier, "company has no domain")
	}
	stored := company
	if company.ID == uuid.Nil {
		stored = e.findExisting(ctx, normalize.Domain(company.Domain), deref(company.RegistrationNumber))
	}

	working := Merge(stored, Findings{
		Name:               company.Name,
		Domain:             normalize.Domain(company.Domain),
		RegistrationNumber: deref(company.RegistrationNumber),
		DirectoryID:        deref(company.DirectoryID),
		LogoURL:            deref(company.LogoURL),
		LinkedInURL:        deref(company.LinkedInURL),
	})
	if working.DirectoryID == nil {
		org, err := e.directory.SearchOrganization(ctx, firstNonEmpty(working.Name, working.Domain), working.Domain)
		if err != nil {
			zap.L().Info("organization lookup skipped", zap.String("domain", working.Domain), zap.Error(err))
		} else {
			working = Merge(working, Findings{
				DirectoryID: org.DirectoryID,
				LogoURL:     org.LogoURL,
				LinkedInURL: org.LinkedInURL,
			})
		}
	}
	if working.ID == uuid.Nil {
		working.ID = uuid.New()
		if err := e.store.Upsert(ctx, working); err != nil {
			zap.L().Warn("placeholder not stored", zap.String("domain", working.Domain), zap.Error(err))
		}
	}
	return e.enrich(ctx, working, stored, SourceImported), nil
}

// Lead is the identity of a company registered for later enrichment.
type Lead struct {
	Name               string `json:"name"`
	Domain             string `json:"domain"`
	RegistrationNumber string `json:"registration_number,omitempty"`
	DirectoryID        string `json:"directory_id,omitempty"`
	LogoURL            string `json:"logo_url,omitempty"`
	LinkedInURL        string `json:"linkedin_url,omitempty"`
}

// Register stores a placeholder for lead, or returns the record already stored for its domain.
func (e *Enricher) Register(ctx context.Context, lead Lead) (*entity.Company, error) {
	domain := normalize.Domain(lead.Domain)
	if domain == "" || !normalize.IsDomain(domain) {
		return nil, eris.Wrapf(ErrInvalidIdentifier, "lead domain %q", lead.Domain)
	}
	number, _ := normalize.RegistrationNumber(lead.RegistrationNumber)

	existing := e.findExisting(ctx, domain, number)
	company := Merge(existing, Findings{
		Name:               firstNonEmpty(strings.TrimSpace(lead.Name), domain),
		Domain:             domain,
		RegistrationNumber: number,
		DirectoryID:        lead.DirectoryID,
		LogoURL:            lead.LogoURL,
		LinkedInURL:        normalize.ProfileURL(lead.LinkedInURL),
	})
	if err := e.store.Upsert(ctx, company); err != nil {
		return nil, eris.Wrapf(err, "register %s", domain)
	}
	return company, nil
}

// WebsiteAnalysis is the result of analyzing a site without persisting it.
type WebsiteAnalysis struct {
	Domain              string               `json:"domain"`
	ShortDescription    string               `json:"short_description"`
	ProductsAndServices []string             `json:"products_and_services"`
	BusinessModel       entity.BusinessModel `json:"business_model"`
	HasOnlineCheckout   entity.Checkout      `json:"has_online_checkout"`
	SalesChannels       string               `json:"sales_channels"`
	EcommercePlatform   *string              `json:"ecommerce_platform"`
	PaymentProcessor    *string              `json:"payment_service_provider"`
	TechSource          entity.TechSource    `json:"tech_source"`
}

// AnalyzeWebsite runs extraction and the analysis branches for domain. When extraction fails
// the returned analysis carries unknown fields and the error is ErrExtractionFailed.
func (e *Enricher) AnalyzeWebsite(ctx context.Context, domain string) (*WebsiteAnalysis, error) {
	domain = normalize.Domain(domain)
	if !normalize.IsDomain(domain) {
		return nil, eris.Wrapf(ErrInvalidIdentifier, "domain %q", domain)
	}

	a := e.analyze(ctx, uuid.Nil, domain, true)
	merged := Merge(nil, Findings{Domain: domain, Summary: a.summary, SalesChannels: a.channels, Detected: a.tech})
	out := &WebsiteAnalysis{
		Domain:              domain,
		ShortDescription:    merged.ShortDescription,
		ProductsAndServices: merged.ProductsAndServices,
		BusinessModel:       merged.BusinessModel,
		HasOnlineCheckout:   merged.HasOnlineCheckout,
		SalesChannels:       merged.SalesChannels,
		EcommercePlatform:   normalize.JoinList(merged.EcommercePlatforms),
		PaymentProcessor:    normalize.JoinList(merged.PaymentProcessors),
		TechSource:          merged.TechSource,
	}
	if a.extractionFailed {
		return out, eris.Wrapf(ErrExtractionFailed, "analyze %s", domain)
	}
	return out, nil
}

// ContactResult is a single resolved contact.
type ContactResult struct {
	CompanyName string           `json:"company_name"`
	Domain      string           `json:"domain"`
	Person      entity.KeyPerson `json:"person"`
	Source      Source           `json:"source"`
}

// LookupContact finds the person named fullName at the company named by identifier.
func (e *Enricher) LookupContact(ctx context.Context, identifier, fullName string) (*ContactResult, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, eris.Wrap(ErrInvalidIdentifier, "contact name is required")
	}
	id, err := e.resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}
	person, err := e.directory.LookupPerson(ctx, id.domain, fullName)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return nil, err
		}
		return nil, eris.Wrapf(ErrUpstream, "lookup %q at %s: %v", fullName, id.domain, err)
	}
	return &ContactResult{CompanyName: id.name, Domain: id.domain, Person: *person, Source: id.source}, nil
}

func (e *Enricher) resolve(ctx context.Context, identifier string) (identity, error) {
	raw := strings.TrimSpace(identifier)
	if raw == "" {
		return identity{}, eris.Wrap(ErrInvalidIdentifier, "identifier is required")
	}

	if number, ok := normalize.RegistrationNumber(raw); ok {
		name, err := e.registry.Resolve(ctx, number)
		if err != nil {
			return identity{}, err
		}
		org, err := e.directory.SearchOrganization(ctx, name, "")
		if err != nil {
			if errors.Is(err, ErrIdentityNotFound) {
				return identity{}, err
			}
			return identity{}, eris.Wrapf(ErrUpstream, "directory search %q: %v", name, err)
		}
		if org.Domain == "" {
			return identity{}, eris.Wrapf(ErrIdentityNotFound, "directory has no domain for %q", name)
		}
		return identity{
			name:               firstNonEmpty(org.Name, name),
			domain:             org.Domain,
			registrationNumber: number,
			org:                org,
			source:             SourceRegistryAndDirectory,
		}, nil
	}

	domain := normalize.Domain(raw)
	if !normalize.IsDomain(domain) {
		return identity{}, eris.Wrapf(ErrInvalidIdentifier, "identifier %q", raw)
	}
	org, err := e.directory.SearchOrganization(ctx, domain, domain)
	switch {
	case err == nil:
		return identity{name: firstNonEmpty(org.Name, domain), domain: domain, org: org, source: SourceDirectoryDirect}, nil
	case errors.Is(err, ErrIdentityNotFound):
		return identity{}, err
	default:
		zap.L().Warn("directory unavailable, continuing with domain only", zap.String("domain", domain), zap.Error(err))
		return identity{name: domain, domain: domain, source: SourceDirectoryDirect}, nil
	}
}

func (e *Enricher) findExisting(ctx context.Context, domain, number string) *entity.Company {
	if domain != "" {
		c, err := e.store.FindByDomain(ctx, domain)
		if err == nil {
			return c
		}
		if !errors.Is(err, repository.ErrCompanyNotFound) {
			zap.L().Warn("lookup by domain failed", zap.String("domain", domain), zap.Error(err))
		}
	}
	if number != "" {
		c, err := e.store.FindByRegistrationNumber(ctx, number)
		if err == nil {
			return c
		}
		if !errors.Is(err, repository.ErrCompanyNotFound) {
			zap.L().Warn("lookup by registration number failed", zap.String("registration_number", number), zap.Error(err))
		}
	}
	return nil
}

// prepare merges identity into the stored record, or creates and stores a placeholder.
func (e *Enricher) prepare(ctx context.Context, existing *entity.Company, id identity) *entity.Company {
	f := Findings{
		Name:               id.name,
		Domain:             id.domain,
		RegistrationNumber: id.registrationNumber,
	}
	if id.org != nil {
		f.DirectoryID = id.org.DirectoryID
		f.LogoURL = id.org.LogoURL
		f.LinkedInURL = id.org.LinkedInURL
	}
	company := Merge(existing, f)
	if existing != nil {
		return company
	}

	if company.ID == uuid.Nil {
		company.ID = uuid.New()
	}
	if err := e.store.Upsert(ctx, company); err != nil {
		zap.L().Warn("placeholder not stored", zap.String("domain", company.Domain), zap.Error(err))
	}
	return company
}

type analysis struct {
	summary          *Summary
	channels         string
	tech             TechStack
	extractionFailed bool
}

// analyze runs extraction, then summarization, channel analysis and tech detection in
// parallel. Each branch degrades on its own.
func (e *Enricher) analyze(ctx context.Context, id uuid.UUID, domain string, detect bool) analysis {
	log := zap.L().With(zap.String("domain", domain))

	e.tracker.Advance(id, StageExtracting)
	content := e.extractor.Extract(ctx, domain)
	var out analysis
	out.extractionFailed = IsExtractionFailed(content)
	if out.extractionFailed {
		log.Warn("website content unavailable")
		e.tracker.Advance(id, StageExtractionFailed)
	} else {
		e.tracker.Advance(id, StageExtracted)
	}

	var g errgroup.Group
	if !out.extractionFailed {
		e.tracker.BranchStarted(id, StageSummarizing)
		g.Go(func() error {
			defer e.tracker.BranchFinished(id, StageSummarizing)
			summary, err := e.summarizer.Summarize(ctx, content)
			if err != nil {
				log.Warn("summarization failed", zap.Error(err))
				return nil
			}
			out.summary = &summary
			return nil
		})
	}
	e.tracker.BranchStarted(id, StageAnalyzingChannels)
	g.Go(func() error {
		defer e.tracker.BranchFinished(id, StageAnalyzingChannels)
		out.channels = e.channels.Analyze(ctx, domain)
		return nil
	})
	if detect {
		e.tracker.BranchStarted(id, StageDetectingTech)
		g.Go(func() error {
			defer e.tracker.BranchFinished(id, StageDetectingTech)
			out.tech = e.detector.Detect(ctx, domain)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// keyPeople selects the CEO and CFO and enriches them, skipping paid enrichment for
// people whose contact details are already stored.
func (e *Enricher) keyPeople(ctx context.Context, stored *entity.Company, domain string) Findings {
	people, err := e.directory.SearchExecutives(ctx, domain)
	if err != nil {
		zap.L().Warn("executive search failed", zap.String("domain", domain), zap.Error(err))
		return Findings{}
	}
	sel := e.policy(people)

	f := Findings{KeyPeople: people}
	for _, slot := range []struct {
		role entity.Role
		pick *entity.KeyPerson
		dst  *entity.KeyPerson
	}{
		{entity.RoleCEO, sel.CEO, &f.CEO},
		{entity.RoleCFO, sel.CFO, &f.CFO},
	} {
		if slot.pick == nil {
			continue
		}
		known := entity.KeyPerson{}
		if stored != nil {
			known = stored.Person(slot.role)
		}
		if known.DirectoryID == slot.pick.DirectoryID && normalize.IsUsable(known.Email) && normalize.IsUsable(known.Phone) {
			*slot.dst = known
			continue
		}
		*slot.dst = e.directory.EnrichPerson(ctx, *slot.pick, domain)
	}
	return f
}

func (e *Enricher) enrich(ctx context.Context, company, stored *entity.Company, source Source) *Result {
	log := zap.L().With(zap.String("domain", company.Domain), zap.String("company_id", company.ID.String()))
	e.tracker.Start(company.ID, company.Domain)

	var (
		people  Findings
		a       analysis
		skipped = stored != nil && stored.TechSource == entity.TechSourceDetector
	)
	var g errgroup.Group
	g.Go(func() error {
		people = e.keyPeople(ctx, stored, company.Domain)
		return nil
	})
	g.Go(func() error {
		a = e.analyze(ctx, company.ID, company.Domain, !skipped)
		return nil
	})
	_ = g.Wait()
	if skipped {
		log.Info("tech detection skipped, detector result already stored")
	}

	e.tracker.Advance(company.ID, StageMerging)
	people.Summary = a.summary
	people.SalesChannels = a.channels
	people.Detected = a.tech
	merged := Merge(e.reload(ctx, company), people)

	result := &Result{Company: merged, Source: source, ExtractionFailed: a.extractionFailed}
	if err := e.store.Upsert(ctx, merged); err != nil {
		log.Error("persist enriched company", zap.Error(err))
		result.PersistError = err.Error()
		e.tracker.Advance(company.ID, StageFailed)
		return result
	}
	result.Persisted = true
	e.tracker.Advance(company.ID, StagePersisted)
	log.Info("company enriched", zap.String("source", string(source)), zap.Bool("extraction_failed", a.extractionFailed))
	return result
}

// reload returns the stored row for company when it is still the same record. Phones
// delivered to the webhook while the run was in flight only exist there.
func (e *Enricher) reload(ctx context.Context, company *entity.Company) *entity.Company {
	stored, err := e.store.FindByDomain(ctx, company.Domain)
	if err != nil {
		if !errors.Is(err, repository.ErrCompanyNotFound) {
			zap.L().Warn("reload before merge failed", zap.String("domain", company.Domain), zap.Error(err))
		}
		return company
	}
	if stored.ID != company.ID {
		return company
	}
	return stored
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
