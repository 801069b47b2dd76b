package enrichment

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octobees/lead-enricher/internal/entity"
	"github.com/octobees/lead-enricher/pkg/apollo"
	"github.com/octobees/lead-enricher/pkg/builtwith"
	"github.com/octobees/lead-enricher/pkg/companieshouse"
	"github.com/octobees/lead-enricher/pkg/zenrows"
)

const summaryJSON = `{"short_description":"Acme makes widgets.","products_and_services":["Widgets"],"business_model":"B2B","has_online_checkout":"No"}`

type harness struct {
	registry   *fakeRegistryClient
	apollo     *fakeApollo
	builtwith  *fakeBuiltWith
	zenrows    *fakeZenRows
	anthropic  *fakeAnthropic
	perplexity *fakePerplexity
	store      *memoryStore
	tracker    *Tracker
}

func detectorResponse(techs ...builtwith.Technology) *builtwith.LookupResponse {
	resp := &builtwith.LookupResponse{Results: []builtwith.Result{{}}}
	resp.Results[0].Result.Paths = []builtwith.Path{{Technologies: techs}}
	return resp
}

func newHarness() *harness {
	content := strings.Repeat("Acme widgets are built to last. ", 30) + "Powered by Shopify."
	return &harness{
		registry: &fakeRegistryClient{company: &companieshouse.Company{CompanyNumber: "01234567", CompanyName: "Acme Widgets Limited"}},
		apollo: &fakeApollo{
			orgs: []apollo.Organization{{ID: "o1", Name: "Acme Widgets", PrimaryDomain: "acmewidgets.com", LogoURL: "https://logo/acme.png"}},
			people: []apollo.Person{
				{ID: "p1", Name: "Fran Money", Title: "Chief Financial Officer"},
				{ID: "p2", Name: "Sam Start", Title: "Founder", Email: "email_not_unlocked@domain.com"},
			},
			match: &apollo.Person{Email: "exec@acmewidgets.com", Phone: "+12015550123"},
		},
		builtwith:  &fakeBuiltWith{resp: detectorResponse(builtwith.Technology{Name: "Shopify", Categories: []string{"eCommerce"}})},
		zenrows:    &fakeZenRows{pages: []*zenrows.Page{{Body: content, ContentType: "text/plain"}}},
		anthropic:  &fakeAnthropic{text: summaryJSON},
		perplexity: &fakePerplexity{content: "Online store, Wholesale"},
		store:      newMemoryStore(),
		tracker:    NewTracker(),
	}
}

func (h *harness) enricher() *Enricher {
	return NewEnricher(Dependencies{
		Registry:   NewRegistryResolver(h.registry),
		Directory:  NewDirectory(h.apollo),
		Detector:   NewTechDetector(h.builtwith),
		Extractor:  NewExtractor(h.zenrows, WithExtractionPolicy(noWaitPolicy())),
		Summarizer: NewSummarizer(h.anthropic, "claude-test", 0),
		Channels:   NewChannelAnalyzer(h.perplexity),
		Store:      h.store,
		Tracker:    h.tracker,
	})
}

func TestEnricher_Run_RegistryNumber(t *testing.T) {
	h := newHarness()

	res, err := h.enricher().Run(context.Background(), "01234567")
	require.NoError(t, err)

	assert.Equal(t, SourceRegistryAndDirectory, res.Source)
	assert.True(t, res.Persisted)
	assert.False(t, res.ExtractionFailed)
	require.Len(t, h.apollo.orgQueries, 1)
	assert.Equal(t, "Acme Widgets", h.apollo.orgQueries[0].Name)

	c := res.Company
	assert.NotEqual(t, uuid.Nil, c.ID)
	assert.Equal(t, "acmewidgets.com", c.Domain)
	require.NotNil(t, c.RegistrationNumber)
	assert.Equal(t, "01234567", *c.RegistrationNumber)
	require.NotNil(t, c.DirectoryID)
	assert.Equal(t, "o1", *c.DirectoryID)
	assert.Equal(t, entity.BusinessModelB2B, c.BusinessModel)
	assert.Equal(t, entity.CheckoutNo, c.HasOnlineCheckout)
	assert.Equal(t, []string{"Widgets"}, c.ProductsAndServices)
	assert.Equal(t, "Online store, Wholesale", c.SalesChannels)
	assert.Equal(t, []string{"Shopify"}, c.EcommercePlatforms)
	assert.Equal(t, entity.TechSourceDetector, c.TechSource)

	assert.Equal(t, "p2", c.CEO.DirectoryID)
	assert.Equal(t, "exec@acmewidgets.com", c.CEO.Email)
	assert.Equal(t, "+12015550123", c.CEO.Phone)
	assert.Equal(t, "p1", c.CFO.DirectoryID)
	assert.Len(t, c.KeyPeople, 2)

	stored := h.store.get("acmewidgets.com")
	require.NotNil(t, stored)
	assert.Equal(t, c.ID, stored.ID)
	assert.Equal(t, 2, h.store.upserts, "placeholder then enriched record")
	assert.Empty(t, h.tracker.Snapshot())
}

func TestEnricher_Run_KeepsPhoneDeliveredDuringRun(t *testing.T) {
	h := newHarness()
	h.apollo.match = &apollo.Person{Email: "exec@acmewidgets.com"}
	h.apollo.onMatch = func(req apollo.MatchRequest) {
		if req.ID == "p2" {
			h.store.setPhone("acmewidgets.com", entity.RoleCEO, "+447700900123")
		}
	}

	res, err := h.enricher().Run(context.Background(), "acmewidgets.com")
	require.NoError(t, err)
	require.True(t, res.Persisted)

	stored := h.store.get("acmewidgets.com")
	require.NotNil(t, stored)
	assert.Equal(t, "Sam Start", stored.CEO.Name)
	assert.Equal(t, "exec@acmewidgets.com", stored.CEO.Email)
	assert.Equal(t, "+447700900123", stored.CEO.Phone)
	assert.Equal(t, "+447700900123", res.Company.CEO.Phone)
}

func TestEnricher_Run_ExtractionFailureKeepsDetectorTech(t *testing.T) {
	h := newHarness()
	boom := errors.New("proxy unavailable")
	h.zenrows = &fakeZenRows{errs: []error{boom, boom, boom, boom}}
	h.builtwith.resp = detectorResponse(builtwith.Technology{Name: "Stripe", Categories: []string{"Payments Processor"}})

	res, err := h.enricher().Run(context.Background(), "https://www.AcmeWidgets.com/about")
	require.NoError(t, err)

	c := res.Company
	assert.True(t, res.ExtractionFailed)
	assert.Equal(t, SourceDirectoryDirect, res.Source)
	assert.Equal(t, "acmewidgets.com", c.Domain)
	assert.Equal(t, entity.BusinessModelUnknown, c.BusinessModel)
	assert.Equal(t, entity.CheckoutUnknown, c.HasOnlineCheckout)
	assert.Equal(t, []string{"unknown"}, c.ProductsAndServices)
	assert.Equal(t, []string{"Stripe"}, c.PaymentProcessors)
	assert.Equal(t, entity.TechSourceDetector, c.TechSource)
	assert.Empty(t, h.anthropic.requests)
	assert.Len(t, h.perplexity.requests, 1)
}

func TestEnricher_Run_IdentityErrors(t *testing.T) {
	t.Run("registry not found", func(t *testing.T) {
		h := newHarness()
		h.registry.err = companieshouse.ErrNotFound
		_, err := h.enricher().Run(context.Background(), "01234567")
		assert.ErrorIs(t, err, ErrIdentityNotFound)
		assert.Zero(t, h.store.upserts)
		assert.Empty(t, h.apollo.orgQueries)
	})

	t.Run("directory has no organization", func(t *testing.T) {
		h := newHarness()
		h.apollo.orgs = nil
		_, err := h.enricher().Run(context.Background(), "acme.com")
		assert.ErrorIs(t, err, ErrIdentityNotFound)
	})

	t.Run("directory transport failure after registry", func(t *testing.T) {
		h := newHarness()
		h.apollo.orgErr = errors.New("503")
		_, err := h.enricher().Run(context.Background(), "01234567")
		assert.ErrorIs(t, err, ErrUpstream)
	})

	t.Run("invalid identifier", func(t *testing.T) {
		h := newHarness()
		_, err := h.enricher().Run(context.Background(), "not a domain")
		assert.ErrorIs(t, err, ErrInvalidIdentifier)
		_, err = h.enricher().Run(context.Background(), "  ")
		assert.ErrorIs(t, err, ErrInvalidIdentifier)
	})
}

func TestEnricher_Run_DomainDegradesWhenDirectoryDown(t *testing.T) {
	h := newHarness()
	h.apollo.orgErr = errors.New("503")

	res, err := h.enricher().Run(context.Background(), "acme.com")
	require.NoError(t, err)
	assert.Equal(t, "acme.com", res.Company.Name)
	assert.Nil(t, res.Company.DirectoryID)
	assert.True(t, res.Persisted)
}

func TestEnricher_Run_PersistFailureIsReported(t *testing.T) {
	h := newHarness()
	h.store.upsertErr = errors.New("connection refused")

	res, err := h.enricher().Run(context.Background(), "acme.com")
	require.NoError(t, err)
	assert.False(t, res.Persisted)
	assert.Contains(t, res.PersistError, "connection refused")
	assert.NotNil(t, res.Company)
	assert.Empty(t, h.tracker.Snapshot())
}

func TestEnricher_Run_SkipsPaidWorkForKnownData(t *testing.T) {
	h := newHarness()
	h.apollo.orgs = []apollo.Organization{{ID: "o1", Name: "Acme", PrimaryDomain: "acme.com"}}
	h.apollo.people = []apollo.Person{{ID: "p2", Name: "Sam Start", Title: "Founder"}}
	existingID := uuid.New()
	h.store = newMemoryStore(&entity.Company{
		ID:                 existingID,
		Name:               "Acme",
		Domain:             "acme.com",
		BusinessModel:      entity.BusinessModelB2C,
		EcommercePlatforms: []string{"Magento"},
		TechSource:         entity.TechSourceDetector,
		CEO:                entity.KeyPerson{DirectoryID: "p2", Role: entity.RoleCEO, Name: "Sam Start", Email: "sam@acme.com", Phone: "+441212345678"},
	})

	res, err := h.enricher().Run(context.Background(), "acme.com")
	require.NoError(t, err)

	assert.Equal(t, existingID, res.Company.ID)
	assert.Zero(t, h.builtwith.calls)
	assert.Empty(t, h.apollo.matchReqs)
	assert.Equal(t, []string{"Magento"}, res.Company.EcommercePlatforms)
	assert.Equal(t, entity.BusinessModelB2C, res.Company.BusinessModel)
	assert.Equal(t, "sam@acme.com", res.Company.CEO.Email)
	assert.Equal(t, 1, h.store.upserts)
}

func TestEnricher_Run_Idempotent(t *testing.T) {
	h := newHarness()
	e := h.enricher()

	first, err := e.Run(context.Background(), "acmewidgets.com")
	require.NoError(t, err)
	second, err := e.Run(context.Background(), "acmewidgets.com")
	require.NoError(t, err)

	assert.Equal(t, first.Company.ID, second.Company.ID)
	assert.Equal(t, first.Company.EcommercePlatforms, second.Company.EcommercePlatforms)
	assert.Equal(t, first.Company.CEO, second.Company.CEO)
	assert.Equal(t, 1, h.builtwith.calls)
}

func TestEnricher_AnalyzeWebsite(t *testing.T) {
	h := newHarness()
	out, err := h.enricher().AnalyzeWebsite(context.Background(), "acmewidgets.com")
	require.NoError(t, err)
	assert.Equal(t, "Acme makes widgets.", out.ShortDescription)
	require.NotNil(t, out.EcommercePlatform)
	assert.Equal(t, "Shopify", *out.EcommercePlatform)
	assert.Nil(t, out.PaymentProcessor)
	assert.Zero(t, h.store.upserts)
}

func TestEnricher_AnalyzeWebsite_ExtractionFailed(t *testing.T) {
	h := newHarness()
	h.zenrows = &fakeZenRows{pages: []*zenrows.Page{{Body: "tiny", ContentType: "text/plain"}}}
	h.builtwith.resp = detectorResponse()

	out, err := h.enricher().AnalyzeWebsite(context.Background(), "acmewidgets.com")
	require.ErrorIs(t, err, ErrExtractionFailed)
	require.NotNil(t, out)
	assert.Equal(t, entity.BusinessModelUnknown, out.BusinessModel)
	assert.Equal(t, []string{"unknown"}, out.ProductsAndServices)
}

func TestEnricher_LookupContact(t *testing.T) {
	h := newHarness()
	h.apollo.people = []apollo.Person{{ID: "p7", FirstName: "Jane", LastName: "Doe", Title: "CFO"}}

	res, err := h.enricher().LookupContact(context.Background(), "01234567", "Jane Doe")
	require.NoError(t, err)
	assert.Equal(t, "Acme Widgets", res.CompanyName)
	assert.Equal(t, "acmewidgets.com", res.Domain)
	assert.Equal(t, "p7", res.Person.DirectoryID)
	assert.Equal(t, "exec@acmewidgets.com", res.Person.Email)

	_, err = h.enricher().LookupContact(context.Background(), "acmewidgets.com", " ")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
}

func TestEnricher_RegisterAndEnrichCompany(t *testing.T) {
	h := newHarness()
	e := h.enricher()

	company, err := e.Register(context.Background(), Lead{Name: "Acme Widgets", Domain: "www.AcmeWidgets.com"})
	require.NoError(t, err)
	assert.Equal(t, "acmewidgets.com", company.Domain)
	assert.NotEqual(t, uuid.Nil, company.ID)
	assert.Equal(t, entity.BusinessModelUnknown, company.BusinessModel)

	res, err := e.EnrichCompany(context.Background(), company)
	require.NoError(t, err)
	assert.Equal(t, SourceImported, res.Source)
	assert.Equal(t, company.ID, res.Company.ID)
	require.NotNil(t, res.Company.DirectoryID)
	assert.Equal(t, entity.BusinessModelB2B, res.Company.BusinessModel)

	_, err = e.Register(context.Background(), Lead{Name: "No Domain"})
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
}
