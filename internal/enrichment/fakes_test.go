package enrichment

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/octobees/lead-enricher/internal/entity"
	"github.com/octobees/lead-enricher/internal/repository"
	"github.com/octobees/lead-enricher/pkg/anthropic"
	"github.com/octobees/lead-enricher/pkg/apollo"
	"github.com/octobees/lead-enricher/pkg/builtwith"
	"github.com/octobees/lead-enricher/pkg/companieshouse"
	"github.com/octobees/lead-enricher/pkg/perplexity"
	"github.com/octobees/lead-enricher/pkg/zenrows"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeRegistryClient struct {
	company *companieshouse.Company
	err     error
	calls   []string
}

func (f *fakeRegistryClient) GetCompany(_ context.Context, number string) (*companieshouse.Company, error) {
	f.calls = append(f.calls, number)
	return f.company, f.err
}

type fakeApollo struct {
	mu          sync.Mutex
	orgs        []apollo.Organization
	orgErr      error
	people      []apollo.Person
	peopleErr   error
	match       *apollo.Person
	matchErr    error
	reveal      *apollo.Person
	revealErr   error
	orgQueries  []apollo.OrganizationSearchRequest
	peopleReqs  []apollo.PeopleSearchRequest
	matchReqs   []apollo.MatchRequest
	revealCalls int
	onMatch     func(req apollo.MatchRequest)
}

func (f *fakeApollo) SearchOrganizations(_ context.Context, req apollo.OrganizationSearchRequest) ([]apollo.Organization, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orgQueries = append(f.orgQueries, req)
	return f.orgs, f.orgErr
}

func (f *fakeApollo) SearchPeople(_ context.Context, req apollo.PeopleSearchRequest) ([]apollo.Person, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.peopleReqs = append(f.peopleReqs, req)
	return f.people, f.peopleErr
}

func (f *fakeApollo) MatchPerson(_ context.Context, req apollo.MatchRequest) (*apollo.Person, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.matchReqs = append(f.matchReqs, req)
	if f.onMatch != nil {
		f.onMatch(req)
	}
	if f.matchErr != nil {
		return nil, f.matchErr
	}
	if f.match == nil {
		return &apollo.Person{ID: req.ID}, nil
	}
	return f.match, nil
}

func (f *fakeApollo) RevealContact(_ context.Context, req apollo.RevealRequest) (*apollo.Person, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revealCalls++
	if f.revealErr != nil {
		return nil, f.revealErr
	}
	if f.reveal == nil {
		return &apollo.Person{ID: req.ID}, nil
	}
	return f.reveal, nil
}

type fakeBuiltWith struct {
	resp  *builtwith.LookupResponse
	err   error
	calls int
}

func (f *fakeBuiltWith) Lookup(context.Context, string) (*builtwith.LookupResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type fakeZenRows struct {
	mu       sync.Mutex
	pages    []*zenrows.Page
	errs     []error
	requests []zenrows.FetchRequest
}

func (f *fakeZenRows) Fetch(_ context.Context, req zenrows.FetchRequest) (*zenrows.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.requests)
	f.requests = append(f.requests, req)
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return nil, err
	}
	if i < len(f.pages) {
		return f.pages[i], nil
	}
	return &zenrows.Page{}, nil
}

type fakeAnthropic struct {
	text     string
	err      error
	requests []anthropic.MessageRequest
}

func (f *fakeAnthropic) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &anthropic.MessageResponse{Model: req.Model, Content: []anthropic.ContentBlock{{Type: "text", Text: f.text}}}, nil
}

type fakePerplexity struct {
	content  string
	err      error
	requests []perplexity.ChatCompletionRequest
}

func (f *fakePerplexity) ChatCompletion(_ context.Context, req perplexity.ChatCompletionRequest) (*perplexity.ChatCompletionResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &perplexity.ChatCompletionResponse{Choices: []perplexity.Choice{{Message: perplexity.Message{Role: "assistant", Content: f.content}}}}, nil
}

// memoryStore is an in-memory Store keyed by domain.
type memoryStore struct {
	mu        sync.Mutex
	byDomain  map[string]*entity.Company
	upsertErr error
	upserts   int
}

func newMemoryStore(companies ...*entity.Company) *memoryStore {
	s := &memoryStore{byDomain: map[string]*entity.Company{}}
	for _, c := range companies {
		cp := *c
		s.byDomain[c.Domain] = &cp
	}
	return s
}

func (s *memoryStore) FindByDomain(_ context.Context, domain string) (*entity.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byDomain[domain]
	if !ok {
		return nil, repository.ErrCompanyNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *memoryStore) FindByRegistrationNumber(_ context.Context, number string) (*entity.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.byDomain {
		if c.RegistrationNumber != nil && *c.RegistrationNumber == number {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrCompanyNotFound
}

func (s *memoryStore) Upsert(_ context.Context, c *entity.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	if s.upsertErr != nil {
		return s.upsertErr
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	cp := *c
	s.byDomain[c.Domain] = &cp
	return nil
}

// setPhone stores a phone on the role's key person the way the phone webhook does.
func (s *memoryStore) setPhone(domain string, role entity.Role, phone string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byDomain[domain]
	if !ok {
		return
	}
	if role == entity.RoleCFO {
		c.CFO.Phone = phone
		return
	}
	c.CEO.Phone = phone
}

func (s *memoryStore) get(domain string) *entity.Company {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byDomain[domain]
}

func strPtr(s string) *string { return &s }
