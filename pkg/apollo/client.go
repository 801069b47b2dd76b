package apollo

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.apollo.io"

// Client is the subset of the Apollo REST API used for company and contact enrichment.
type Client interface {
	SearchOrganizations(ctx context.Context, req OrganizationSearchRequest) ([]Organization, error)
	SearchPeople(ctx context.Context, req PeopleSearchRequest) ([]Person, error)
	MatchPerson(ctx context.Context, req MatchRequest) (*Person, error)
	RevealContact(ctx context.Context, req RevealRequest) (*Person, error)
}

// OrganizationSearchRequest is the body for POST /api/v1/mixed_companies/search.
type OrganizationSearchRequest struct {
	Name    string `json:"q_organization_name"`
	Page    int    `json:"page"`
	PerPage int    `json:"per_page"`
}

// Organization is a company candidate returned by organization search.
type Organization struct {
	ID                    string `json:"id"`
	Name                  string `json:"name"`
	PrimaryDomain         string `json:"primary_domain"`
	WebsiteURL            string `json:"website_url"`
	LogoURL               string `json:"logo_url"`
	LinkedInURL           string `json:"linkedin_url"`
	Industry              string `json:"industry"`
	EstimatedNumEmployees int    `json:"estimated_num_employees"`
}

// PeopleSearchRequest is the body for POST /api/v1/mixed_people/search.
type PeopleSearchRequest struct {
	OrganizationDomains []string `json:"q_organization_domains_list,omitempty"`
	PersonName          string   `json:"q_person_name,omitempty"`
	Titles              []string `json:"person_titles,omitempty"`
	Seniorities         []string `json:"person_seniorities,omitempty"`
	Page                int      `json:"page"`
	PerPage             int      `json:"per_page"`
}

// Person is a contact returned by search or enrichment.
type Person struct {
	ID             string        `json:"id"`
	FirstName      string        `json:"first_name"`
	LastName       string        `json:"last_name"`
	Name           string        `json:"name"`
	Title          string        `json:"title"`
	Email          string        `json:"email"`
	EmailStatus    string        `json:"email_status,omitempty"`
	Phone          string        `json:"phone,omitempty"`
	SanitizedPhone string        `json:"sanitized_phone,omitempty"`
	LinkedInURL    string        `json:"linkedin_url"`
	Contact        *Contact      `json:"contact,omitempty"`
	Organization   *Organization `json:"organization,omitempty"`
}

// Contact is the saved-contact view attached to an enriched person.
type Contact struct {
	ID          string `json:"id"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Email       string `json:"email,omitempty"`
}

// BestPhone returns phone, then sanitized_phone, then the contact phone.
func (p Person) BestPhone() string {
	switch {
	case p.Phone != "":
		return p.Phone
	case p.SanitizedPhone != "":
		return p.SanitizedPhone
	case p.Contact != nil:
		return p.Contact.PhoneNumber
	default:
		return ""
	}
}

// FullName returns name, or first and last name joined.
func (p Person) FullName() string {
	if p.Name != "" {
		return p.Name
	}
	switch {
	case p.FirstName != "" && p.LastName != "":
		return p.FirstName + " " + p.LastName
	case p.FirstName != "":
		return p.FirstName
	default:
		return p.LastName
	}
}

// MatchRequest is the body for POST /api/v1/people/match.
type MatchRequest struct {
	ID                   string `json:"id"`
	RevealPersonalEmails bool   `json:"reveal_personal_emails"`
	RevealPhoneNumber    bool   `json:"reveal_phone_number,omitempty"`
	WebhookURL           string `json:"webhook_url,omitempty"`
}

// RevealRequest is the body for POST /api/v1/people/contact.
type RevealRequest struct {
	ID                   string `json:"id"`
	RevealPersonalEmails bool   `json:"reveal_personal_emails"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates an Apollo API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type organizationSearchResponse struct {
	Organizations []Organization `json:"organizations"`
	Accounts      []Organization `json:"accounts"`
}

type peopleSearchResponse struct {
	People   []Person `json:"people"`
	Contacts []Person `json:"contacts"`
}

type personResponse struct {
	Person *Person `json:"person"`
}

func (c *httpClient) SearchOrganizations(ctx context.Context, req OrganizationSearchRequest) ([]Organization, error) {
	var resp organizationSearchResponse
	if err := c.post(ctx, "/api/v1/mixed_companies/search", req, &resp); err != nil {
		return nil, err
	}
	return append(resp.Organizations, resp.Accounts...), nil
}

func (c *httpClient) SearchPeople(ctx context.Context, req PeopleSearchRequest) ([]Person, error) {
	var resp peopleSearchResponse
	if err := c.post(ctx, "/api/v1/mixed_people/search", req, &resp); err != nil {
		return nil, err
	}
	return append(resp.People, resp.Contacts...), nil
}

func (c *httpClient) MatchPerson(ctx context.Context, req MatchRequest) (*Person, error) {
	var resp personResponse
	if err := c.post(ctx, "/api/v1/people/match", req, &resp); err != nil {
		return nil, err
	}
	if resp.Person == nil {
		return nil, eris.New("apollo: match response has no person")
	}
	return resp.Person, nil
}

func (c *httpClient) RevealContact(ctx context.Context, req RevealRequest) (*Person, error) {
	var resp personResponse
	if err := c.post(ctx, "/api/v1/people/contact", req, &resp); err != nil {
		return nil, err
	}
	if resp.Person == nil {
		return nil, eris.New("apollo: contact response has no person")
	}
	return resp.Person, nil
}

func (c *httpClient) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "apollo: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "apollo: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrapf(err, "apollo: send request %s", path)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "apollo: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("apollo: %s unexpected status %d: %s", path, resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return eris.Wrap(err, "apollo: unmarshal response")
	}
	return nil
}
