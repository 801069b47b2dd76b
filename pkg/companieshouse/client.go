package companieshouse

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.company-information.service.gov.uk"

// ErrNotFound is returned when the registry has no company for the number.
var ErrNotFound = eris.New("companieshouse: company not found")

// Client looks up companies in the UK company register.
type Client interface {
	GetCompany(ctx context.Context, number string) (*Company, error)
}

// Company is the subset of the company profile resource used by the enricher.
type Company struct {
	CompanyNumber           string  `json:"company_number"`
	CompanyName             string  `json:"company_name"`
	CompanyStatus           string  `json:"company_status"`
	Type                    string  `json:"type"`
	DateOfCreation          string  `json:"date_of_creation"`
	RegisteredOfficeAddress Address `json:"registered_office_address"`
}

// Address is the registered office address.
type Address struct {
	AddressLine1 string `json:"address_line_1"`
	AddressLine2 string `json:"address_line_2"`
	Locality     string `json:"locality"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
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

// NewClient creates a Companies House API client. The API key is sent as the basic-auth user.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) GetCompany(ctx context.Context, number string) (*Company, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/company/"+url.PathEscape(number), nil)
	if err != nil {
		return nil, eris.Wrap(err, "companieshouse: create request")
	}
	req.SetBasicAuth(c.apiKey, "")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "companieshouse: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "companieshouse: read response")
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, eris.Errorf("companieshouse: unexpected status %d", resp.StatusCode)
	}

	var company Company
	if err := json.Unmarshal(body, &company); err != nil {
		return nil, eris.Wrap(err, "companieshouse: unmarshal response")
	}
	return &company, nil
}
