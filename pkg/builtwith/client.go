package builtwith

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.builtwith.com"

// Client looks up the technologies installed on a domain.
type Client interface {
	Lookup(ctx context.Context, domain string) (*LookupResponse, error)
}

// LookupResponse is the v21 domain API response.
type LookupResponse struct {
	Results []Result `json:"Results"`
	Errors  []struct {
		Message string `json:"Message"`
	} `json:"Errors"`
}

// Result holds the technology profile of one looked-up domain.
type Result struct {
	Lookup string `json:"Lookup"`
	Result struct {
		Paths []Path `json:"Paths"`
	} `json:"Result"`
}

// Path is one indexed page path and its detected technologies.
type Path struct {
	Domain       string       `json:"Domain"`
	URL          string       `json:"Url"`
	SubDomain    string       `json:"SubDomain"`
	Technologies []Technology `json:"Technologies"`
}

// Technology is a detected product with its vendor categories.
type Technology struct {
	Name       string   `json:"Name"`
	Tag        string   `json:"Tag"`
	Categories []string `json:"Categories"`
}

// Technologies flattens the technologies of every path of every result.
func (r *LookupResponse) Technologies() []Technology {
	var out []Technology
	for _, res := range r.Results {
		for _, p := range res.Result.Paths {
			out = append(out, p.Technologies...)
		}
	}
	return out
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

// NewClient creates a BuiltWith domain API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Lookup(ctx context.Context, domain string) (*LookupResponse, error) {
	q := url.Values{}
	q.Set("KEY", c.apiKey)
	q.Set("LOOKUP", domain)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v21/api.json?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "builtwith: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "builtwith: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "builtwith: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("builtwith: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var result LookupResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "builtwith: unmarshal response")
	}
	if len(result.Results) == 0 && len(result.Errors) > 0 {
		return nil, eris.Errorf("builtwith: %s", result.Errors[0].Message)
	}
	return &result, nil
}
