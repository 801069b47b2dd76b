package zenrows

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.zenrows.com"

// Client fetches pages through the ZenRows scraping proxy.
type Client interface {
	Fetch(ctx context.Context, req FetchRequest) (*Page, error)
}

// FetchRequest describes one proxied page fetch.
type FetchRequest struct {
	URL          string
	JSRender     bool
	PremiumProxy bool
	// ResponseType is "plaintext", "markdown" or empty for raw HTML.
	ResponseType string
	// Wait is a fixed delay after page load before capture.
	Wait time.Duration
	// WaitFor is a CSS selector the proxy waits for before capture.
	WaitFor string
}

// Page is the proxied response body.
type Page struct {
	Body        string
	ContentType string
}

// Text returns the visible text of the page. HTML bodies are reduced to the text of <body>.
func (p *Page) Text() string {
	if p == nil {
		return ""
	}
	if !strings.Contains(strings.ToLower(p.ContentType), "html") {
		return strings.TrimSpace(p.Body)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.Body))
	if err != nil {
		return strings.TrimSpace(p.Body)
	}
	doc.Find("script, style, noscript, svg").Remove()
	return strings.Join(strings.Fields(doc.Find("body").Text()), " ")
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

// NewClient creates a ZenRows client. Rendered fetches can take over a minute, so the
// default timeout is generous.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 90 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Fetch(ctx context.Context, fr FetchRequest) (*Page, error) {
	q := url.Values{}
	q.Set("apikey", c.apiKey)
	q.Set("url", fr.URL)
	if fr.JSRender {
		q.Set("js_render", "true")
	}
	if fr.PremiumProxy {
		q.Set("premium_proxy", "true")
	}
	if fr.ResponseType != "" {
		q.Set("response_type", fr.ResponseType)
	}
	if fr.Wait > 0 {
		q.Set("wait", strconv.FormatInt(fr.Wait.Milliseconds(), 10))
	}
	if fr.WaitFor != "" {
		q.Set("wait_for", fr.WaitFor)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "zenrows: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "zenrows: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "zenrows: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("zenrows: unexpected status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	return &Page{Body: string(body), ContentType: resp.Header.Get("Content-Type")}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
