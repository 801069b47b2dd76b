// Package normalize canonicalizes the identifiers and contact fields shared by every provider.
package normalize

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

var (
	schemePattern       = regexp.MustCompile(`^[a-z][a-z0-9+.-]*://`)
	registrationPattern = regexp.MustCompile(`^\d{3}`)
	idnaProfile         = idna.Lookup
)

const trackingPrefix = "utm_"

// Domain lowercases raw and strips scheme, "www.", path, query and port. Non-ASCII hosts are
// converted to punycode. Domain(Domain(x)) == Domain(x).
func Domain(raw string) string {
	d := strings.ToLower(strings.TrimSpace(raw))
	d = schemePattern.ReplaceAllString(d, "")
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	if i := strings.LastIndex(d, "@"); i >= 0 {
		d = d[i+1:]
	}
	if host, _, ok := strings.Cut(d, ":"); ok {
		d = host
	}
	d = strings.TrimSuffix(d, ".")
	d = strings.TrimPrefix(d, "www.")
	if d == "" {
		return ""
	}
	if ascii, err := idnaProfile.ToASCII(d); err == nil && ascii != "" {
		return ascii
	}
	return d
}

// IsDomain reports whether raw normalizes to something shaped like a host name.
func IsDomain(raw string) bool {
	d := Domain(raw)
	if strings.Count(d, ".") == 0 {
		return false
	}
	for _, part := range strings.Split(d, ".") {
		if part == "" || strings.HasPrefix(part, "-") || strings.HasSuffix(part, "-") {
			return false
		}
	}
	return true
}

// RegistrationNumber returns the trimmed number and whether it looks like a registry ID.
func RegistrationNumber(raw string) (string, bool) {
	n := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), " ", ""))
	return n, registrationPattern.MatchString(n)
}

// WebsiteURL turns a domain or partial URL into an absolute https URL.
func WebsiteURL(raw string) (string, error) {
	u, err := sanitizeURL(raw)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// ProfileURL cleans a social profile link: https scheme, tracking parameters removed.
// Invalid input yields "".
func ProfileURL(raw string) string {
	u, err := sanitizeURL(raw)
	if err != nil {
		return ""
	}
	u.Scheme = "https"
	stripTracking(u)
	return u.String()
}

func sanitizeURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("empty url")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, errors.New("invalid url")
	}
	return u, nil
}

func stripTracking(u *url.URL) {
	query := u.Query()
	changed := false
	for key := range query {
		if strings.HasPrefix(strings.ToLower(key), trackingPrefix) {
			query.Del(key)
			changed = true
		}
	}
	if changed {
		u.RawQuery = query.Encode()
	}
}
