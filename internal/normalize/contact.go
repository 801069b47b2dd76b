package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/nyaruka/phonenumbers"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultPhoneRegion is assumed for numbers without an international prefix.
const DefaultPhoneRegion = "GB"

var (
	emailPattern = regexp.MustCompile(`^[a-z0-9._%+\-']+@[a-z0-9.-]+\.[a-z]{2,}$`)

	// placeholderPatterns mark contact values the directory returns before a paid reveal.
	placeholderPatterns = []string{"domain.com", "not_unlocked", "apollo.io"}
)

// Email lowercases and validates raw. Invalid input yields "".
func Email(raw string) string {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" || !emailPattern.MatchString(email) {
		return ""
	}
	return email
}

// IsPlaceholder reports whether value is a locked or dummy directory value.
func IsPlaceholder(value string) bool {
	v := strings.ToLower(value)
	for _, p := range placeholderPatterns {
		if strings.Contains(v, p) {
			return true
		}
	}
	return false
}

// IsUsable reports whether value is present and not a placeholder.
func IsUsable(value string) bool {
	return strings.TrimSpace(value) != "" && !IsPlaceholder(value)
}

// Phone formats raw as E.164 when it parses as a valid number in region, and otherwise
// returns it trimmed so that partially formatted numbers are not lost.
func Phone(raw, region string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if region == "" {
		region = DefaultPhoneRegion
	}
	number, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return raw
	}
	if !phonenumbers.IsPossibleNumber(number) || !phonenumbers.IsValidNumber(number) {
		return raw
	}
	return phonenumbers.Format(number, phonenumbers.E164)
}

// FoldName lowercases s, strips diacritics and collapses whitespace so that
// "José  Núñez" and "jose nunez" compare equal.
func FoldName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}
