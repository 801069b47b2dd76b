package enrichment

import (
	"regexp"

	"github.com/octobees/lead-enricher/internal/entity"
)

// Title patterns are checked in order, CEO before CFO.
var (
	ceoTitlePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bceo\b`),
		regexp.MustCompile(`(?i)chief\s+executive`),
		regexp.MustCompile(`(?i)\bfounder\b`),
		regexp.MustCompile(`(?i)co-?founder`),
		regexp.MustCompile(`(?i)\bowner\b`),
		regexp.MustCompile(`(?i)\bpresident\b`),
		regexp.MustCompile(`(?i)managing\s+director`),
		regexp.MustCompile(`(?i)creative\s+director`),
	}
	cfoTitlePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bcfo\b`),
		regexp.MustCompile(`(?i)chief\s+financial`),
		regexp.MustCompile(`(?i)finance\s+director`),
		regexp.MustCompile(`(?i)vp\s+of\s+finance`),
		regexp.MustCompile(`(?i)financial\s+controller`),
	}
)

// Selection is the outcome of assigning executive candidates to the CEO and CFO slots.
type Selection struct {
	CEO *entity.KeyPerson
	CFO *entity.KeyPerson
}

// SelectionPolicy assigns candidates to key-person roles.
type SelectionPolicy func(people []entity.KeyPerson) Selection

// StrictSelection assigns roles only on a title match.
func StrictSelection(people []entity.KeyPerson) Selection {
	var sel Selection
	ceoIdx := -1
	for i, p := range people {
		if matchesAny(p.Title, ceoTitlePatterns) {
			sel.CEO = withRole(p, entity.RoleCEO, false)
			ceoIdx = i
			break
		}
	}
	for i, p := range people {
		if i == ceoIdx {
			continue
		}
		if matchesAny(p.Title, cfoTitlePatterns) {
			sel.CFO = withRole(p, entity.RoleCFO, false)
			break
		}
	}
	return sel
}

// DefaultSelection is StrictSelection plus positional fallbacks: with no CEO title match the
// first candidate becomes CEO, and with no CFO match the first other candidate becomes CFO.
// Fallback assignments are flagged.
func DefaultSelection(people []entity.KeyPerson) Selection {
	sel := StrictSelection(people)
	if len(people) == 0 {
		return sel
	}
	if sel.CEO == nil {
		sel.CEO = withRole(people[0], entity.RoleCEO, true)
	}
	if sel.CFO == nil {
		for _, p := range people {
			if sameCandidate(p, *sel.CEO) {
				continue
			}
			sel.CFO = withRole(p, entity.RoleCFO, true)
			break
		}
	}
	return sel
}

// PolicyFor returns DefaultSelection when fallbacks are enabled and StrictSelection otherwise.
func PolicyFor(fallbacks bool) SelectionPolicy {
	if fallbacks {
		return DefaultSelection
	}
	return StrictSelection
}

func matchesAny(title string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(title) {
			return true
		}
	}
	return false
}

func withRole(p entity.KeyPerson, role entity.Role, fallback bool) *entity.KeyPerson {
	p.Role = role
	p.Fallback = fallback
	return &p
}

func sameCandidate(a, b entity.KeyPerson) bool {
	if a.DirectoryID != "" || b.DirectoryID != "" {
		return a.DirectoryID == b.DirectoryID
	}
	return a.Name == b.Name && a.Title == b.Title
}
