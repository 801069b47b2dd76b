package enrichment

import (
	"strings"

	"github.com/octobees/lead-enricher/internal/entity"
	"github.com/octobees/lead-enricher/internal/normalize"
)

// Findings is everything one enrichment run learned about a company.
type Findings struct {
	Name               string
	Domain             string
	RegistrationNumber string
	DirectoryID        string
	LogoURL            string
	LinkedInURL        string

	CEO       entity.KeyPerson
	CFO       entity.KeyPerson
	KeyPeople []entity.KeyPerson

	// Summary is nil when the site could not be read; analysis fields then become unknown.
	Summary       *Summary
	SalesChannels string

	// Detected is the tech stack reported by the detector, empty when it was skipped or found nothing.
	Detected TechStack
}

// Merge combines a stored record with fresh findings without mutating either. Known values
// on the stored record win over fresh ones, except that placeholder contacts give way to
// real ones and tech from a higher confidence tier replaces a lower one.
func Merge(existing *entity.Company, f Findings) *entity.Company {
	var out entity.Company
	if existing != nil {
		out = *existing
		out.ProductsAndServices = cloneStrings(existing.ProductsAndServices)
		out.EcommercePlatforms = cloneStrings(existing.EcommercePlatforms)
		out.PaymentProcessors = cloneStrings(existing.PaymentProcessors)
		out.KeyPeople = append([]entity.KeyPerson(nil), existing.KeyPeople...)
	} else {
		out = *entity.NewPlaceholder("", "")
	}

	out.Name = keepText(out.Name, f.Name)
	out.Domain = keepText(out.Domain, f.Domain)
	out.RegistrationNumber = keepRef(out.RegistrationNumber, f.RegistrationNumber)
	out.DirectoryID = keepRef(out.DirectoryID, f.DirectoryID)
	out.LogoURL = keepRef(out.LogoURL, f.LogoURL)
	out.LinkedInURL = keepRef(out.LinkedInURL, f.LinkedInURL)

	summary := UnknownSummary()
	if f.Summary != nil {
		summary = *f.Summary
	}
	out.ShortDescription = keepText(out.ShortDescription, summary.ShortDescription)
	out.WebsiteSalesChannels = keepText(out.WebsiteSalesChannels, summary.ShortDescription)
	if len(out.ProductsAndServices) == 0 ||
		(isUnknownList(out.ProductsAndServices) && !isUnknownList(summary.ProductsAndServices)) {
		out.ProductsAndServices = cloneStrings(summary.ProductsAndServices)
	}
	if out.BusinessModel == "" || out.BusinessModel == entity.BusinessModelUnknown {
		out.BusinessModel = summary.BusinessModel
	}
	if out.HasOnlineCheckout == "" || out.HasOnlineCheckout == entity.CheckoutUnknown {
		out.HasOnlineCheckout = summary.HasOnlineCheckout
	}
	out.SalesChannels = keepText(out.SalesChannels, f.SalesChannels)

	mergeTech(&out, f.Detected, summary.Inferred)

	out.CEO = mergePerson(out.CEO, f.CEO, entity.RoleCEO)
	out.CFO = mergePerson(out.CFO, f.CFO, entity.RoleCFO)
	if len(f.KeyPeople) > 0 {
		out.KeyPeople = append([]entity.KeyPerson(nil), f.KeyPeople...)
	}
	for i, p := range out.KeyPeople {
		switch {
		case p.DirectoryID != "" && p.DirectoryID == out.CEO.DirectoryID:
			out.KeyPeople[i] = out.CEO
		case p.DirectoryID != "" && p.DirectoryID == out.CFO.DirectoryID:
			out.KeyPeople[i] = out.CFO
		}
	}
	if out.KeyPeople == nil {
		out.KeyPeople = []entity.KeyPerson{}
	}
	return &out
}

// mergeTech applies the tier rule: detector beats inference beats nothing. At equal tier a
// stored non-empty stack is kept.
func mergeTech(out *entity.Company, detected, inferred TechStack) {
	fresh, source := TechStack{}, entity.TechSourceNone
	switch {
	case !detected.IsEmpty():
		fresh, source = detected, entity.TechSourceDetector
	case !inferred.IsEmpty():
		fresh, source = inferred, entity.TechSourceInference
	}

	storedEmpty := len(out.EcommercePlatforms) == 0 && len(out.PaymentProcessors) == 0
	if source.Rank() > out.TechSource.Rank() || (source.Rank() == out.TechSource.Rank() && storedEmpty && !fresh.IsEmpty()) {
		out.EcommercePlatforms = cloneStrings(fresh.Ecommerce)
		out.PaymentProcessors = cloneStrings(fresh.Payments)
		out.TechSource = source
	}
	if out.EcommercePlatforms == nil {
		out.EcommercePlatforms = []string{}
	}
	if out.PaymentProcessors == nil {
		out.PaymentProcessors = []string{}
	}
}

func mergePerson(existing, fresh entity.KeyPerson, role entity.Role) entity.KeyPerson {
	if fresh.IsZero() {
		return existing
	}
	if existing.IsZero() {
		fresh.Role = role
		return fresh
	}
	if existing.DirectoryID != "" && fresh.DirectoryID != "" && existing.DirectoryID != fresh.DirectoryID {
		// a different person now holds the role; the stored one stays only while it can be reached
		if normalize.IsUsable(existing.Email) || normalize.IsUsable(existing.Phone) {
			return existing
		}
		fresh.Role = role
		return fresh
	}

	out := existing
	out.Role = role
	out.DirectoryID = keepText(out.DirectoryID, fresh.DirectoryID)
	out.Name = keepText(out.Name, fresh.Name)
	out.Title = keepText(out.Title, fresh.Title)
	out.LinkedInURL = keepText(out.LinkedInURL, fresh.LinkedInURL)
	out.Email = preferContact(out.Email, fresh.Email)
	out.Phone = preferContact(out.Phone, fresh.Phone)
	if out.Fallback && !fresh.Fallback {
		out.Fallback = false
	}
	return out
}

// keepText keeps current unless it is empty or unknown.
func keepText(current, fresh string) string {
	if c := strings.TrimSpace(current); c != "" && !strings.EqualFold(c, entity.Unknown) {
		return current
	}
	if strings.TrimSpace(fresh) == "" {
		return current
	}
	return fresh
}

func keepRef(current *string, fresh string) *string {
	if current != nil && *current != "" {
		return current
	}
	if fresh == "" {
		return current
	}
	return &fresh
}

func isUnknownList(values []string) bool {
	return len(values) == 1 && strings.EqualFold(values[0], entity.Unknown)
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return append(make([]string, 0, len(in)), in...)
}
