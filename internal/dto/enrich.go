package dto

// EnrichRequest starts a single enrichment run.
type EnrichRequest struct {
	// Identifier is a registration number or a domain.
	Identifier string `json:"identifier"`
}

// ContactLookupRequest looks up one named person at a company.
type ContactLookupRequest struct {
	Name    string `json:"name"`
	Company string `json:"company"`
}

// AnalyzeWebsiteRequest analyzes a website without persisting anything.
type AnalyzeWebsiteRequest struct {
	Domain string `json:"domain"`
}

// DirectoryRequest passes through to the contact directory.
type DirectoryRequest struct {
	Action   string `json:"action"`
	Domain   string `json:"domain,omitempty"`
	PersonID string `json:"person_id,omitempty"`
	Role     string `json:"role,omitempty"`
}

// PhoneWebhookRequest is the directory's asynchronous phone reveal callback.
type PhoneWebhookRequest struct {
	ID           string        `json:"id"`
	PhoneNumbers []PhoneNumber `json:"phone_numbers"`
}

// PhoneNumber is one revealed number.
type PhoneNumber struct {
	Number          string `json:"number"`
	SanitizedNumber string `json:"sanitized_number"`
}

// First returns the first non-empty number, preferring the sanitized form.
func (r PhoneWebhookRequest) First() string {
	for _, p := range r.PhoneNumbers {
		if p.SanitizedNumber != "" {
			return p.SanitizedNumber
		}
		if p.Number != "" {
			return p.Number
		}
	}
	return ""
}
