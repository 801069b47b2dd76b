package dto

import "time"

// ListFilter contains query parameters for company listing endpoints.
type ListFilter struct {
	Q                 string
	BusinessModel     string
	HasOnlineCheckout string
	Ecommerce         string
	UpdatedSince      *time.Time
	Page              int
	PerPage           int
}

// CreateCompaniesRequest registers companies and queues them for enrichment.
type CreateCompaniesRequest struct {
	Leads []LeadRequest `json:"leads"`
}

// LeadRequest is one company to register.
type LeadRequest struct {
	Name               string `json:"name"`
	Domain             string `json:"domain"`
	RegistrationNumber string `json:"registration_number,omitempty"`
	DirectoryID        string `json:"directory_id,omitempty"`
	LogoURL            string `json:"logo_url,omitempty"`
	LinkedInURL        string `json:"linkedin_url,omitempty"`
}
