package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Unknown is the literal used for enrichment fields the analyzers could not determine.
const Unknown = "unknown"

// BusinessModel classifies who a company sells to.
type BusinessModel string

const (
	BusinessModelB2B     BusinessModel = "B2B"
	BusinessModelB2C     BusinessModel = "B2C"
	BusinessModelBoth    BusinessModel = "Both"
	BusinessModelUnknown BusinessModel = Unknown
)

// ParseBusinessModel maps free text onto the known classifications, defaulting to unknown.
func ParseBusinessModel(value string) BusinessModel {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "b2b":
		return BusinessModelB2B
	case "b2c":
		return BusinessModelB2C
	case "both", "b2b/b2c", "b2b and b2c", "b2b & b2c":
		return BusinessModelBoth
	default:
		return BusinessModelUnknown
	}
}

// Checkout reports whether a website sells online.
type Checkout string

const (
	CheckoutYes     Checkout = "Yes"
	CheckoutNo      Checkout = "No"
	CheckoutUnknown Checkout = Unknown
)

// ParseCheckout maps free text onto Yes/No, defaulting to unknown.
func ParseCheckout(value string) Checkout {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes", "true":
		return CheckoutYes
	case "no", "false":
		return CheckoutNo
	default:
		return CheckoutUnknown
	}
}

// TechSource records which tier produced the technology lists of a company.
type TechSource string

const (
	TechSourceNone      TechSource = ""
	TechSourceInference TechSource = "inference"
	TechSourceDetector  TechSource = "detector"
)

// Rank orders sources by confidence: detector > inference > absent.
func (s TechSource) Rank() int {
	switch s {
	case TechSourceDetector:
		return 2
	case TechSourceInference:
		return 1
	default:
		return 0
	}
}

// Role identifies which key-person slot a contact fills.
type Role string

const (
	RoleCEO Role = "ceo"
	RoleCFO Role = "cfo"
)

// ParseRole accepts ceo/cfo in any case.
func ParseRole(value string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleCEO:
		return RoleCEO, true
	case RoleCFO:
		return RoleCFO, true
	default:
		return "", false
	}
}

// KeyPerson is an executive contact embedded in a company record.
type KeyPerson struct {
	DirectoryID string `json:"directory_id,omitempty"`
	Role        Role   `json:"role,omitempty"`
	Name        string `json:"name,omitempty"`
	Title       string `json:"title,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	LinkedInURL string `json:"linkedin_url,omitempty"`
	Fallback    bool   `json:"fallback,omitempty"`
}

// IsZero reports whether no field of the person is set.
func (p KeyPerson) IsZero() bool {
	return p.DirectoryID == "" && p.Name == "" && p.Email == "" && p.Phone == "" && p.LinkedInURL == ""
}

// Company is the merged, persisted record of one enriched company.
type Company struct {
	ID                   uuid.UUID     `json:"id"`
	Name                 string        `json:"name"`
	Domain               string        `json:"domain"`
	RegistrationNumber   *string       `json:"registration_number,omitempty"`
	DirectoryID          *string       `json:"directory_id,omitempty"`
	LogoURL              *string       `json:"logo_url,omitempty"`
	LinkedInURL          *string       `json:"linkedin_url,omitempty"`
	BusinessModel        BusinessModel `json:"business_model"`
	HasOnlineCheckout    Checkout      `json:"has_online_checkout"`
	ShortDescription     string        `json:"short_description"`
	ProductsAndServices  []string      `json:"products_and_services"`
	SalesChannels        string        `json:"sales_channels"`
	WebsiteSalesChannels string        `json:"website_sales_channels"`
	EcommercePlatforms   []string      `json:"ecommerce_platforms"`
	PaymentProcessors    []string      `json:"payment_processors"`
	TechSource           TechSource    `json:"tech_source"`
	CEO                  KeyPerson     `json:"ceo"`
	CFO                  KeyPerson     `json:"cfo"`
	KeyPeople            []KeyPerson   `json:"key_people"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

// NewPlaceholder returns a record holding only identity, with every analyzed field unknown.
func NewPlaceholder(name, domain string) *Company {
	return &Company{
		Name:                name,
		Domain:              domain,
		BusinessModel:       BusinessModelUnknown,
		HasOnlineCheckout:   CheckoutUnknown,
		ProductsAndServices: []string{},
		EcommercePlatforms:  []string{},
		PaymentProcessors:   []string{},
		KeyPeople:           []KeyPerson{},
	}
}

// Person returns the key person stored for role.
func (c *Company) Person(role Role) KeyPerson {
	if role == RoleCFO {
		return c.CFO
	}
	return c.CEO
}

// SetPerson stores p in the slot for role.
func (c *Company) SetPerson(role Role, p KeyPerson) {
	p.Role = role
	if role == RoleCFO {
		c.CFO = p
		return
	}
	c.CEO = p
}
